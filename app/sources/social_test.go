package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/pattayaone/tidal/app/content"
)

const socialResponseJSON = `{
  "posts": [
    {
      "id": "tw-1001",
      "platform": "twitter",
      "author": "beachwatcher",
      "text": "Sunset at the pier tonight\nAbsolutely stunning colors.",
      "url": "https://twitter.com/beachwatcher/status/1001",
      "image_url": "https://pbs.example.com/sunset.jpg",
      "created_at": "2026-08-10T18:45:00Z"
    },
    {
      "id": "",
      "platform": "twitter",
      "author": "ghost",
      "text": "Post without an id"
    },
    {
      "id": "ig-2002",
      "platform": "instagram",
      "author": "foodie",
      "text": "   "
    }
  ]
}`

func socialSource(url string) content.ConfigSource {
	return content.ConfigSource{Name: "Social Posts", Type: "social", URL: url}
}

func TestSocialAdapter_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(socialResponseJSON))
	}))
	defer server.Close()

	adapter := NewSocialAdapter(NewFetcher(server.Client(), "test-agent"))
	items, err := adapter.Fetch(context.Background(), socialSource(server.URL), 5*time.Second)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// The id-less and text-less posts are skipped.
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}

	item := items[0]
	if item.NativeID != "tw-1001" {
		t.Errorf("Expected native ID 'tw-1001', got '%s'", item.NativeID)
	}
	if item.Title != "Sunset at the pier tonight" {
		t.Errorf("Expected first line as title, got '%s'", item.Title)
	}
	if item.Platform != "twitter" {
		t.Errorf("Expected platform 'twitter', got '%s'", item.Platform)
	}
	if item.MediaURL != "https://pbs.example.com/sunset.jpg" {
		t.Errorf("Expected image URL, got '%s'", item.MediaURL)
	}
	if item.PublishedAt.IsZero() {
		t.Error("Expected created_at to be parsed")
	}
}

func TestPostTitle(t *testing.T) {
	if got := postTitle("Short post"); got != "Short post" {
		t.Errorf("Expected 'Short post', got '%s'", got)
	}

	if got := postTitle("First line\nSecond line"); got != "First line" {
		t.Errorf("Expected 'First line', got '%s'", got)
	}

	long := strings.Repeat("a", 150)
	got := postTitle(long)
	if len(got) != 120 {
		t.Errorf("Expected 120-char title, got %d chars", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Expected ellipsis suffix, got '%s'", got)
	}

	thai := strings.Repeat("พัทยา", 30)
	got = postTitle(thai)
	if !utf8.ValidString(got) {
		t.Errorf("Expected valid UTF-8 after truncation, got %q", got)
	}
	if utf8.RuneCountInString(got) != 120 {
		t.Errorf("Expected 120-rune title, got %d runes", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Expected ellipsis suffix, got '%s'", got)
	}
}

func TestSocialAdapter_Fetch_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"posts": []}`))
	}))
	defer server.Close()

	adapter := NewSocialAdapter(NewFetcher(server.Client(), "test-agent"))
	items, err := adapter.Fetch(context.Background(), socialSource(server.URL), 5*time.Second)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected no items, got %d", len(items))
	}
}
