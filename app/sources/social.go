package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/pattayaone/tidal/app/content"
)

// SocialAdapter fetches posts from the social aggregation API, a JSON
// endpoint merging Twitter/Instagram-style posts into one envelope.
type SocialAdapter struct {
	fetcher *Fetcher
}

func NewSocialAdapter(fetcher *Fetcher) *SocialAdapter {
	return &SocialAdapter{fetcher: fetcher}
}

type socialResponse struct {
	Posts []socialPost `json:"posts"`
}

type socialPost struct {
	ID        string `json:"id"`
	Platform  string `json:"platform"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	URL       string `json:"url"`
	ImageURL  string `json:"image_url"`
	CreatedAt string `json:"created_at"`
}

func (a *SocialAdapter) Fetch(ctx context.Context, src content.ConfigSource, timeout time.Duration) ([]content.RawItem, error) {
	data, err := a.fetcher.Get(ctx, src.URL, timeout)
	if err != nil {
		return nil, &SourceUnavailableError{Source: src.Name, Err: err}
	}

	var resp socialResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &SourceUnavailableError{Source: src.Name, Err: fmt.Errorf("decode response: %w", err)}
	}

	items := make([]content.RawItem, 0, len(resp.Posts))
	for _, post := range resp.Posts {
		text := strings.TrimSpace(post.Text)
		if post.ID == "" || text == "" {
			continue
		}

		raw := content.RawItem{
			NativeID: post.ID,
			Title:    postTitle(text),
			Summary:  text,
			Link:     post.URL,
			Author:   post.Author,
			Platform: post.Platform,
			MediaURL: post.ImageURL,
		}

		if post.CreatedAt != "" {
			if t, err := time.Parse(time.RFC3339, post.CreatedAt); err == nil {
				raw.PublishedAt = t.UTC()
			}
		}

		items = append(items, raw)
	}

	return items, nil
}

// postTitle derives a display title from the first line of the post text.
func postTitle(text string) string {
	if i := strings.IndexByte(text, '\n'); i > 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	// Truncate on rune boundaries; Thai-language posts are multi-byte.
	if runes := []rune(text); len(runes) > 120 {
		text = string(runes[:117]) + "..."
	}
	return text
}
