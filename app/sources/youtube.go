package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/pattayaone/tidal/app/content"
)

// YouTubeAdapter fetches video listings from the YouTube Data API
// (search or playlistItems responses; both carry the same snippet shape).
type YouTubeAdapter struct {
	fetcher *Fetcher
}

func NewYouTubeAdapter(fetcher *Fetcher) *YouTubeAdapter {
	return &YouTubeAdapter{fetcher: fetcher}
}

type youtubeResponse struct {
	Items []youtubeItem `json:"items"`
}

type youtubeItem struct {
	ID      youtubeID      `json:"id"`
	Snippet youtubeSnippet `json:"snippet"`
}

// youtubeID is a string in playlistItems responses and an object in search
// responses; accept both.
type youtubeID struct {
	VideoID string
}

func (id *youtubeID) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		id.VideoID = plain
		return nil
	}

	var obj struct {
		VideoID string `json:"videoId"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	id.VideoID = obj.VideoID
	return nil
}

type youtubeSnippet struct {
	PublishedAt  time.Time  `json:"publishedAt"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ChannelTitle string     `json:"channelTitle"`
	ResourceID   *resource  `json:"resourceId"`
	Thumbnails   thumbnails `json:"thumbnails"`
}

type resource struct {
	VideoID string `json:"videoId"`
}

type thumbnails struct {
	High    *thumbnail `json:"high"`
	Medium  *thumbnail `json:"medium"`
	Default *thumbnail `json:"default"`
}

type thumbnail struct {
	URL string `json:"url"`
}

func (a *YouTubeAdapter) Fetch(ctx context.Context, src content.ConfigSource, timeout time.Duration) ([]content.RawItem, error) {
	data, err := a.fetcher.Get(ctx, src.URL, timeout)
	if err != nil {
		return nil, &SourceUnavailableError{Source: src.Name, Err: err}
	}

	var resp youtubeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &SourceUnavailableError{Source: src.Name, Err: fmt.Errorf("decode response: %w", err)}
	}

	items := make([]content.RawItem, 0, len(resp.Items))
	for _, item := range resp.Items {
		// playlistItems responses carry the video ID in snippet.resourceId;
		// the top-level id there is the playlist-item ID, not the video.
		videoID := ""
		if item.Snippet.ResourceID != nil {
			videoID = item.Snippet.ResourceID.VideoID
		}
		if videoID == "" {
			videoID = item.ID.VideoID
		}
		if videoID == "" || item.Snippet.Title == "" {
			continue
		}

		raw := content.RawItem{
			NativeID:    videoID,
			Title:       item.Snippet.Title,
			Summary:     item.Snippet.Description,
			Link:        "https://www.youtube.com/watch?v=" + videoID,
			Author:      item.Snippet.ChannelTitle,
			Platform:    "youtube",
			PublishedAt: item.Snippet.PublishedAt.UTC(),
		}

		if t := item.Snippet.Thumbnails.best(); t != "" {
			raw.MediaURL = t
			raw.MediaAlt = item.Snippet.Title
		}

		items = append(items, raw)
	}

	return items, nil
}

func (t thumbnails) best() string {
	for _, c := range []*thumbnail{t.High, t.Medium, t.Default} {
		if c != nil && c.URL != "" {
			return c.URL
		}
	}
	return ""
}
