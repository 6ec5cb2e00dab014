package sources

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pattayaone/tidal/app/content"
)

// RSSAdapter fetches RSS/Atom feeds. Items without a title or link are
// skipped; enclosure and media:content images are surfaced as structured
// media so the normalizer only falls back to HTML scanning when needed.
type RSSAdapter struct {
	fetcher *Fetcher
	parser  *gofeed.Parser
}

func NewRSSAdapter(fetcher *Fetcher) *RSSAdapter {
	return &RSSAdapter{
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
	}
}

func (a *RSSAdapter) Fetch(ctx context.Context, src content.ConfigSource, timeout time.Duration) ([]content.RawItem, error) {
	data, err := a.fetcher.Get(ctx, src.URL, timeout)
	if err != nil {
		return nil, &SourceUnavailableError{Source: src.Name, Err: err}
	}

	feed, err := a.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &SourceUnavailableError{Source: src.Name, Err: err}
	}

	items := make([]content.RawItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || strings.TrimSpace(item.Title) == "" || item.Link == "" {
			continue
		}

		raw := content.RawItem{
			Title:       item.Title,
			Summary:     item.Description,
			Link:        item.Link,
			ContentHTML: item.Content,
			Author:      firstAuthor(item),
		}

		// RSS GUIDs are frequently just the link; only treat a distinct
		// GUID as a provider-native ID.
		if item.GUID != "" && item.GUID != item.Link {
			raw.NativeID = item.GUID
		}

		if item.PublishedParsed != nil {
			raw.PublishedAt = item.PublishedParsed.UTC()
		}

		if len(item.Categories) > 0 {
			raw.Category = item.Categories[0]
		}

		raw.MediaURL = extractImage(item)

		items = append(items, raw)
	}

	return items, nil
}

func firstAuthor(item *gofeed.Item) string {
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		if item.Authors[0].Name != "" {
			return item.Authors[0].Name
		}
		return item.Authors[0].Email
	}
	if item.Author != nil {
		if item.Author.Name != "" {
			return item.Author.Name
		}
		return item.Author.Email
	}
	return ""
}

// extractImage checks structured fields in order: feed image, enclosures,
// media:content extension.
func extractImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}

	if media, ok := item.Extensions["media"]; ok {
		for _, ext := range media["content"] {
			if url, ok := ext.Attrs["url"]; ok && url != "" {
				return url
			}
		}
		for _, ext := range media["thumbnail"] {
			if url, ok := ext.Attrs["url"]; ok && url != "" {
				return url
			}
		}
	}

	return ""
}
