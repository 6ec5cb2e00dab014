package content

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// trackingParams are query parameters stripped during URL canonicalization
// so the same article shared through different campaigns dedups to one key.
var trackingParams = map[string]bool{
	"fbclid":       true,
	"gclid":        true,
	"igshid":       true,
	"mc_cid":       true,
	"mc_eid":       true,
	"ref":          true,
	"utm_campaign": true,
	"utm_content":  true,
	"utm_medium":   true,
	"utm_source":   true,
	"utm_term":     true,
}

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Run maps a raw adapter item into a canonical record, or returns nil when
// the item lacks a usable dedup key or required fields. The returned record
// has no ID and no moderation status; those are assigned by the filter chain
// and the store.
func (n *Normalizer) Run(raw RawItem, src ConfigSource, collection string) *Record {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return nil
	}

	dedupKey := n.deriveDedupKey(raw, src)
	if dedupKey == "" {
		return nil
	}

	record := &Record{
		Collection:  collection,
		DedupKey:    dedupKey,
		Title:       title,
		Summary:     strings.TrimSpace(raw.Summary),
		Body:        raw.Body,
		Link:        raw.Link,
		SourceName:  src.Name,
		SourceType:  src.Type,
		Platform:    n.platform(raw, src),
		Author:      strings.TrimSpace(raw.Author),
		Category:    raw.Category,
		IsBreaking:  raw.IsBreaking,
		PublishedAt: raw.PublishedAt,
	}

	if record.Category == "" {
		record.Category = src.Category
	}
	if record.Author == "" {
		record.Author = src.Handle
	}
	if record.PublishedAt.IsZero() {
		record.PublishedAt = time.Now().UTC()
	}

	record.Media = n.extractMedia(raw)

	return record
}

// deriveDedupKey prefers a provider-native ID and falls back to the
// canonicalized item URL.
func (n *Normalizer) deriveDedupKey(raw RawItem, src ConfigSource) string {
	if raw.NativeID != "" {
		return src.Type + ":" + raw.NativeID
	}
	return CanonicalURL(raw.Link)
}

func (n *Normalizer) platform(raw RawItem, src ConfigSource) string {
	if raw.Platform != "" {
		return raw.Platform
	}
	if src.Platform != "" {
		return src.Platform
	}
	return src.Type
}

// extractMedia tries the adapter's structured media reference first, then
// falls back to scanning inline HTML for the first usable image. Relative
// image URLs are resolved against the item link's origin.
func (n *Normalizer) extractMedia(raw RawItem) *Media {
	if raw.MediaURL != "" {
		return &Media{URL: raw.MediaURL, Alt: raw.MediaAlt}
	}

	for _, html := range []string{raw.ContentHTML, raw.Summary} {
		if html == "" || !strings.Contains(html, "<") {
			continue
		}
		if u := firstImageURL(html, raw.Link); u != "" {
			return &Media{URL: u, Alt: raw.MediaAlt}
		}
	}

	return nil
}

func firstImageURL(html, baseLink string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, ok := s.Attr("src")
		if !ok || src == "" || strings.HasPrefix(src, "data:") {
			return true
		}
		found = resolveAgainst(src, baseLink)
		return found == ""
	})

	return found
}

func resolveAgainst(ref, baseLink string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if refURL.IsAbs() {
		return refURL.String()
	}
	if baseLink == "" {
		return ""
	}
	baseURL, err := url.Parse(baseLink)
	if err != nil || !baseURL.IsAbs() {
		return ""
	}
	return baseURL.ResolveReference(refURL).String()
}

// CanonicalURL normalizes an absolute URL into a stable dedup key: scheme
// and host lower-cased, tracking parameters and fragment removed, remaining
// query parameters sorted. Returns "" for relative or unparseable URLs.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ""
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		var keys []string
		for k := range q {
			if trackingParams[strings.ToLower(k)] {
				q.Del(k)
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var parts []string
		for _, k := range keys {
			for _, v := range q[k] {
				parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(parts, "&")
	}

	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String()
}
