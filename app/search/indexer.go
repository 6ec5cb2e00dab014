package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/pattayaone/tidal/app/content"
)

// Indexer is the write-only search index sink. Calls are fire-and-forget
// from the pipeline's perspective: failures are logged by the caller and
// never fail an ingestion cycle.
type Indexer interface {
	Upsert(ctx context.Context, record *content.Record) error
	Remove(ctx context.Context, collection, id string) error
}

// HTTPIndexer pushes records to a JSON search index endpoint.
type HTTPIndexer struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPIndexer(baseURL, apiKey string) *HTTPIndexer {
	return &HTTPIndexer{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

var _ Indexer = (*HTTPIndexer)(nil)

type indexDocument struct {
	ObjectID    string `json:"objectID"`
	Collection  string `json:"collection"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Link        string `json:"link"`
	SourceName  string `json:"source_name"`
	Category    string `json:"category"`
	MediaURL    string `json:"media_url,omitempty"`
	PublishedAt string `json:"published_at"`
}

func (i *HTTPIndexer) Upsert(ctx context.Context, record *content.Record) error {
	doc := indexDocument{
		ObjectID:    record.ID,
		Collection:  record.Collection,
		Title:       record.Title,
		Summary:     record.Summary,
		Link:        record.Link,
		SourceName:  record.SourceName,
		Category:    record.Category,
		PublishedAt: record.PublishedAt.UTC().Format(time.RFC3339),
	}
	if record.Media != nil {
		doc.MediaURL = record.Media.URL
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal index document: %w", err)
	}

	url := fmt.Sprintf("%s/indexes/%s/documents/%s", i.baseURL, record.Collection, record.ID)
	return i.send(ctx, http.MethodPut, url, payload)
}

func (i *HTTPIndexer) Remove(ctx context.Context, collection, id string) error {
	url := fmt.Sprintf("%s/indexes/%s/documents/%s", i.baseURL, collection, id)
	return i.send(ctx, http.MethodDelete, url, nil)
}

func (i *HTTPIndexer) send(ctx context.Context, method, url string, payload []byte) error {
	var body *bytes.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if i.apiKey != "" {
		req.Header.Set("X-API-Key", i.apiKey)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("index request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("index request failed: %d %s", resp.StatusCode, resp.Status)
	}

	return nil
}

// Noop is used when no search index is configured.
type Noop struct{}

var _ Indexer = Noop{}

func (Noop) Upsert(context.Context, *content.Record) error { return nil }

func (Noop) Remove(context.Context, string, string) error { return nil }
