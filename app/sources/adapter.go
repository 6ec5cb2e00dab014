package sources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pattayaone/tidal/app/content"
)

// Adapter fetches raw candidate items from one external provider. Adapters
// skip individually malformed upstream entries and return an error only on
// total failure (network, auth, unparseable payload).
type Adapter interface {
	Fetch(ctx context.Context, src content.ConfigSource, timeout time.Duration) ([]content.RawItem, error)
}

// SourceUnavailableError marks a total adapter failure for one source. The
// orchestrator logs it and continues with the remaining sources; it is
// never masked with synthetic fallback data.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// Registry resolves a source type to its adapter. All adapters share one
// Fetcher so circuit breaker state is per upstream host, not per adapter.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(client *http.Client, userAgent string) *Registry {
	fetcher := NewFetcher(client, userAgent)

	return &Registry{
		adapters: map[string]Adapter{
			"rss":     NewRSSAdapter(fetcher),
			"youtube": NewYouTubeAdapter(fetcher),
			"social":  NewSocialAdapter(fetcher),
		},
	}
}

func (r *Registry) For(sourceType string) (Adapter, bool) {
	adapter, ok := r.adapters[sourceType]
	return adapter, ok
}
