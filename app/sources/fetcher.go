package sources

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

const maxResponseBytes = 10 << 20

// Fetcher performs bounded HTTP GETs for all adapters, with one circuit
// breaker per upstream host so a flapping provider is backed off without
// affecting the others.
type Fetcher struct {
	client    *http.Client
	userAgent string
	mu        sync.Mutex
	breakers  map[string]*gobreaker.CircuitBreaker[[]byte]
}

func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		breakers:  make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
}

func (f *Fetcher) Get(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	host := hostOf(rawURL)
	breaker := f.breakerFor(host)

	return breaker.Execute(func() ([]byte, error) {
		return f.get(ctx, rawURL, timeout)
	})
}

func (f *Fetcher) get(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func (f *Fetcher) breakerFor(host string) *gobreaker.CircuitBreaker[[]byte] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if breaker, ok := f.breakers[host]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Interval:    2 * time.Minute,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "host", name,
				"from", from.String(), "to", to.String())
		},
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](settings)
	f.breakers[host] = breaker
	return breaker
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
