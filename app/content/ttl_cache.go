package content

import (
	"sync"
	"time"
)

// TTLCache holds a single value for a bounded duration, with an injected
// clock so tests can advance time deterministically. The ingestion rule
// snapshot is cached this way: long enough to cover one cycle, short
// enough that operator edits are picked up by the next one.
type TTLCache[T any] struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
	value T
	set   bool
	until time.Time
}

func NewTTLCache[T any](ttl time.Duration, now func() time.Time) *TTLCache[T] {
	if now == nil {
		now = time.Now
	}
	return &TTLCache[T]{ttl: ttl, now: now}
}

// Get returns the cached value when it is still fresh, otherwise calls
// load, caches its result and returns it. A load error is returned without
// disturbing any previously cached value.
func (c *TTLCache[T]) Get(load func() (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.set && c.now().Before(c.until) {
		return c.value, nil
	}

	value, err := load()
	if err != nil {
		var zero T
		return zero, err
	}

	c.value = value
	c.set = true
	c.until = c.now().Add(c.ttl)
	return value, nil
}

// Invalidate discards the cached value so the next Get reloads.
func (c *TTLCache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set = false
}
