package pipeline

import (
	"sync"
)

// cycleGuard is the per-collection re-entrancy gate. A trigger for a
// collection whose cycle is mid-flight is a no-op. Release runs on every
// exit path of a cycle so a mid-cycle panic or error can never leave a
// collection permanently wedged.
type cycleGuard struct {
	mu      sync.Mutex
	running map[string]bool
}

func newCycleGuard() *cycleGuard {
	return &cycleGuard{running: make(map[string]bool)}
}

// tryAcquire reports whether the caller now owns the cycle for collection.
func (g *cycleGuard) tryAcquire(collection string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running[collection] {
		return false
	}
	g.running[collection] = true
	return true
}

func (g *cycleGuard) release(collection string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, collection)
}
