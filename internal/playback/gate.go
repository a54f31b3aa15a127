package playback

import (
	"sync"
	"time"
)

// Gate is a shared pause deadline consulted by the playback worker before
// playing a frame and during the pacing sleep. Concurrent pause requests
// combine via max, so overlapping pauses never add up; the deadline only
// grows, except for Reset during cleanup. The gate has its own lock,
// distinct from the manager's lifecycle lock, and the two are never held
// at the same time.
type Gate struct {
	mu    sync.Mutex
	until time.Time
}

// NewGate creates a gate with no active pause
func NewGate() *Gate {
	return &Gate{}
}

// PauseFor raises the deadline to max(current, now+d). Non-positive
// durations are a no-op.
func (g *Gate) PauseFor(d time.Duration) {
	if d <= 0 {
		return
	}

	until := time.Now().Add(d)

	g.mu.Lock()
	if until.After(g.until) {
		g.until = until
	}
	g.mu.Unlock()
}

// Remaining returns how long playback must stay suspended, or zero when
// the gate is clear
func (g *Gate) Remaining() time.Duration {
	g.mu.Lock()
	until := g.until
	g.mu.Unlock()

	if remaining := time.Until(until); remaining > 0 {
		return remaining
	}
	return 0
}

// Active reports whether a pause is currently in effect
func (g *Gate) Active() bool {
	return g.Remaining() > 0
}

// Reset clears any pending pause
func (g *Gate) Reset() {
	g.mu.Lock()
	g.until = time.Time{}
	g.mu.Unlock()
}
