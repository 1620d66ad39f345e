package testutil

import (
	"sync"
	"time"
)

// FixedClock is a settable wall clock for tests.
//
// The engine stamps created_at values and evaluates deadlines through
// its Clock; pinning it lets tests place deadlines precisely on either
// side of "now" and keeps golden snapshots byte-stable.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock pinned to the given instant.
func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

// Now returns the pinned instant.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the clock to a new instant.
func (c *FixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
