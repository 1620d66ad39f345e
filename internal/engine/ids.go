package engine

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces entity IDs. The engine generates all IDs itself;
// the store never invents identity.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates time-sortable UUIDv7 IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so IDs sort by
// creation time, which keeps deterministic ORDER BY id tiebreaks aligned
// with insertion order.
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// NewID creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDGenerator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined IDs for testing.
//
// This enables deterministic test execution and golden snapshot
// comparison: tests provide a known sequence of IDs and verify exact
// output.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal
// mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns IDs in order.
//
// Example:
//
//	gen := NewFixedGenerator("id-1", "id-2", "id-3")
//	gen.NewID() // "id-1"
//	gen.NewID() // "id-2"
//	gen.NewID() // "id-3"
//	gen.NewID() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// NewID returns the next predetermined ID.
//
// Panics if all IDs have been consumed. This is a fail-fast approach to
// catch test misconfiguration (test created more entities than expected).
func (g *FixedGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
