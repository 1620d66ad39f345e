package testutil

import (
	"fmt"
	"sync"
)

// SeqIDGenerator produces "prefix-1", "prefix-2", ... in order.
//
// Unlike engine.FixedGenerator it never exhausts, which suits harness
// scenarios that don't know up front how many entities they create,
// while still keeping IDs deterministic for golden comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SeqIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSeqIDGenerator creates a sequential generator with the given
// prefix.
func NewSeqIDGenerator(prefix string) *SeqIDGenerator {
	return &SeqIDGenerator{prefix: prefix}
}

// NewID returns the next sequential ID.
func (g *SeqIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
