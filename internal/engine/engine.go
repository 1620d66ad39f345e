package engine

import (
	"log/slog"
	"time"

	"github.com/roach88/askflow/internal/store"
)

// Clock supplies the current time. The deadline sweep and all created_at
// stamps go through it so tests can run against a fixed instant.
type Clock interface {
	Now() time.Time
}

// systemClock is the production clock.
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Engine executes the question/answer workflow against a single store.
//
// An Engine is safe for concurrent use: it holds no mutable state of its
// own, and conflicting writers serialize through the store's
// transactions.
type Engine struct {
	store *store.Store
	ids   IDGenerator
	clock Clock
	log   *slog.Logger
}

// New creates an engine. ids, clock, and logger may be nil, in which
// case UUID generation, the system clock, and slog.Default are used.
func New(st *store.Store, ids IDGenerator, clock Clock, logger *slog.Logger) *Engine {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, ids: ids, clock: clock, log: logger}
}
