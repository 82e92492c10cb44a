package ledger

import (
	"sync"

	"github.com/google/uuid"
)

// Generator produces event ids.
//
// Ids must be globally unique across all time and all streams. Correctness
// does not require them to be time-sortable, but the production generator
// emits UUIDv7 so that id order roughly tracks append order.
type Generator interface {
	NewEventID() string
}

// UUIDv7Generator generates time-sortable UUIDv7 event ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so ids sort by
// creation time. Uses github.com/google/uuid for RFC 4122 compliant UUIDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewEventID creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) NewEventID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined event ids for testing.
//
// This enables deterministic test execution and golden trace comparison.
// Tests provide a known sequence of ids and verify exact output.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := ledger.NewFixedGenerator("e1", "e2", "e3")
//	gen.NewEventID() // "e1"
//	gen.NewEventID() // "e2"
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// NewEventID returns the next predetermined id.
//
// Panics if all ids have been consumed. Exhaustion in a test means the test
// appended more events than it declared, which should fail loudly.
func (g *FixedGenerator) NewEventID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all event ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
