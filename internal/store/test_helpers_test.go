package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chainlog/chainlog/internal/ledger"
)

// createTestStore creates a file-backed store in a temp dir for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testCandidate creates a candidate with minimal required fields.
func testCandidate(entity, key, name, appendKey, previousID string) ledger.Candidate {
	return ledger.Candidate{
		Entity:     entity,
		EntityKey:  key,
		EventName:  name,
		Payload:    []byte("{}"),
		AppendKey:  appendKey,
		PreviousID: previousID,
	}
}

// mustAppend appends a candidate or fails the test.
func mustAppend(t *testing.T, s *Store, c ledger.Candidate) ledger.Event {
	t.Helper()
	ev, err := s.Append(context.Background(), c)
	if err != nil {
		t.Fatalf("Append(%s/%s %s) failed: %v", c.Entity, c.EntityKey, c.EventName, err)
	}
	return ev
}

// seedGameStream appends a two-event stream and returns both events.
func seedGameStream(t *testing.T, s *Store) (ledger.Event, ledger.Event) {
	t.Helper()
	e1 := mustAppend(t, s, testCandidate("game", "2025-04-07", "game-started", "k1", ""))
	e2 := mustAppend(t, s, testCandidate("game", "2025-04-07", "move-played", "k2", e1.EventID))
	return e1, e2
}
