package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/chainlog/chainlog/internal/ledger"
)

func TestReplay_EmptyLedger(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	events, err := s.Replay(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if events == nil {
		t.Error("Replay() returned nil, want empty slice")
	}
	if len(events) != 0 {
		t.Errorf("Replay() returned %d events, want 0", len(events))
	}
}

func TestReplay_CommitOrderAcrossStreams(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	// Interleave three streams; replay must return commit order, not
	// stream-grouped order.
	a1 := mustAppend(t, s, testCandidate("game", "A", "game-started", "a1", ""))
	o1 := mustAppend(t, s, testCandidate("order", "O1", "order-placed", "o1", ""))
	a2 := mustAppend(t, s, testCandidate("game", "A", "move-played", "a2", a1.EventID))
	o2 := mustAppend(t, s, testCandidate("order", "O1", "order-paid", "o2", o1.EventID))

	events, err := s.Replay(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}

	want := []string{a1.EventID, o1.EventID, a2.EventID, o2.EventID}
	if len(events) != len(want) {
		t.Fatalf("Replay() returned %d events, want %d", len(events), len(want))
	}
	for i, id := range want {
		if events[i].EventID != id {
			t.Errorf("events[%d].EventID = %q, want %q", i, events[i].EventID, id)
		}
	}

	// Deterministic: a fresh call reproduces the same result.
	again, err := s.Replay(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("second Replay() failed: %v", err)
	}
	for i := range events {
		if events[i].EventID != again[i].EventID || events[i].GlobalSeq != again[i].GlobalSeq {
			t.Errorf("replay not stable at index %d", i)
		}
	}
}

func TestReplay_FilterByEntityAndKey(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	e1, e2 := seedGameStream(t, s)
	mustAppend(t, s, testCandidate("order", "O1", "order-placed", "o1", ""))

	events, err := s.Replay(ctx, ledger.Filter{Entity: "game", EntityKey: "2025-04-07"})
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("filtered replay returned %d events, want 2", len(events))
	}
	if events[0].EventID != e1.EventID || events[1].EventID != e2.EventID {
		t.Errorf("filtered replay order = [%s %s], want [%s %s]",
			events[0].EventID, events[1].EventID, e1.EventID, e2.EventID)
	}
}

func TestReplay_FilterByEventNames(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	e1 := mustAppend(t, s, testCandidate("game", "A", "game-started", "k1", ""))
	e2 := mustAppend(t, s, testCandidate("game", "A", "move-played", "k2", e1.EventID))
	e3 := mustAppend(t, s, testCandidate("game", "A", "move-played", "k3", e2.EventID))
	mustAppend(t, s, testCandidate("game", "A", "game-ended", "k4", e3.EventID))

	events, err := s.Replay(ctx, ledger.Filter{EventNames: []string{"move-played", "game-ended"}})
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("name-filtered replay returned %d events, want 3", len(events))
	}
	// Filtering never reorders the survivors.
	for i := 1; i < len(events); i++ {
		if events[i].GlobalSeq <= events[i-1].GlobalSeq {
			t.Errorf("filtered replay out of order at index %d", i)
		}
	}
}

func TestReplayAfter_ReturnsStrictlyLater(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	e1, e2 := seedGameStream(t, s)
	e3 := mustAppend(t, s, testCandidate("game", "2025-04-07", "game-ended", "k3", e2.EventID))

	events, err := s.ReplayAfter(ctx, e1.EventID, ledger.Filter{})
	if err != nil {
		t.Fatalf("ReplayAfter() failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("ReplayAfter returned %d events, want 2", len(events))
	}
	if events[0].EventID != e2.EventID || events[1].EventID != e3.EventID {
		t.Errorf("ReplayAfter order wrong: got [%s %s]", events[0].EventID, events[1].EventID)
	}
}

func TestReplayAfter_UnknownCursor(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	seedGameStream(t, s)

	_, err := s.ReplayAfter(ctx, "fabricated", ledger.Filter{})
	if !ledger.IsUnknownCursor(err) {
		t.Fatalf("expected UNKNOWN_CURSOR, got %v", err)
	}
}

// Catch-up completeness: replay-up-to-cursor plus replay-after-cursor is
// exactly the full replay, no gaps, no duplicates.
func TestReplayAfter_CatchUpCompleteness(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	e1, e2 := seedGameStream(t, s)
	o1 := mustAppend(t, s, testCandidate("order", "O1", "order-placed", "o1", ""))
	mustAppend(t, s, testCandidate("order", "O1", "order-paid", "o2", o1.EventID))

	full, err := s.Replay(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}

	after, err := s.ReplayAfter(ctx, e2.EventID, ledger.Filter{})
	if err != nil {
		t.Fatalf("ReplayAfter() failed: %v", err)
	}

	var upto []ledger.Event
	for _, ev := range full {
		if ev.GlobalSeq <= e2.GlobalSeq {
			upto = append(upto, ev)
		}
	}

	union := append(append([]ledger.Event{}, upto...), after...)
	if len(union) != len(full) {
		t.Fatalf("union has %d events, full replay has %d", len(union), len(full))
	}
	for i := range full {
		if union[i].EventID != full[i].EventID {
			t.Errorf("union[%d] = %q, full[%d] = %q", i, union[i].EventID, i, full[i].EventID)
		}
	}
	_ = e1
}

// The last row of a filtered replay is not the stream tail when the filter
// hid later events; LatestEventID is the dedicated tail query.
func TestLatestEventID_DisagreesWithFilteredReplay(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	e1 := mustAppend(t, s, testCandidate("game", "A", "game-started", "k1", ""))
	e2 := mustAppend(t, s, testCandidate("game", "A", "move-played", "k2", e1.EventID))

	filtered, err := s.Replay(ctx, ledger.Filter{Entity: "game", EntityKey: "A", EventNames: []string{"game-started"}})
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].EventID != e1.EventID {
		t.Fatalf("filter setup wrong: %v", filtered)
	}

	tail, ok, err := s.LatestEventID(ctx, "game", "A")
	if err != nil {
		t.Fatalf("LatestEventID() failed: %v", err)
	}
	if !ok {
		t.Fatal("LatestEventID() found no stream")
	}
	if tail != e2.EventID {
		t.Errorf("tail = %q, want %q (not the filtered last row %q)", tail, e2.EventID, e1.EventID)
	}
}

func TestLatestEventID_MissingStream(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, ok, err := s.LatestEventID(ctx, "game", "nope")
	if err != nil {
		t.Fatalf("LatestEventID() failed: %v", err)
	}
	if ok {
		t.Error("LatestEventID() reported a tail for a missing stream")
	}
}

func TestGetEvent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	e1, _ := seedGameStream(t, s)

	got, err := s.GetEvent(ctx, e1.EventID)
	if err != nil {
		t.Fatalf("GetEvent() failed: %v", err)
	}
	if got.EventID != e1.EventID || got.Entity != "game" || got.EventName != "game-started" {
		t.Errorf("GetEvent() = %+v, want %+v", got, e1)
	}
	if !got.CreatedAt.Equal(e1.CreatedAt) {
		t.Errorf("CreatedAt roundtrip: got %v, want %v", got.CreatedAt, e1.CreatedAt)
	}

	_, err = s.GetEvent(ctx, "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetEvent(missing) error = %v, want sql.ErrNoRows", err)
	}
}

func TestListStreams(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	streams, err := s.ListStreams(ctx)
	if err != nil {
		t.Fatalf("ListStreams() on empty ledger failed: %v", err)
	}
	if streams == nil || len(streams) != 0 {
		t.Errorf("empty ledger ListStreams = %v, want empty slice", streams)
	}

	seedGameStream(t, s)
	mustAppend(t, s, testCandidate("order", "O1", "order-placed", "o1", ""))

	streams, err = s.ListStreams(ctx)
	if err != nil {
		t.Fatalf("ListStreams() failed: %v", err)
	}
	want := []ledger.StreamID{
		{Entity: "game", EntityKey: "2025-04-07"},
		{Entity: "order", EntityKey: "O1"},
	}
	if len(streams) != len(want) {
		t.Fatalf("ListStreams() returned %d streams, want %d", len(streams), len(want))
	}
	for i := range want {
		if streams[i] != want[i] {
			t.Errorf("streams[%d] = %v, want %v", i, streams[i], want[i])
		}
	}
}

func TestReplay_NormalizesFilterIdentity(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	mustAppend(t, s, testCandidate("café", "K", "opened", "k1", ""))

	events, err := s.Replay(ctx, ledger.Filter{Entity: "café"})
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("NFD-spelled filter matched %d events, want 1", len(events))
	}
}
