package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chainlog/chainlog/internal/ledger"
)

// createdAtFormat is the layout for created_at storage and parsing.
const createdAtFormat = time.RFC3339Nano

// Append runs the append protocol for a single candidate event.
//
// The whole sequence runs in one transaction: read the stream snapshot, run
// the Guard, insert with a fresh event id and the next global_seq. Two
// concurrent appends to the same stream cannot both succeed; the loser gets
// the same conflict error the Guard would have produced, either from the
// Guard's snapshot check or from the unique-constraint backstop when another
// writer commits between snapshot and insert.
//
// On success the persisted event is returned; its EventID is the
// previous_id for the caller's next append to the same stream.
func (s *Store) Append(ctx context.Context, c ledger.Candidate) (ledger.Event, error) {
	c = ledger.NormalizeCandidate(c)
	if err := ledger.ValidateCandidate(c); err != nil {
		return ledger.Event{}, fmt.Errorf("append: %w", err)
	}
	if c.Payload == nil {
		// Ledger payloads are never null; an absent payload is stored empty.
		c.Payload = []byte{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("append: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	snap, err := readStreamSnapshot(ctx, tx, c)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("append: %w", err)
	}

	// Guard errors propagate verbatim; callers dispatch on the conflict code.
	if err := ledger.ValidateAppend(c, snap); err != nil {
		return ledger.Event{}, err
	}

	ev := ledger.Event{
		EventID:    s.ids.NewEventID(),
		Entity:     c.Entity,
		EntityKey:  c.EntityKey,
		EventName:  c.EventName,
		Payload:    c.Payload,
		AppendKey:  c.AppendKey,
		PreviousID: c.PreviousID,
		CreatedAt:  s.now(),
	}

	var previous any
	if ev.PreviousID != "" {
		previous = ev.PreviousID
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO events
		(event_id, entity, entity_key, event_name, payload, append_key, previous_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.EventID,
		ev.Entity,
		ev.EntityKey,
		ev.EventName,
		ev.Payload,
		ev.AppendKey,
		previous,
		ev.CreatedAt.Format(createdAtFormat),
	)
	if err != nil {
		return ledger.Event{}, translateInsertError(err, c)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return ledger.Event{}, fmt.Errorf("append: last insert id: %w", err)
	}
	ev.GlobalSeq = seq

	if err := tx.Commit(); err != nil {
		return ledger.Event{}, fmt.Errorf("append: commit: %w", err)
	}

	return ev, nil
}

// readStreamSnapshot gathers the facts the Guard needs, inside the append
// transaction so the decision and the insert see the same ledger state.
func readStreamSnapshot(ctx context.Context, tx *sql.Tx, c ledger.Candidate) (ledger.StreamSnapshot, error) {
	var snap ledger.StreamSnapshot

	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM events WHERE append_key = ?)
	`, c.AppendKey).Scan(&snap.AppendKeyExists)
	if err != nil {
		return snap, fmt.Errorf("check append_key: %w", err)
	}

	var count int64
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(global_seq), 0)
		FROM events
		WHERE entity = ? AND entity_key = ?
	`, c.Entity, c.EntityKey).Scan(&count, &snap.MaxSeq)
	if err != nil {
		return snap, fmt.Errorf("read stream head: %w", err)
	}
	snap.StreamExists = count > 0

	if c.PreviousID != "" {
		err = tx.QueryRowContext(ctx, `
			SELECT global_seq FROM events
			WHERE event_id = ? AND entity = ? AND entity_key = ?
		`, c.PreviousID, c.Entity, c.EntityKey).Scan(&snap.PreviousSeq)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			snap.PreviousFound = false
		case err != nil:
			return snap, fmt.Errorf("resolve previous_id: %w", err)
		default:
			snap.PreviousFound = true
		}
	}

	return snap, nil
}

// translateInsertError maps storage-level constraint violations onto the
// conflict errors the Guard would have produced. This is the backstop for
// races the snapshot check cannot close against writers on other
// connections or processes.
//
// SQLite reports unique violations by column list, not index name:
// "UNIQUE constraint failed: events.append_key", "... events.previous_id",
// and "... events.entity, events.entity_key" for the partial root index.
// The append_key case stays first so a retried command reports
// DUPLICATE_APPEND_KEY even when it would also have lost a chain race.
func translateInsertError(err error, c ledger.Candidate) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "events.append_key"):
		return ledger.NewDuplicateAppendKeyError(c.AppendKey)
	case strings.Contains(msg, "events.previous_id"):
		// Another writer already extended this tail.
		return ledger.NewStalePreviousError(c.Entity, c.EntityKey, c.PreviousID)
	case strings.Contains(msg, "events.entity, events.entity_key"):
		return ledger.NewFirstEventConflictError(c.Entity, c.EntityKey)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return ledger.NewUnknownPreviousError(c.Entity, c.EntityKey, c.PreviousID)
	}
	return fmt.Errorf("append: insert: %w", err)
}
