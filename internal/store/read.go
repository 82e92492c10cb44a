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

// Replay returns every event matching the filter, ordered by global_seq
// ascending. This is the one true order; the per-stream previous_id chain is
// a redundant confirmation of it, never an alternative ordering source.
//
// A fresh call always reproduces the same result for the same ledger state
// and filter. Returns an empty slice (not nil) when nothing matches.
func (s *Store) Replay(ctx context.Context, f ledger.Filter) ([]ledger.Event, error) {
	return s.replayFrom(ctx, 0, f)
}

// ReplayAfter returns every event with global_seq strictly greater than the
// cursor event's, ordered and filtered exactly like Replay.
//
// Fails with an UNKNOWN_CURSOR conflict if the cursor id does not exist in
// the ledger; silently returning everything or nothing would corrupt
// at-least-once catch-up consumers.
//
// Note for callers doing global catch-up: the last event id seen in a
// filtered replay is not a safe cursor, because unfiltered events may have
// been appended after it. Track cursors from unfiltered reads. For
// per-stream appends, take previous_id from LatestEventID, never from a
// filtered replay's last row.
func (s *Store) ReplayAfter(ctx context.Context, cursorEventID string, f ledger.Filter) ([]ledger.Event, error) {
	var afterSeq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT global_seq FROM events WHERE event_id = ?
	`, cursorEventID).Scan(&afterSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.NewUnknownCursorError(cursorEventID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve cursor: %w", err)
	}

	return s.replayFrom(ctx, afterSeq, f)
}

// replayFrom returns filtered events with global_seq > afterSeq.
func (s *Store) replayFrom(ctx context.Context, afterSeq int64, f ledger.Filter) ([]ledger.Event, error) {
	f = ledger.NormalizeFilter(f)

	var (
		where = []string{"global_seq > ?"}
		args  = []any{afterSeq}
	)
	if f.Entity != "" {
		where = append(where, "entity = ?")
		args = append(args, f.Entity)
	}
	if f.EntityKey != "" {
		where = append(where, "entity_key = ?")
		args = append(args, f.EntityKey)
	}
	if len(f.EventNames) > 0 {
		placeholders := strings.Repeat("?,", len(f.EventNames))
		where = append(where, "event_name IN ("+placeholders[:len(placeholders)-1]+")")
		for _, name := range f.EventNames {
			args = append(args, name)
		}
	}

	query := `
		SELECT global_seq, event_id, entity, entity_key, event_name,
		       payload, append_key, previous_id, created_at
		FROM events
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY global_seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []ledger.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	// Return empty slice instead of nil
	if events == nil {
		events = []ledger.Event{}
	}

	return events, nil
}

// LatestEventID returns the event id of the current tail of a stream, i.e.
// the correct previous_id for the next append to that stream. The boolean is
// false if the stream has no events.
//
// This is a dedicated query: the last row of a filtered replay is not the
// stream tail whenever the filter hid later events.
func (s *Store) LatestEventID(ctx context.Context, entity, entityKey string) (string, bool, error) {
	entity = ledger.NormalizeIdentity(entity)
	entityKey = ledger.NormalizeIdentity(entityKey)

	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT event_id FROM events
		WHERE entity = ? AND entity_key = ?
		ORDER BY global_seq DESC
		LIMIT 1
	`, entity, entityKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("latest event id: %w", err)
	}
	return id, true, nil
}

// GetEvent retrieves a single event by its id.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetEvent(ctx context.Context, eventID string) (ledger.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT global_seq, event_id, entity, entity_key, event_name,
		       payload, append_key, previous_id, created_at
		FROM events
		WHERE event_id = ?
	`, eventID)

	return scanEventRow(row)
}

// ListStreams returns the identity of every stream in the ledger, ordered by
// entity then entity_key for deterministic output.
func (s *Store) ListStreams(ctx context.Context) ([]ledger.StreamID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT entity, entity_key FROM events
		ORDER BY entity, entity_key
	`)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	defer rows.Close()

	var streams []ledger.StreamID
	for rows.Next() {
		var sid ledger.StreamID
		if err := rows.Scan(&sid.Entity, &sid.EntityKey); err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		streams = append(streams, sid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate streams: %w", err)
	}

	if streams == nil {
		streams = []ledger.StreamID{}
	}

	return streams, nil
}

// scanner abstracts *sql.Row and *sql.Rows for the event scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (ledger.Event, error) {
	var (
		ev        ledger.Event
		previous  sql.NullString
		createdAt string
	)
	if err := sc.Scan(
		&ev.GlobalSeq, &ev.EventID, &ev.Entity, &ev.EntityKey, &ev.EventName,
		&ev.Payload, &ev.AppendKey, &previous, &createdAt,
	); err != nil {
		return ledger.Event{}, fmt.Errorf("scan event: %w", err)
	}

	if previous.Valid {
		ev.PreviousID = previous.String
	}

	ts, err := time.Parse(createdAtFormat, createdAt)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("parse created_at: %w", err)
	}
	ev.CreatedAt = ts

	if ev.Payload == nil {
		ev.Payload = []byte{}
	}

	return ev, nil
}

func scanEventRow(row *sql.Row) (ledger.Event, error) {
	ev, err := scanEvent(row)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return ledger.Event{}, sql.ErrNoRows
	}
	return ev, err
}
