package ledger

import (
	"errors"
	"fmt"
)

// Candidate field validation errors. These indicate malformed input, not a
// concurrency conflict, and are reported before any snapshot is consulted.
var (
	ErrMissingEntity    = errors.New("entity must not be empty")
	ErrMissingEntityKey = errors.New("entity_key must not be empty")
	ErrMissingEventName = errors.New("event_name must not be empty")
	ErrMissingAppendKey = errors.New("append_key must not be empty")
)

// StreamSnapshot carries the facts ValidateAppend needs, read from the
// ledger within the same transaction that will perform the insert.
//
// The snapshot is advisory: it lets the Guard produce a precise conflict on
// the fast path, but the storage layer's unique constraints remain the final
// authority against races between snapshot and insert.
type StreamSnapshot struct {
	// StreamExists is true if any event exists for the candidate's stream.
	StreamExists bool

	// AppendKeyExists is true if the candidate's append_key is already
	// committed anywhere in the ledger.
	AppendKeyExists bool

	// PreviousFound is true if the candidate's previous_id names an event
	// of the candidate's stream. Meaningless when PreviousID is empty.
	PreviousFound bool

	// PreviousSeq is the global sequence of the referenced previous event,
	// when PreviousFound.
	PreviousSeq int64

	// MaxSeq is the highest global sequence of any event in the candidate's
	// stream, or zero if the stream is empty.
	MaxSeq int64
}

// ValidateCandidate checks the caller-supplied fields of c. It does not
// consult the ledger.
func ValidateCandidate(c Candidate) error {
	if c.Entity == "" {
		return ErrMissingEntity
	}
	if c.EntityKey == "" {
		return ErrMissingEntityKey
	}
	if c.EventName == "" {
		return ErrMissingEventName
	}
	if c.AppendKey == "" {
		return ErrMissingAppendKey
	}
	return nil
}

// ValidateAppend decides whether c may be appended given the snapshot.
//
// Pure check function: no side effects, no I/O. Returns nil if the append
// may proceed, otherwise exactly one ConflictError:
//
//  1. Empty previous_id against a non-empty stream: FIRST_EVENT_CONFLICT.
//  2. previous_id not found in the stream: UNKNOWN_PREVIOUS.
//  3. previous_id found but outrun by a later event: STALE_PREVIOUS.
//  4. append_key already committed: DUPLICATE_APPEND_KEY.
//
// When a candidate violates both a chain rule and the append-key rule, the
// append-key rule wins: that is the shape of an idempotent retry of an
// already committed event (its own row has outrun its previous_id), and the
// caller must learn "already applied", not "conflict".
func ValidateAppend(c Candidate, snap StreamSnapshot) error {
	if err := ValidateCandidate(c); err != nil {
		return fmt.Errorf("invalid candidate: %w", err)
	}

	if c.PreviousID == "" {
		if snap.StreamExists {
			if snap.AppendKeyExists {
				return NewDuplicateAppendKeyError(c.AppendKey)
			}
			return NewFirstEventConflictError(c.Entity, c.EntityKey)
		}
	} else {
		if !snap.PreviousFound {
			return NewUnknownPreviousError(c.Entity, c.EntityKey, c.PreviousID)
		}
		if snap.MaxSeq > snap.PreviousSeq {
			if snap.AppendKeyExists {
				return NewDuplicateAppendKeyError(c.AppendKey)
			}
			return NewStalePreviousError(c.Entity, c.EntityKey, c.PreviousID)
		}
	}

	if snap.AppendKeyExists {
		return NewDuplicateAppendKeyError(c.AppendKey)
	}
	return nil
}
