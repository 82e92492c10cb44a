package ledger

import (
	"errors"
	"fmt"
)

// ConflictError represents an append or cursor validation failure.
//
// Every conflict kind is independently distinguishable because the caller's
// recovery action differs:
//   - StalePrevious: re-replay the stream tail and retry. Transient.
//   - DuplicateAppendKey: the write is already durable; treat as success.
//   - FirstEventConflict / UnknownPrevious: caller logic bug, not transient.
//   - UnknownCursor: fabricated or never-committed cursor id.
type ConflictError struct {
	// Code identifies the conflict category.
	Code ConflictCode

	// Message is a human-readable description.
	Message string

	// Entity and EntityKey identify the affected stream, when known.
	Entity    string
	EntityKey string

	// PreviousID is the backward reference that failed validation,
	// for UNKNOWN_PREVIOUS and STALE_PREVIOUS.
	PreviousID string

	// AppendKey is the idempotency token, for DUPLICATE_APPEND_KEY.
	AppendKey string
}

// ConflictCode categorizes conflict errors.
type ConflictCode string

const (
	// CodeFirstEventConflict indicates an attempt to start a stream that
	// already has a first event.
	CodeFirstEventConflict ConflictCode = "FIRST_EVENT_CONFLICT"

	// CodeUnknownPrevious indicates a previous_id that does not belong to
	// the target stream.
	CodeUnknownPrevious ConflictCode = "UNKNOWN_PREVIOUS"

	// CodeStalePrevious indicates a previous_id that is no longer the
	// stream's latest event: a concurrent writer won the race.
	CodeStalePrevious ConflictCode = "STALE_PREVIOUS"

	// CodeDuplicateAppendKey indicates the append_key was already committed.
	CodeDuplicateAppendKey ConflictCode = "DUPLICATE_APPEND_KEY"

	// CodeUnknownCursor indicates a replay cursor id absent from the ledger.
	CodeUnknownCursor ConflictCode = "UNKNOWN_CURSOR"
)

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.Entity != "" && e.EntityKey != "" {
		return fmt.Sprintf("%s: %s (stream=%s/%s)", e.Code, e.Message, e.Entity, e.EntityKey)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewFirstEventConflictError creates a ConflictError for a duplicate stream root.
func NewFirstEventConflictError(entity, entityKey string) *ConflictError {
	return &ConflictError{
		Code:      CodeFirstEventConflict,
		Message:   "stream already has a first event",
		Entity:    entity,
		EntityKey: entityKey,
	}
}

// NewUnknownPreviousError creates a ConflictError for a previous_id that is
// not an event of the target stream.
func NewUnknownPreviousError(entity, entityKey, previousID string) *ConflictError {
	return &ConflictError{
		Code:       CodeUnknownPrevious,
		Message:    fmt.Sprintf("previous_id %q is not an event of this stream", previousID),
		Entity:     entity,
		EntityKey:  entityKey,
		PreviousID: previousID,
	}
}

// NewStalePreviousError creates a ConflictError for a lost-update race.
func NewStalePreviousError(entity, entityKey, previousID string) *ConflictError {
	return &ConflictError{
		Code:       CodeStalePrevious,
		Message:    fmt.Sprintf("previous_id %q is no longer the stream tail", previousID),
		Entity:     entity,
		EntityKey:  entityKey,
		PreviousID: previousID,
	}
}

// NewDuplicateAppendKeyError creates a ConflictError for a reused append_key.
func NewDuplicateAppendKeyError(appendKey string) *ConflictError {
	return &ConflictError{
		Code:      CodeDuplicateAppendKey,
		Message:   fmt.Sprintf("append_key %q was already committed", appendKey),
		AppendKey: appendKey,
	}
}

// NewUnknownCursorError creates a ConflictError for a cursor id that does
// not exist in the ledger.
func NewUnknownCursorError(cursor string) *ConflictError {
	return &ConflictError{
		Code:    CodeUnknownCursor,
		Message: fmt.Sprintf("cursor event id %q does not exist", cursor),
	}
}

// IsFirstEventConflict reports whether err is a first-event conflict.
// Uses errors.As to handle wrapped errors.
func IsFirstEventConflict(err error) bool { return hasCode(err, CodeFirstEventConflict) }

// IsUnknownPrevious reports whether err is an unknown-previous conflict.
func IsUnknownPrevious(err error) bool { return hasCode(err, CodeUnknownPrevious) }

// IsStalePrevious reports whether err is a stale-previous conflict.
// Callers should re-replay the stream tail and retry on true.
func IsStalePrevious(err error) bool { return hasCode(err, CodeStalePrevious) }

// IsDuplicateAppendKey reports whether err is a duplicate append-key
// conflict. Callers may treat true as success: the write is already durable.
func IsDuplicateAppendKey(err error) bool { return hasCode(err, CodeDuplicateAppendKey) }

// IsUnknownCursor reports whether err is an unknown-cursor error.
func IsUnknownCursor(err error) bool { return hasCode(err, CodeUnknownCursor) }

func hasCode(err error, code ConflictCode) bool {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// ImmutabilityError reports an attempted update or delete of a persisted
// event. This is a programming error or a storage-access-control gap, never
// a legitimate business race, so it is distinct from every ConflictError.
type ImmutabilityError struct {
	Op string // "update" or "delete"
}

// Error implements the error interface.
func (e *ImmutabilityError) Error() string {
	return fmt.Sprintf("IMMUTABLE: events cannot be %sd once appended", e.Op)
}

// IsImmutabilityViolation reports whether err is an ImmutabilityError.
func IsImmutabilityViolation(err error) bool {
	var ie *ImmutabilityError
	return errors.As(err, &ie)
}
