package ledger

import "time"

// Event is an immutable fact persisted in the ledger.
//
// EventID, GlobalSeq, and CreatedAt are assigned by the store at append time
// and are never supplied by callers.
type Event struct {
	// GlobalSeq is the strictly increasing position across all streams.
	GlobalSeq int64

	// EventID uniquely identifies this event. Generated by the store.
	EventID string

	// Entity is the stream type name, e.g. "order".
	Entity string

	// EntityKey is the business identifier of the stream instance, e.g. "O001".
	EntityKey string

	// EventName is the fact name, e.g. "order-placed".
	EventName string

	// Payload is opaque structured data. Never nil once persisted; may be empty.
	Payload []byte

	// AppendKey is the caller-supplied idempotency token, globally unique.
	AppendKey string

	// PreviousID is the event_id of the immediate predecessor in the same
	// stream. Empty only for a stream's first event.
	PreviousID string

	// CreatedAt is the UTC wall-clock time the event was appended.
	// Informational only; ordering always uses GlobalSeq.
	CreatedAt time.Time
}

// Candidate is a caller-supplied event before the store assigns identity.
type Candidate struct {
	Entity     string
	EntityKey  string
	EventName  string
	Payload    []byte
	AppendKey  string
	PreviousID string // empty means this starts a new stream
}

// StreamID names one stream instance.
type StreamID struct {
	Entity    string
	EntityKey string
}

// Filter restricts a replay to a subset of events. The zero value matches
// everything. Filtering never changes the relative order of matching events.
type Filter struct {
	// Entity restricts to one stream type. Empty matches all.
	Entity string

	// EntityKey restricts to one stream instance. Only meaningful together
	// with Entity.
	EntityKey string

	// EventNames restricts to a set of fact names. Empty matches all.
	EventNames []string
}
