// Package ledger defines the event model and validation rules for the
// chainlog append-only store.
//
// An event is an immutable fact belonging to exactly one stream, identified
// by its (entity, entity_key) pair. Events within a stream are chained by
// explicit backward references: each event after the first carries the
// event_id of its immediate predecessor. The chain exists purely so that
// appends can detect lost-update races; reads always use the global
// sequence, never chain traversal.
//
// # Invariants
//
//   - Immutability: events are never updated or deleted once appended.
//   - Append-key uniqueness: no two events share an append_key, which makes
//     caller retries idempotent.
//   - Single root: at most one event per stream has a null previous_id.
//   - Backward-reference validity: a non-null previous_id must name an event
//     of the same stream.
//   - Freshness: a non-null previous_id must name the current latest event
//     of that stream. This is the optimistic-concurrency check.
//   - Total order: global_seq is strictly increasing across all streams.
//
// The validation rules live in the Guard (ValidateAppend), a pure function
// over a snapshot of the facts it needs. The storage backend gathers the
// snapshot transactionally and relies on unique constraints as the final
// backstop against check-then-insert races.
package ledger
