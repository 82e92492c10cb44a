// Package store provides the SQLite-backed ledger for chainlog.
//
// The store implements the append protocol and the replay/catch-up reader
// over a single append-only events table:
//   - Append: gather a stream snapshot, run the ledger Guard, insert in the
//     same transaction. Unique constraints close the check-then-insert race.
//   - Replay / ReplayAfter: deterministic global_seq ordering, optional
//     entity / entity_key / event-name filtering.
//   - LatestEventID: the true stream tail for forming the next append's
//     previous_id.
//
// # Concurrency
//
// The unit of contention is the (entity, entity_key) stream. In-process
// writers serialize on the single SQLite connection; across processes the
// partial unique indexes on previous_id and on the stream root remain the
// backstop, and constraint violations are translated into the same conflict
// errors the Guard produces. At most one append wins the race to extend a
// given tail; losers fail cleanly and never fork the chain.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: previous_id references a real event
//
// Schema versioning uses PRAGMA user_version; Open is idempotent.
package store
