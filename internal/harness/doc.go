// Package harness provides a conformance testing framework for the ledger.
//
// Scenarios are YAML files describing a sequence of appends and the outcome
// each one must have: success, or a named conflict such as STALE_PREVIOUS.
// After the steps run, assertions validate the replayed ledger: global
// order, per-stream contents, and stream tails.
//
// Each scenario runs against a fresh in-memory database with fixed event
// ids and a fixed clock, so a scenario's trace is fully deterministic and
// can be compared against a golden file. The Nth successful append gets the
// id "eN"; steps reference earlier events by those fixed ids, which lets a
// scenario express chain conflicts without knowing anything about id
// generation.
package harness
