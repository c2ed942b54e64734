// Package store provides SQLite-backed persistence for verification runs.
//
// The store is a result sink: the orchestrator's terminated runs are written
// once and never mutated. Two tables hold the history:
//
//   - runs: one row per verification run (candidate, final/best state,
//     terminated reason, timing)
//   - attempts: one row per attempt, probe results serialized as JSON
//
// Database configuration:
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: attempts cannot outlive their run
//
// Writes use ON CONFLICT DO NOTHING so recording the same run twice is
// idempotent.
package store
