// Package store records scene runs in SQLite.
//
// A run is stored as:
//   - runs: one row per run with its program hash and final status
//   - ticks: step count and abort reason per tick
//   - changes: variable writes per tick, plus the initial state at the
//     run's start tick
//   - warnings: non-fatal event errors per tick
//
// # Ordering
//
// Rows are keyed by (run_id, tick, seq) and every read orders by tick then
// seq, so a trace reads back identically every time. Tick numbers come
// from the engine clock, never from wall time.
//
// # Idempotency
//
// Inserts use ON CONFLICT DO NOTHING, so recording the same tick twice is
// harmless.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Store implements engine.Recorder. LoadSnapshot folds recorded changes
// into an engine.Snapshot, which engine.Scene.Restore resumes from.
package store
