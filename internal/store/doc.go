// Package store provides SQLite-backed storage for simulation runs.
//
// Four tables are kept:
//   - runs: one row per distinct run, keyed by its fingerprint
//   - snapshots: the [S, E, I, R] series of a run, one row per boundary
//   - transitions: every compartment move of a run, in application order
//   - members: the initial compartment of every individual, for Replay
//
// # Idempotency
//
// WriteRun is keyed on the run fingerprint (see package fingerprint):
// writing the same run twice returns the ID assigned the first time.
// WriteRunResult stores a header and all of its rows in one transaction,
// so an interrupted write leaves no partial run behind.
// Snapshot and transition rows are keyed on (run_id, idx) and rewrites are
// ignored.
//
// # Deterministic Reads
//
// Every query orders by an explicit logical index (seq or idx), never by
// insertion time, so reads are identical across machines.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability and performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
