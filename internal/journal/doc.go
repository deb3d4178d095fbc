// Package journal provides SQLite-backed durable storage for dispatched
// actions.
//
// The journal is an append-only audit log with:
//   - Sessions: one row per run of a store, with the definition hash
//   - Initial states: every slice's encoded value when the session began
//   - Actions: every dispatched action, its payload and the slices it changed
//   - Snapshots: the encoded value of each changed slice after the action
//
// The journal is never used to restore a store on startup. State lives in
// memory; the journal exists for trace inspection and replay checks.
//
// # Ordering
//
// All ordering uses the seq INTEGER logical clock, never timestamps. Every
// action query includes ORDER BY seq ASC, id ASC COLLATE BINARY so results
// are identical across runs.
//
// # Idempotency
//
// Writes use ON CONFLICT DO NOTHING. Action IDs are content-addressed
// (ir.ActionID), so writing the same record twice is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package journal
