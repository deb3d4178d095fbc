// Package ir provides the value model shared by the journal, the catalog and
// the test harness.
//
// Action payloads and slice snapshots leave the typed world of the state
// package as ir values so they can be hashed, journaled and compared.
// ir imports nothing internal; every other package may import it.
//
// Constraints:
//   - No float values. Numbers are int64 only.
//   - Canonical JSON (RFC 8785) is the only encoding used for hashing.
//   - JSON tags use snake_case.
//   - Ordering uses logical sequence numbers, never wall-clock time.
package ir
