// Package state implements a unidirectional state container.
//
// A Store holds one immutable value per named slice. Values change only by
// dispatching an Action: every slice's reducer computes the next value from
// the current one, changed slices are swapped in, and subscribers are told.
//
// Model:
//
//	Action   -> tagged, immutable description of an intended change
//	Reducer  -> pure func(S, A) S, identity on actions it does not recognise
//	Selector -> pure func(State) T, recomputed on demand, never cached
//	Store    -> owner of the current values; Dispatch, Get, Select
//
// Each slice declares its own closed action type A (usually an interface
// sealed by an unexported method). A reducer switches exhaustively over the
// concrete types of A; actions of any other type never reach it, so the
// identity law holds by construction.
//
// Change detection is by ==. Slice values are comparable (ints, strings,
// pointers to immutable records), and reducers always return a new value
// instead of mutating, so == is the reference-equality test.
//
// # Dispatch
//
// Dispatch is synchronous and runs on the caller's goroutine:
//
//  1. Every reducer computes its next value. Nothing is committed until all
//     reducers have returned, so an update is never partial.
//  2. Slices whose next value != current are replaced.
//  3. The subscriber list is snapshotted and each live subscriber recomputes
//     its selector; it is called only if the derived value changed.
//
// Calling Dispatch while a dispatch is in progress on the same Store (from a
// reducer, a subscriber or an Observer) fails with a REENTRANT_DISPATCH
// error and leaves state untouched.
//
// A subscriber that panics is recovered, logged and counted; delivery to the
// remaining subscribers continues and the panic never reaches the caller of
// Dispatch.
//
// # Concurrency
//
// A Store is not safe for concurrent use. Confine it to one goroutine, or
// feed it through engine.Engine, which serialises producers onto a single
// writer loop.
package state
