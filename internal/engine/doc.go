// Package engine feeds a state store from concurrent producers.
//
// The store itself is synchronous and must only be dispatched to from one
// goroutine at a time. The engine owns the store and serialises access:
//
// Single-Writer Event Loop:
// Producers call Enqueue (or Submit) from any goroutine. Run dequeues
// actions one at a time in FIFO order and is the only caller of Apply. This
// ensures:
//   - Actions apply in exactly the order they were accepted
//   - Subscribers never observe a dispatch from a foreign goroutine
//   - The journal records the same order a replay will use
//
// Event Processing Flow:
//  1. Action enqueued to the FIFO queue
//  2. Run dequeues it and stamps it with the next seq from Clock
//  3. The store applies it and notifies subscribers synchronously
//  4. If a journal is attached, the action and its changed slices are written
//  5. Any waiter registered by Submit receives the Applied result
//
// ERROR HANDLING: a reducer panic or journal failure is logged with the
// action's tag and seq and processing continues with the next action.
// Retrying would reorder actions relative to the journal.
//
// Logical Clock:
// Every action is stamped with a monotonic seq from Clock.Next(). Wall-clock
// time is never used for ordering.
package engine
