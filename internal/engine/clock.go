package engine

import "sync/atomic"

// SeqClock hands out action seqs. Clock is the production implementation;
// tests may substitute one that can be reset between runs.
type SeqClock interface {
	Next() int64
	Current() int64
}

// Clock is the monotonic logical clock that stamps dispatched actions.
//
// Seq numbers start at 1 and increase by one per action, so a journaled
// session's seqs are dense and replay order is simply seq order.
//
// Clock is safe for concurrent use, though under the single-writer loop only
// Run calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next seq is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last seq handed out, or the start value.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
