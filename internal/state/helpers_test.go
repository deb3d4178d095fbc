package state

import "github.com/roach88/statebox/internal/ir"

// tallyAction is the closed action set of the tally test slice.
type tallyAction interface {
	Action
	tally()
}

type add struct{ n int }

func (add) Type() string { return "[Tally] Add" }
func (add) tally()       {}

type zero struct{}

func (zero) Type() string { return "[Tally] Zero" }
func (zero) tally()       {}

func reduceTally(s int, a tallyAction) int {
	switch a := a.(type) {
	case add:
		return s + a.n
	case zero:
		return 0
	default:
		return s
	}
}

// labelAction is a second, unrelated closed action set.
type labelAction interface {
	Action
	label()
}

type rename struct{ to string }

func (rename) Type() string { return "[Label] Rename" }
func (rename) label()       {}

func reduceLabel(s string, a labelAction) string {
	switch a := a.(type) {
	case rename:
		return a.to
	default:
		return s
	}
}

type foreign struct{}

func (foreign) Type() string { return "[Elsewhere] Ping" }

func newTally(initial int) *Slice[int] {
	return NewSlice("tally", initial, reduceTally,
		WithEncoder(func(n int) ir.Value { return ir.Int(n) }))
}

func newLabel() *Slice[string] {
	return NewSlice("label", "", reduceLabel,
		WithEncoder(func(s string) ir.Value { return ir.String(s) }))
}

// recordingObserver captures observer callbacks.
type recordingObserver struct {
	reports []Report
	panics  []string
}

func (o *recordingObserver) Dispatched(r Report) {
	o.reports = append(o.reports, r)
}

func (o *recordingObserver) SubscriberPanicked(label string, _ any) {
	o.panics = append(o.panics, label)
}
