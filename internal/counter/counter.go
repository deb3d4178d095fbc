// Package counter is the counter feature: an integer slice driven by
// increment, decrement and reset actions.
package counter

import "github.com/roach88/statebox/internal/state"

const (
	// FeatureName is the slice name the counter registers under by default.
	FeatureName = "counter"

	// InitialState is the counter value before any action.
	InitialState = 0
)

// Action tags.
const (
	TagIncrement = "[Counter Component] IncrementByOne"
	TagDecrement = "[Counter Component] Decrement"
	TagReset     = "[Counter Component] Reset"
)

// Action is the closed set of counter actions.
type Action interface {
	state.Action
	counterAction()
}

// Increment adds one.
type Increment struct{}

// Decrement subtracts one.
type Decrement struct{}

// Reset returns the counter to InitialState.
type Reset struct{}

func (Increment) Type() string { return TagIncrement }
func (Decrement) Type() string { return TagDecrement }
func (Reset) Type() string     { return TagReset }

func (Increment) counterAction() {}
func (Decrement) counterAction() {}
func (Reset) counterAction()     {}

// NewIncrement returns an Increment action.
func NewIncrement() Action { return Increment{} }

// NewDecrement returns a Decrement action.
func NewDecrement() Action { return Decrement{} }

// NewReset returns a Reset action.
func NewReset() Action { return Reset{} }

// Reduce computes the next counter value.
func Reduce(n int, a Action) int {
	switch a.(type) {
	case Increment:
		return n + 1
	case Decrement:
		return n - 1
	case Reset:
		return InitialState
	default:
		return n
	}
}
