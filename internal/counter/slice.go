package counter

import (
	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/state"
)

// NewSlice defines a counter slice. An empty name means FeatureName.
func NewSlice(name string, initial int) *state.Slice[int] {
	if name == "" {
		name = FeatureName
	}
	return state.NewSlice(name, initial, Reduce, state.WithEncoder(Encode))
}

// Encode is the journal encoding of a counter value.
func Encode(n int) ir.Value {
	return ir.Int(n)
}

// SelectCounter selects the whole counter slice.
func SelectCounter(sl *state.Slice[int]) state.Selector[int] {
	return state.FeatureSelector(sl)
}

// SelectCountValue selects the count. It is composed on SelectCounter so
// components depend on the projection rather than the slice shape.
func SelectCountValue(sl *state.Slice[int]) state.Selector[int] {
	return state.CreateSelector(SelectCounter(sl), func(n int) int { return n })
}

// Decode maps a tag to a counter action. Counter actions carry no payload.
func Decode(tag string) (Action, bool) {
	switch tag {
	case TagIncrement:
		return Increment{}, true
	case TagDecrement:
		return Decrement{}, true
	case TagReset:
		return Reset{}, true
	default:
		return nil, false
	}
}
