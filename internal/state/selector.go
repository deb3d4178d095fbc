package state

// Selector is a pure projection from State to a derived value.
// Selectors are recomputed on every call; nothing is cached across inputs.
type Selector[T any] func(State) T

// FeatureSelector selects a whole slice.
func FeatureSelector[S comparable](sl *Slice[S]) Selector[S] {
	return func(st State) S {
		return SliceValue(st, sl)
	}
}

// CreateSelector derives a value from another selector's output.
func CreateSelector[A, R any](in Selector[A], project func(A) R) Selector[R] {
	return func(st State) R {
		return project(in(st))
	}
}

// CreateSelector2 derives a value from two selectors' outputs.
func CreateSelector2[A, B, R any](a Selector[A], b Selector[B], project func(A, B) R) Selector[R] {
	return func(st State) R {
		return project(a(st), b(st))
	}
}
