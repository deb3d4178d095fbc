package state

import "github.com/roach88/statebox/internal/ir"

// SliceDef is a slice definition the Store can register.
// *Slice[S] is the only implementation.
type SliceDef interface {
	Name() string
	newEntry() *entry
}

// Slice is a typed handle to one named slice. The same handle is used to
// register the slice, read it (Get, SelectSlice) and build selectors.
type Slice[S comparable] struct {
	name    string
	initial S
	reduce  func(S, Action) S
	encode  func(S) ir.Value
}

// SliceOption configures a Slice.
type SliceOption[S comparable] func(*Slice[S])

// WithEncoder sets how the slice value is encoded for journal snapshots.
func WithEncoder[S comparable](fn func(S) ir.Value) SliceOption[S] {
	return func(sl *Slice[S]) {
		sl.encode = fn
	}
}

// NewSlice defines a slice whose reducer handles the closed action type A.
// Actions whose dynamic type does not implement A are never passed to
// reduce; the slice keeps its current value.
func NewSlice[S comparable, A Action](name string, initial S, reduce func(S, A) S, opts ...SliceOption[S]) *Slice[S] {
	sl := &Slice[S]{
		name:    name,
		initial: initial,
		reduce: func(cur S, a Action) S {
			typed, ok := a.(A)
			if !ok {
				return cur
			}
			return reduce(cur, typed)
		},
	}
	for _, opt := range opts {
		opt(sl)
	}
	return sl
}

// Name returns the slice name.
func (sl *Slice[S]) Name() string {
	return sl.name
}

// Initial returns the slice's initial value.
func (sl *Slice[S]) Initial() S {
	return sl.initial
}

// Reduce applies the slice's reducer outside of any Store. It is the pure
// function the Store calls during Dispatch.
func (sl *Slice[S]) Reduce(cur S, a Action) S {
	return sl.reduce(cur, a)
}

// Fold left-folds the reducer over actions starting from initial.
func (sl *Slice[S]) Fold(initial S, actions ...Action) S {
	cur := initial
	for _, a := range actions {
		cur = sl.reduce(cur, a)
	}
	return cur
}

// Encode returns the journal encoding of v.
func (sl *Slice[S]) Encode(v S) (ir.Value, error) {
	if sl.encode == nil {
		return nil, &Error{
			Code:    ErrCodeInvalidSlice,
			Message: "slice has no encoder",
			Slice:   sl.name,
		}
	}
	return sl.encode(v), nil
}

func (sl *Slice[S]) newEntry() *entry {
	return &entry{
		name:  sl.name,
		def:   sl,
		value: sl.initial,
		next: func(cur any, a Action) (any, bool) {
			c := cur.(S)
			n := sl.reduce(c, a)
			return n, n != c
		},
		encode: func(v any) (ir.Value, error) {
			return sl.Encode(v.(S))
		},
	}
}

// entry is the type-erased slot the Store keeps per slice.
type entry struct {
	name   string
	def    SliceDef
	value  any
	next   func(cur any, a Action) (any, bool)
	encode func(any) (ir.Value, error)
}
