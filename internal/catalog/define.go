package catalog

import (
	"errors"

	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/state"
)

var errNoInitial = errors.New("kind takes no initial value")

// Definition describes a reducer kind over a typed slice value S and a
// closed action set A. Decode, Encode and Reduce are required.
type Definition[S comparable, A state.Action] struct {
	Name string
	Tags []string

	// Initial converts a spec's initial value. A nil value means the kind's
	// default. Nil Initial accepts only nil and yields the zero S.
	Initial func(v ir.Value) (S, error)

	Reduce func(S, A) S
	Encode func(S) ir.Value

	// Decode turns a tag in Tags into an action.
	Decode func(tag string, payload ir.Object) (A, bool)

	// Payload returns the journal payload of an action. Nil means {}.
	Payload func(A) ir.Object

	// Selectors are projections of the slice value, by unqualified name.
	Selectors map[string]func(S) ir.Value
}

// Define builds a Kind from a typed definition.
func Define[S comparable, A state.Action](d Definition[S, A]) *Kind {
	initial := d.Initial
	if initial == nil {
		initial = func(v ir.Value) (S, error) {
			var zero S
			if v != nil {
				return zero, errNoInitial
			}
			return zero, nil
		}
	}

	return &Kind{
		Name: d.Name,
		Tags: append([]string(nil), d.Tags...),
		checkInitial: func(v ir.Value) error {
			_, err := initial(v)
			return err
		},
		build: func(name string, v ir.Value) Binding {
			s, _ := initial(v)
			sl := state.NewSlice(name, s, d.Reduce, state.WithEncoder(d.Encode))
			sels := make(map[string]state.Selector[ir.Value], len(d.Selectors))
			for selName, project := range d.Selectors {
				sels[selName] = state.CreateSelector(state.FeatureSelector(sl), project)
			}
			return Binding{
				Def:       sl,
				Selectors: sels,
				Watch: func(st *state.Store, fn func(ir.Value)) *state.Subscription {
					return state.SelectSlice(st, sl).Subscribe(func(v S) { fn(d.Encode(v)) })
				},
			}
		},
		decode: func(tag string, payload ir.Object) (state.Action, bool) {
			a, ok := d.Decode(tag, payload)
			if !ok {
				return nil, false
			}
			return a, true
		},
		encode: func(a state.Action) (ir.Object, bool) {
			typed, ok := a.(A)
			if !ok {
				return nil, false
			}
			if d.Payload == nil {
				return ir.Object{}, true
			}
			return d.Payload(typed), true
		},
	}
}
