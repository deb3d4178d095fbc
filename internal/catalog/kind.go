package catalog

import (
	"errors"
	"fmt"

	"github.com/roach88/statebox/internal/counter"
	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/state"
	"github.com/roach88/statebox/internal/user"
)

// Kind is one reducer kind a slice spec can name.
type Kind struct {
	// Name is the reducer name used in slice specs.
	Name string

	// Tags lists the action tags the kind decodes.
	Tags []string

	checkInitial func(initial ir.Value) error
	build        func(name string, initial ir.Value) Binding
	decode       func(tag string, payload ir.Object) (state.Action, bool)
	encode       func(a state.Action) (ir.Object, bool)
}

// CheckInitial reports whether initial is a valid starting value for the
// kind. A nil initial means the kind's default.
func (k *Kind) CheckInitial(initial ir.Value) error {
	return k.checkInitial(initial)
}

// Binding is a slice built from a spec: the registered definition plus its
// selectors keyed by unqualified name. Selector results are ir.Values,
// which may be maps; observe them with state.SelectFunc and ir.Equal
// (or Instance.WatchSelector), never state.Select.
type Binding struct {
	Spec      ir.SliceSpec
	Def       state.SliceDef
	Selectors map[string]state.Selector[ir.Value]

	// Watch subscribes to the typed slice on s and hands fn the encoded
	// value. Change detection uses the slice's own equality, so it works
	// for slices whose encoding is not comparable.
	Watch func(s *state.Store, fn func(ir.Value)) *state.Subscription
}

// CounterKind is the "counter" reducer. Initial values must be integers and
// default to counter.InitialState.
func CounterKind() *Kind {
	return &Kind{
		Name: "counter",
		Tags: []string{counter.TagIncrement, counter.TagDecrement, counter.TagReset},
		checkInitial: func(initial ir.Value) error {
			switch initial.(type) {
			case nil, ir.Int:
				return nil
			default:
				return fmt.Errorf("counter initial value must be an int, got %T", initial)
			}
		},
		build: func(name string, initial ir.Value) Binding {
			n := counter.InitialState
			if v, ok := initial.(ir.Int); ok {
				n = int(v)
			}
			sl := counter.NewSlice(name, n)
			return Binding{
				Def: sl,
				Selectors: map[string]state.Selector[ir.Value]{
					"count": state.CreateSelector(counter.SelectCountValue(sl), func(n int) ir.Value {
						return ir.Int(n)
					}),
				},
				Watch: func(s *state.Store, fn func(ir.Value)) *state.Subscription {
					return state.SelectSlice(s, sl).Subscribe(func(n int) { fn(counter.Encode(n)) })
				},
			}
		},
		decode: func(tag string, _ ir.Object) (state.Action, bool) {
			return counter.Decode(tag)
		},
		encode: func(a state.Action) (ir.Object, bool) {
			if _, ok := a.(counter.Action); !ok {
				return nil, false
			}
			return ir.Object{}, true
		},
	}
}

// UserKind is the "user" reducer. The initial value, if given, is a user
// object ({} for logged out).
func UserKind() *Kind {
	return &Kind{
		Name: "user",
		Tags: []string{user.TagSetUser, user.TagClearUser},
		checkInitial: func(initial ir.Value) error {
			switch v := initial.(type) {
			case nil:
				return nil
			case ir.Object:
				if len(v) == 0 {
					return nil
				}
				if id, ok := v.GetString("id"); !ok || id == "" {
					return errors.New("user initial value needs a non-empty string id")
				}
				return nil
			default:
				return fmt.Errorf("user initial value must be an object, got %T", initial)
			}
		},
		build: func(name string, initial ir.Value) Binding {
			var u *user.User
			if obj, ok := initial.(ir.Object); ok {
				u = user.FromValue(obj)
			}
			sl := user.NewSlice(name, u)
			return Binding{
				Def: sl,
				Selectors: map[string]state.Selector[ir.Value]{
					"user": state.CreateSelector(user.SelectUser(sl), func(u *user.User) ir.Value {
						return user.Encode(u)
					}),
					"isLoggedIn": state.CreateSelector(user.SelectIsLoggedIn(sl), func(b bool) ir.Value {
						return ir.Bool(b)
					}),
				},
				Watch: func(s *state.Store, fn func(ir.Value)) *state.Subscription {
					return state.SelectSlice(s, sl).Subscribe(func(u *user.User) { fn(user.Encode(u)) })
				},
			}
		},
		decode: func(tag string, payload ir.Object) (state.Action, bool) {
			return user.Decode(tag, payload)
		},
		encode: func(a state.Action) (ir.Object, bool) {
			ua, ok := a.(user.Action)
			if !ok {
				return nil, false
			}
			return user.Payload(ua), true
		},
	}
}
