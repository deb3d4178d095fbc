package catalog

import (
	"fmt"
	"sort"

	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/state"
)

// Catalog is a set of reducer kinds indexed by name and by action tag.
type Catalog struct {
	kinds  []*Kind
	byKind map[string]*Kind
	byTag  map[string]*Kind
}

// New builds a catalog. Kind names and action tags must be unique.
func New(kinds ...*Kind) (*Catalog, error) {
	c := &Catalog{
		byKind: make(map[string]*Kind, len(kinds)),
		byTag:  make(map[string]*Kind),
	}
	for _, k := range kinds {
		if _, dup := c.byKind[k.Name]; dup {
			return nil, &Error{Code: ErrCodeDuplicateKind, Kind: k.Name, Message: "kind registered twice"}
		}
		for _, tag := range k.Tags {
			if other, dup := c.byTag[tag]; dup {
				return nil, &Error{
					Code:    ErrCodeDuplicateTag,
					Kind:    k.Name,
					Message: fmt.Sprintf("tag %q already decoded by %q", tag, other.Name),
				}
			}
			c.byTag[tag] = k
		}
		c.byKind[k.Name] = k
		c.kinds = append(c.kinds, k)
	}
	return c, nil
}

// Default returns the catalog of built-in kinds.
func Default() *Catalog {
	c, err := New(CounterKind(), UserKind())
	if err != nil {
		panic(err)
	}
	return c
}

// Kind returns the named kind.
func (c *Catalog) Kind(name string) (*Kind, bool) {
	k, ok := c.byKind[name]
	return k, ok
}

// Kinds returns kind names in registration order.
func (c *Catalog) Kinds() []string {
	names := make([]string, len(c.kinds))
	for i, k := range c.kinds {
		names[i] = k.Name
	}
	return names
}

// CheckInitial validates a spec's initial value against its kind.
func (c *Catalog) CheckInitial(reducer string, initial ir.Value) error {
	k, ok := c.byKind[reducer]
	if !ok {
		return &Error{Code: ErrCodeUnknownReducer, Kind: reducer, Message: "no such reducer kind"}
	}
	if err := k.CheckInitial(initial); err != nil {
		return &Error{Code: ErrCodeInvalidInitial, Kind: reducer, Message: err.Error()}
	}
	return nil
}

// Decode turns a tag and payload into an action. Unrecognised tags decode
// to state.UnknownAction.
func (c *Catalog) Decode(tag string, payload ir.Object) state.Action {
	if k, ok := c.byTag[tag]; ok {
		if a, ok := k.decode(tag, payload); ok {
			return a
		}
	}
	if payload == nil {
		payload = ir.Object{}
	}
	return state.UnknownAction{Tag: tag, Payload: payload}
}

// Encode returns the payload an action is journaled with.
func (c *Catalog) Encode(a state.Action) ir.Object {
	if u, ok := a.(state.UnknownAction); ok {
		if u.Payload == nil {
			return ir.Object{}
		}
		return u.Payload
	}
	for _, k := range c.kinds {
		if payload, ok := k.encode(a); ok {
			return payload
		}
	}
	return ir.Object{}
}

// Build constructs a Store holding one slice per spec, in spec order.
func (c *Catalog) Build(specs []ir.SliceSpec, opts ...state.Option) (*Instance, error) {
	inst := &Instance{
		catalog:   c,
		selectors: make(map[string]state.Selector[ir.Value]),
	}
	defs := make([]state.SliceDef, 0, len(specs))

	for _, spec := range specs {
		k, ok := c.byKind[spec.Reducer]
		if !ok {
			return nil, &Error{
				Code:    ErrCodeUnknownReducer,
				Slice:   spec.Name,
				Message: fmt.Sprintf("unknown reducer %q", spec.Reducer),
			}
		}
		if err := k.CheckInitial(spec.Initial); err != nil {
			return nil, &Error{Code: ErrCodeInvalidInitial, Slice: spec.Name, Message: err.Error()}
		}

		b := k.build(spec.Name, spec.Initial)
		b.Spec = spec
		inst.Slices = append(inst.Slices, b)
		defs = append(defs, b.Def)

		for name, sel := range b.Selectors {
			inst.selectors[spec.Name+"."+name] = sel
		}
	}

	store, err := state.New(defs, opts...)
	if err != nil {
		return nil, err
	}
	inst.Store = store
	return inst, nil
}

// Instance is a Store built from specs together with its named selectors.
type Instance struct {
	Store  *state.Store
	Slices []Binding

	catalog   *Catalog
	selectors map[string]state.Selector[ir.Value]
}

// Dispatch decodes tag and payload and dispatches the resulting action.
func (in *Instance) Dispatch(tag string, payload ir.Object) (state.Report, error) {
	return in.Store.Apply(in.catalog.Decode(tag, payload))
}

// Step is one dispatch seen through the slices' encodings.
type Step struct {
	Report state.Report

	// Changed lists, in registration order, the slices whose encoded value
	// differs after the dispatch. A reducer that returns an equal value
	// under a new reference shows up in Report.Changed but not here. Never
	// nil.
	Changed []string

	// Values holds the encoded value of every slice in Changed.
	Values map[string]ir.Value
}

// Apply dispatches a and reports the change by encoded value. Journals
// and replays record Step.Changed so a session re-folded from decoded
// payloads agrees with the live run.
func (in *Instance) Apply(a state.Action) (Step, error) {
	step := Step{Changed: []string{}, Values: map[string]ir.Value{}}

	before, err := in.Store.SnapshotAll()
	if err != nil {
		return step, err
	}

	report, err := in.Store.Apply(a)
	step.Report = report
	if err != nil {
		return step, err
	}

	for _, name := range report.Changed {
		after, err := in.Store.Snapshot(name)
		if err != nil {
			return step, err
		}
		if ir.Equal(before[name], after) {
			continue
		}
		step.Changed = append(step.Changed, name)
		step.Values[name] = after
	}
	return step, nil
}

// ApplyTag decodes tag and payload and applies the resulting action.
func (in *Instance) ApplyTag(tag string, payload ir.Object) (Step, error) {
	return in.Apply(in.catalog.Decode(tag, payload))
}

// Select evaluates a qualified selector such as "counter.count".
func (in *Instance) Select(name string) (ir.Value, error) {
	sel, ok := in.selectors[name]
	if !ok {
		return nil, &Error{Code: ErrCodeUnknownSelect, Message: fmt.Sprintf("no selector %q", name)}
	}
	return sel(state.StateOf(in.Store)), nil
}

// Watch subscribes fn to the named slice. fn receives the encoded value
// immediately and again after every dispatch that changes the slice.
func (in *Instance) Watch(slice string, fn func(ir.Value)) (*state.Subscription, error) {
	for _, b := range in.Slices {
		if b.Spec.Name == slice {
			return b.Watch(in.Store, fn), nil
		}
	}
	return nil, &state.Error{Code: state.ErrCodeUnknownSlice, Message: "no such slice", Slice: slice}
}

// WatchSelector subscribes fn to a qualified selector such as
// "user.isLoggedIn". Encoded values are compared with ir.Equal, so fn only
// sees distinct results.
func (in *Instance) WatchSelector(name string, fn func(ir.Value)) (*state.Subscription, error) {
	sel, ok := in.selectors[name]
	if !ok {
		return nil, &Error{Code: ErrCodeUnknownSelect, Message: fmt.Sprintf("no selector %q", name)}
	}
	return state.SelectFunc(in.Store, sel, ir.Equal).Named(name).Subscribe(fn), nil
}

// SelectorNames returns every qualified selector name, sorted.
func (in *Instance) SelectorNames() []string {
	names := make([]string, 0, len(in.selectors))
	for name := range in.selectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
