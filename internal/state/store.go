package state

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/statebox/internal/ir"
)

// Observer is told about every completed dispatch and every recovered
// subscriber panic. Observers run inside the dispatch, so they must not
// call Dispatch themselves.
type Observer interface {
	Dispatched(r Report)
	SubscriberPanicked(label string, recovered any)
}

// Report summarises one dispatch.
type Report struct {
	Action Action

	// Changed lists the slices whose value changed, in registration order.
	Changed []string

	// Notified counts subscriber callbacks invoked.
	Notified int

	// Panicked counts subscriber callbacks that panicked.
	Panicked int
}

// DidChange reports whether the named slice changed.
func (r Report) DidChange(name string) bool {
	for _, c := range r.Changed {
		if c == name {
			return true
		}
	}
	return false
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for recovered subscriber panics and
// dispatch debug output. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver adds an Observer.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// Store is the single owner of a set of named slices.
//
// INVARIANTS:
//   - exactly one current value per slice
//   - entries order never changes after New
//   - dispatching is true only inside Apply
type Store struct {
	entries []*entry
	byName  map[string]*entry

	subs   []*subscriber // registration order
	nextID uint64

	dispatching bool

	logger    *slog.Logger
	observers []Observer
}

// New builds a Store from slice definitions. Slice names must be non-empty
// and unique.
func New(defs []SliceDef, opts ...Option) (*Store, error) {
	s := &Store{
		byName: make(map[string]*entry, len(defs)),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for i, def := range defs {
		if def == nil {
			return nil, &Error{
				Code:    ErrCodeInvalidSlice,
				Message: fmt.Sprintf("slice definition %d is nil", i),
			}
		}
		name := def.Name()
		if name == "" {
			return nil, &Error{
				Code:    ErrCodeInvalidSlice,
				Message: fmt.Sprintf("slice definition %d has an empty name", i),
			}
		}
		if _, dup := s.byName[name]; dup {
			return nil, &Error{
				Code:    ErrCodeDuplicateSlice,
				Message: "slice registered twice",
				Slice:   name,
			}
		}
		e := def.newEntry()
		s.entries = append(s.entries, e)
		s.byName[name] = e
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// MustNew is like New but panics on error.
// Use only in tests or with definitions known to be valid.
func MustNew(defs []SliceDef, opts ...Option) *Store {
	s, err := New(defs, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Slices returns slice names in registration order.
func (s *Store) Slices() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}
	return names
}

// Dispatch submits an action. Unrecognised actions leave every slice
// unchanged. The only failure is a reentrant call (or a nil action).
func (s *Store) Dispatch(a Action) error {
	_, err := s.Apply(a)
	return err
}

// Apply dispatches a and reports what changed and who was notified.
func (s *Store) Apply(a Action) (Report, error) {
	if a == nil {
		return Report{}, &Error{Code: ErrCodeInvalidAction, Message: "action is nil"}
	}
	if s.dispatching {
		return Report{}, newReentrantError(a)
	}
	s.dispatching = true
	defer func() { s.dispatching = false }()

	report := Report{Action: a}

	// Compute every next value before committing any of them.
	nexts := make([]any, len(s.entries))
	changed := make([]bool, len(s.entries))
	for i, e := range s.entries {
		nexts[i], changed[i] = e.next(e.value, a)
	}
	for i, e := range s.entries {
		if changed[i] {
			e.value = nexts[i]
			report.Changed = append(report.Changed, e.name)
		}
	}

	s.logger.Debug("dispatch",
		"action", a.Type(),
		"changed", report.Changed,
	)

	if len(report.Changed) > 0 {
		s.notify(a, &report)
	}

	for _, o := range s.observers {
		o.Dispatched(report)
	}

	return report, nil
}

// notify delivers the new state to a snapshot of the subscriber list.
// Subscribers removed during the round are skipped; subscribers added
// during the round only get their own replay.
func (s *Store) notify(a Action, report *Report) {
	subs := make([]*subscriber, len(s.subs))
	copy(subs, s.subs)

	view := State{store: s}
	for _, sub := range subs {
		if !sub.active {
			continue
		}
		called, panicked := s.safeUpdate(sub, view, a)
		if called {
			report.Notified++
		}
		if panicked {
			report.Panicked++
		}
	}
}

// safeUpdate runs one subscriber, recovering and reporting panics.
func (s *Store) safeUpdate(sub *subscriber, view State, a Action) (called, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			called = true
			panicked = true
			s.reportPanic(sub.label, a, r)
		}
	}()
	return sub.update(view), false
}

// safeReplay delivers the replay-one value on Subscribe.
func (s *Store) safeReplay(sub *subscriber, deliver func()) {
	defer func() {
		if r := recover(); r != nil {
			s.reportPanic(sub.label, nil, r)
		}
	}()
	deliver()
}

func (s *Store) reportPanic(label string, a Action, recovered any) {
	tag := ""
	if a != nil {
		tag = a.Type()
	}
	s.logger.Error("subscriber panicked",
		"subscriber", label,
		"action", tag,
		"panic", fmt.Sprint(recovered),
	)
	for _, o := range s.observers {
		o.SubscriberPanicked(label, recovered)
	}
}

// AnonymousSubscriber labels subscribers of observables that were never
// Named.
const AnonymousSubscriber = "anonymous"

func (s *Store) addSubscriber(label string, update func(State) bool) *subscriber {
	s.nextID++
	if label == "" {
		label = AnonymousSubscriber
	}
	sub := &subscriber{
		id:     s.nextID,
		label:  label,
		active: true,
		update: update,
	}
	s.subs = append(s.subs, sub)
	return sub
}

// removeSubscriber builds a new list so snapshots taken by an in-flight
// notify are not disturbed.
func (s *Store) removeSubscriber(sub *subscriber) {
	if !sub.active {
		return
	}
	sub.active = false

	kept := make([]*subscriber, 0, len(s.subs))
	for _, other := range s.subs {
		if other != sub {
			kept = append(kept, other)
		}
	}
	s.subs = kept
}

// SubscriberCount returns the number of live subscribers.
func (s *Store) SubscriberCount() int {
	return len(s.subs)
}

// Snapshot encodes the current value of the named slice.
func (s *Store) Snapshot(name string) (ir.Value, error) {
	e, ok := s.byName[name]
	if !ok {
		return nil, &Error{Code: ErrCodeUnknownSlice, Message: "no such slice", Slice: name}
	}
	return e.encode(e.value)
}

// SnapshotAll encodes every slice, keyed by slice name.
func (s *Store) SnapshotAll() (ir.Object, error) {
	out := make(ir.Object, len(s.entries))
	for _, e := range s.entries {
		v, err := e.encode(e.value)
		if err != nil {
			return nil, err
		}
		out[e.name] = v
	}
	return out, nil
}

// lookup returns the current value for def, if def is registered here.
func (s *Store) lookup(def SliceDef) (any, bool) {
	e, ok := s.byName[def.Name()]
	if !ok || e.def != def {
		return nil, false
	}
	return e.value, true
}

// Get reads the current value of a slice synchronously. A slice that is not
// registered in s reads as its initial value.
func Get[S comparable](s *Store, sl *Slice[S]) S {
	v, _ := Lookup(s, sl)
	return v
}

// Lookup is like Get but reports whether the slice is registered in s.
func Lookup[S comparable](s *Store, sl *Slice[S]) (S, bool) {
	v, ok := s.lookup(sl)
	if !ok {
		return sl.initial, false
	}
	return v.(S), true
}

// State is the read-only view selectors run against. The zero State reads
// every slice as its initial value.
type State struct {
	store     *Store
	overrides map[SliceDef]any
}

// StateOf returns the live read-only view of s.
func StateOf(s *Store) State {
	return State{store: s}
}

// With returns a copy of st in which sl reads as v. It lets selectors be
// exercised as pure functions without a Store.
func With[S comparable](st State, sl *Slice[S], v S) State {
	overrides := make(map[SliceDef]any, len(st.overrides)+1)
	for k, old := range st.overrides {
		overrides[k] = old
	}
	overrides[sl] = v
	return State{store: st.store, overrides: overrides}
}

// SliceValue reads a slice from a State view. Unregistered slices read as
// their initial value.
func SliceValue[S comparable](st State, sl *Slice[S]) S {
	if v, ok := st.overrides[sl]; ok {
		return v.(S)
	}
	if st.store == nil {
		return sl.initial
	}
	return Get(st.store, sl)
}
