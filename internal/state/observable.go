package state

// Observable is a live view of a selector over a Store.
type Observable[T any] struct {
	store    *Store
	selector Selector[T]
	equal    func(a, b T) bool
	label    string
}

// Select returns a live view of selector over s. Subscribers receive the
// current value immediately and then every distinct derived value.
//
// T must compare with ==. A T that is an interface holding maps or slices
// (ir.Value, for one) panics on comparison; use SelectFunc for those.
func Select[T comparable](s *Store, selector Selector[T]) *Observable[T] {
	return &Observable[T]{store: s, selector: selector, equal: identical[T]}
}

// SelectFunc is Select with a caller-supplied equality. A notification is
// sent only when equal(last, next) is false.
func SelectFunc[T any](s *Store, selector Selector[T], equal func(a, b T) bool) *Observable[T] {
	return &Observable[T]{store: s, selector: selector, equal: equal}
}

// SelectSlice returns a live view of one slice.
func SelectSlice[S comparable](s *Store, sl *Slice[S]) *Observable[S] {
	return &Observable[S]{
		store:    s,
		selector: FeatureSelector(sl),
		equal:    identical[S],
		label:    sl.Name(),
	}
}

func identical[T comparable](a, b T) bool { return a == b }

// Named sets the label used when logging panics from this observable's
// subscribers.
func (o *Observable[T]) Named(label string) *Observable[T] {
	o.label = label
	return o
}

// Value computes the current derived value.
func (o *Observable[T]) Value() T {
	return o.selector(StateOf(o.store))
}

// Subscribe registers fn. fn is called at once with the current value,
// then after each dispatch whose result changes the derived value.
// fn may unsubscribe itself, or subscribe others, from inside the callback.
func (o *Observable[T]) Subscribe(fn func(T)) *Subscription {
	last := o.Value()

	sub := o.store.addSubscriber(o.label, func(st State) bool {
		next := o.selector(st)
		if o.equal(last, next) {
			return false
		}
		last = next
		fn(next)
		return true
	})

	o.store.safeReplay(sub, func() { fn(last) })

	return &Subscription{store: o.store, sub: sub}
}

// Subscription is a handle for removing a subscriber.
type Subscription struct {
	store *Store
	sub   *subscriber
}

// Unsubscribe removes the subscriber. It is safe to call more than once and
// from inside the subscriber's own callback.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.sub == nil {
		return
	}
	s.store.removeSubscriber(s.sub)
}

// Active reports whether the subscriber still receives notifications.
func (s *Subscription) Active() bool {
	return s != nil && s.sub != nil && s.sub.active
}

type subscriber struct {
	id     uint64
	label  string
	active bool
	update func(State) bool
}
