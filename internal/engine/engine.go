package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/statebox/internal/catalog"
	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/journal"
	"github.com/roach88/statebox/internal/state"
)

// Applied is the outcome of processing one queued action.
type Applied struct {
	// Record is the journal record of the action. Zero when Err is a
	// dispatch failure, since a failed action is never stamped.
	Record ir.ActionRecord

	// Report is what the store reported for the dispatch. Its Changed
	// list is by reference; Record.Changed is by encoded value.
	Report state.Report

	// Err is nil on success, otherwise a *RuntimeError.
	Err error
}

// Engine is the single-writer event loop in front of a store.
//
// Thread-safety model:
//   - Enqueue(), EnqueueTag(), Submit(), Stop(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Instance(): only safe before Run starts, after it returns, or from
//     an OnApplied callback or store subscriber (both run on the Run goroutine)
//
// INVARIANTS:
//   - seqs are dense and start at Clock.Current()+1
//   - an action is journaled only after it has been applied
//   - every Submit waiter receives exactly one Applied
type Engine struct {
	catalog  *catalog.Catalog
	inst     *catalog.Instance
	specs    []ir.SliceSpec
	session  ir.Session
	clock    SeqClock
	queue    *eventQueue
	journal  *journal.Journal
	logger   *slog.Logger
	hooks    []func(Applied)
	storeOpt []state.Option

	running atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithJournal records the session and every applied action in j.
func WithJournal(j *journal.Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithLogger sets the engine and store logger. Defaults to a discarding
// logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the logical clock, e.g. NewClockAt to continue numbering.
func WithClock(c SeqClock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithObserver attaches a store observer such as metrics.Collector.
func WithObserver(o state.Observer) Option {
	return func(e *Engine) {
		e.storeOpt = append(e.storeOpt, state.WithObserver(o))
	}
}

// OnApplied registers fn to run on the Run goroutine after every action.
func OnApplied(fn func(Applied)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.hooks = append(e.hooks, fn)
		}
	}
}

// New builds the store described by specs and an engine in front of it.
// gen supplies the session token.
func New(cat *catalog.Catalog, specs []ir.SliceSpec, gen TokenGenerator, opts ...Option) (*Engine, error) {
	e := &Engine{
		catalog: cat,
		specs:   append([]ir.SliceSpec(nil), specs...),
		clock:   NewClock(),
		queue:   newEventQueue(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	specHash, err := ir.SpecHash(e.specs)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	inst, err := cat.Build(e.specs, append([]state.Option{state.WithLogger(e.logger)}, e.storeOpt...)...)
	if err != nil {
		return nil, fmt.Errorf("engine: build store: %w", err)
	}
	e.inst = inst

	e.session = ir.Session{
		Token:         gen.Generate(),
		SpecHash:      specHash,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	return e, nil
}

// Session returns the session this engine records under.
func (e *Engine) Session() ir.Session {
	return e.session
}

// Instance returns the underlying store and its selectors. See the
// thread-safety notes on Engine.
func (e *Engine) Instance() *catalog.Instance {
	return e.inst
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() SeqClock {
	return e.clock
}

// QueueLen returns the number of actions waiting to be applied.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Enqueue submits an action for the Run loop.
// Returns false if the engine has been stopped or a is nil.
func (e *Engine) Enqueue(a state.Action) bool {
	if a == nil {
		return false
	}
	return e.queue.Enqueue(Event{Action: a})
}

// EnqueueTag decodes tag and payload through the catalog and enqueues the
// result. Unknown tags are enqueued as state.UnknownAction.
func (e *Engine) EnqueueTag(tag string, payload ir.Object) bool {
	return e.Enqueue(e.catalog.Decode(tag, payload))
}

// Submit enqueues a and waits until the Run loop has processed it.
// Calling Submit from the Run goroutine (a subscriber or OnApplied hook)
// deadlocks; use Enqueue there.
func (e *Engine) Submit(ctx context.Context, a state.Action) (Applied, error) {
	if a == nil {
		return Applied{}, &RuntimeError{Code: ErrCodeDispatchFailed, Message: "action is nil", Session: e.session.Token}
	}
	done := make(chan Applied, 1)
	if !e.queue.Enqueue(Event{Action: a, done: done}) {
		return Applied{}, e.stoppedError(a)
	}

	select {
	case <-ctx.Done():
		return Applied{}, ctx.Err()
	case applied := <-done:
		return applied, applied.Err
	}
}

// Run starts the single-writer event loop.
// Blocks until context is cancelled or Stop() is called.
//
// With a journal attached, Run first records the session and the initial
// value of every slice. After Stop, actions already queued are still
// applied before Run returns nil. On cancellation, queued actions are
// abandoned and their waiters receive ENGINE_STOPPED.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine: Run called twice")
	}

	if err := e.writeSession(ctx); err != nil {
		e.queue.Close()
		e.abandon()
		return err
	}

	e.logger.Info("engine starting", "session", e.session.Token)

	for {
		if ctx.Err() != nil {
			return e.cancelled(ctx)
		}

		event, ok := e.queue.TryDequeue()
		if ok {
			e.processEvent(ctx, event)
			continue
		}

		select {
		case <-ctx.Done():
			return e.cancelled(ctx)

		case _, open := <-e.queue.Wait():
			if !open && e.queue.Len() == 0 {
				e.logger.Info("engine stopping: queue closed", "session", e.session.Token)
				return nil
			}
		}
	}
}

func (e *Engine) cancelled(ctx context.Context) error {
	e.logger.Info("engine stopping: context cancelled", "session", e.session.Token)
	e.queue.Close()
	e.abandon()
	return ctx.Err()
}

// Stop closes the queue. Run applies what is already queued, then returns.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) writeSession(ctx context.Context) error {
	if e.journal == nil {
		return nil
	}

	var initial []ir.SliceSnapshot
	for _, name := range e.inst.Store.Slices() {
		v, err := e.inst.Store.Snapshot(name)
		if err != nil {
			return fmt.Errorf("engine: initial state: %w", err)
		}
		initial = append(initial, ir.SliceSnapshot{Slice: name, Value: v})
	}

	if err := e.journal.WriteSession(ctx, e.session, initial); err != nil {
		return &RuntimeError{
			Code:    ErrCodeJournalFailed,
			Message: "write session",
			Session: e.session.Token,
			Err:     err,
		}
	}
	return nil
}

// processEvent applies one action and journals it.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (e *Engine) processEvent(ctx context.Context, event Event) {
	applied := e.apply(ctx, event.Action)
	if applied.Err != nil {
		logEventError(e.logger, event, applied.Err)
	}

	for _, hook := range e.hooks {
		hook(applied)
	}
	if event.done != nil {
		event.done <- applied
	}
}

func (e *Engine) apply(ctx context.Context, a state.Action) Applied {
	step, err := e.dispatch(a)
	report := step.Report
	if err != nil {
		return Applied{Report: report, Err: err}
	}

	// Stamp only actions that applied so journaled seqs stay dense.
	seq := e.clock.Next()
	tag := a.Type()
	payload := e.catalog.Encode(a)

	id, err := ir.ActionID(e.session.Token, tag, payload, seq)
	if err != nil {
		return Applied{Report: report, Err: &RuntimeError{
			Code:    ErrCodeJournalFailed,
			Message: "compute action id",
			Session: e.session.Token,
			Seq:     seq,
			Tag:     tag,
			Err:     err,
		}}
	}

	rec := ir.ActionRecord{
		ID:      id,
		Session: e.session.Token,
		Seq:     seq,
		Tag:     tag,
		Payload: payload,
		Changed: step.Changed,
	}

	e.logger.Debug("action applied",
		"id", rec.ID,
		"action", rec.Tag,
		"seq", rec.Seq,
		"changed", rec.Changed,
	)

	if err := e.record(ctx, rec, step.Values); err != nil {
		return Applied{Record: rec, Report: report, Err: err}
	}
	return Applied{Record: rec, Report: report}
}

// dispatch applies a to the store, turning a reducer panic into an error.
// The store commits nothing when a reducer panics.
func (e *Engine) dispatch(a state.Action) (step catalog.Step, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RuntimeError{
				Code:    ErrCodeReducerPanic,
				Message: fmt.Sprint(r),
				Session: e.session.Token,
				Tag:     a.Type(),
			}
		}
	}()

	step, err = e.inst.Apply(a)
	if err != nil {
		return step, &RuntimeError{
			Code:    ErrCodeDispatchFailed,
			Message: "dispatch",
			Session: e.session.Token,
			Tag:     a.Type(),
			Err:     err,
		}
	}
	return step, nil
}

func (e *Engine) record(ctx context.Context, rec ir.ActionRecord, values map[string]ir.Value) error {
	if e.journal == nil {
		return nil
	}

	snaps := make([]ir.SliceSnapshot, 0, len(rec.Changed))
	for _, name := range rec.Changed {
		snaps = append(snaps, ir.SliceSnapshot{ActionID: rec.ID, Slice: name, Value: values[name]})
	}

	if err := e.journal.WriteAction(ctx, rec, snaps); err != nil {
		return e.journalError(rec, err)
	}
	return nil
}

func (e *Engine) journalError(rec ir.ActionRecord, err error) error {
	return &RuntimeError{
		Code:    ErrCodeJournalFailed,
		Message: "write action",
		Session: rec.Session,
		Seq:     rec.Seq,
		Tag:     rec.Tag,
		Err:     err,
	}
}

// abandon fails every waiter still in the queue.
func (e *Engine) abandon() {
	for {
		event, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		if event.done != nil {
			event.done <- Applied{Err: e.stoppedError(event.Action)}
		}
	}
}

func (e *Engine) stoppedError(a state.Action) error {
	return &RuntimeError{
		Code:    ErrCodeStopped,
		Message: "engine is not accepting actions",
		Session: e.session.Token,
		Tag:     a.Type(),
	}
}

// logEventError logs a processing failure with enough context to find the
// action again. Processing continues with the next event.
func logEventError(logger *slog.Logger, event Event, err error) {
	attrs := []any{
		"action", event.Action.Type(),
		"error", err,
	}
	if re, ok := err.(*RuntimeError); ok {
		attrs = append(attrs, "code", string(re.Code), "seq", re.Seq, "session", re.Session)
	}
	logger.Error("event processing failed", attrs...)
}
