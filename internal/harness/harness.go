package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/statebox/internal/catalog"
	"github.com/roach88/statebox/internal/compiler"
	"github.com/roach88/statebox/internal/engine"
	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/journal"
	"github.com/roach88/statebox/internal/testutil"
)

// Harness executes one scenario. A fresh Harness, store and in-memory
// journal are created per run for isolation.
type Harness struct {
	catalog *catalog.Catalog
	specs   []ir.SliceSpec
	journal *journal.Journal
	engine  *engine.Engine
	clock   *testutil.DeterministicClock
	session *testutil.FixedSessionGenerator
	logger  *slog.Logger

	watchers map[string]*testutil.Recorder[ir.Value]
	applied  []engine.Applied
}

// Run executes a scenario against the built-in reducer kinds.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithCatalog(scenario, catalog.Default())
}

// RunWithCatalog executes a scenario whose specs may name the kinds in cat.
//
// Execution flow:
//  1. Compile and validate the CUE specs
//  2. Open an in-memory journal and build the engine
//  3. Watch every slice, counting notifications
//  4. Enqueue every dispatch step and run the engine to completion
//  5. Replay the journal and evaluate assertions
func RunWithCatalog(scenario *Scenario, cat *catalog.Catalog) (*Result, error) {
	specs, err := CompileSpecs(cat, scenario.Specs...)
	if err != nil {
		return nil, err
	}

	j, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	h := &Harness{
		catalog:  cat,
		specs:    specs,
		journal:  j,
		clock:    testutil.NewDeterministicClock(),
		session:  testutil.NewFixedSessionGenerator(scenario.Session),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		watchers: make(map[string]*testutil.Recorder[ir.Value]),
	}

	h.engine, err = engine.New(cat, specs, h.session,
		engine.WithJournal(j),
		engine.WithClock(h.clock),
		engine.WithLogger(h.logger),
		engine.OnApplied(func(a engine.Applied) { h.applied = append(h.applied, a) }),
	)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := h.execute(ctx, scenario.Dispatch); err != nil {
		return nil, err
	}

	result := NewResult()
	if err := h.collect(ctx, scenario.Dispatch, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{Instance: h.engine.Instance()}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// CompileSpecs loads CUE files, compiles their slices and validates them
// against cat.
func CompileSpecs(cat *catalog.Catalog, paths ...string) ([]ir.SliceSpec, error) {
	v, err := compiler.LoadFiles(paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load specs: %w", err)
	}
	specs, err := compiler.CompileSlices(v)
	if err != nil {
		return nil, fmt.Errorf("failed to compile specs: %w", err)
	}
	if errs := compiler.ValidateSlices(specs, cat); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid specs: %s", strings.Join(msgs, "; "))
	}
	return specs, nil
}

// execute watches every slice, then feeds the dispatch script through the
// engine and waits for it to drain.
func (h *Harness) execute(ctx context.Context, steps []Step) error {
	inst := h.engine.Instance()
	for _, b := range inst.Slices {
		rec := testutil.NewRecorder[ir.Value]()
		if _, err := inst.Watch(b.Spec.Name, rec.Record); err != nil {
			return err
		}
		h.watchers[b.Spec.Name] = rec
	}

	for i, step := range steps {
		payload, err := ConvertPayload(step.Payload)
		if err != nil {
			return fmt.Errorf("dispatch step %d: %w", i, err)
		}
		if !h.engine.EnqueueTag(step.Action, payload) {
			return fmt.Errorf("dispatch step %d (%s): engine stopped before the script was queued", i, step.Action)
		}
	}

	h.engine.Stop()
	if err := h.engine.Run(ctx); err != nil {
		return fmt.Errorf("engine run: %w", err)
	}

	h.logger.Info("scenario dispatched",
		"session", h.engine.Session().Token,
		"steps", len(steps),
		"seq", h.clock.Current(),
	)
	return nil
}

// collect fills result with the trace, final state, notification counts
// and the replay verdict.
func (h *Harness) collect(ctx context.Context, steps []Step, result *Result) error {
	for i, a := range h.applied {
		ev := TraceEvent{
			Seq:     a.Record.Seq,
			ID:      a.Record.ID,
			Action:  a.Record.Tag,
			Payload: a.Record.Payload,
			Changed: a.Record.Changed,
		}
		if a.Err != nil {
			ev.Action = steps[i].Action
			ev.Payload, _ = ConvertPayload(steps[i].Payload)
			ev.Changed = []string{}
			ev.Error = a.Err.Error()
			result.AddError(fmt.Sprintf("dispatch step %d (%s): %v", i, steps[i].Action, a.Err))
		}
		result.Trace = append(result.Trace, ev)
	}

	state, err := h.engine.Instance().Store.SnapshotAll()
	if err != nil {
		return fmt.Errorf("final state: %w", err)
	}
	result.State = state

	for name, rec := range h.watchers {
		result.Notifications[name] = rec.Len() - 1
	}

	replay, err := h.journal.Replay(ctx, h.engine.Session().Token, h.catalog, h.specs)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	result.Deterministic = replay.Deterministic()
	for _, d := range replay.Divergences {
		result.AddError("replay diverged: " + d.String())
	}

	return nil
}

// ConvertPayload converts YAML-decoded payload data to an ir.Object.
// A nil payload is the empty object.
// Null values are rejected: canonical JSON cannot hash them.
func ConvertPayload(payload map[string]any) (ir.Object, error) {
	if payload == nil {
		return ir.Object{}, nil
	}
	if err := rejectNulls(payload); err != nil {
		return nil, err
	}
	v, err := ir.FromGo(payload)
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return v.(ir.Object), nil
}

var errNullPayload = errors.New("null values are not allowed in payloads")

func rejectNulls(v any) error {
	switch val := v.(type) {
	case nil:
		return errNullPayload
	case map[string]any:
		for k, e := range val {
			if err := rejectNulls(e); err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
		}
	case []any:
		for i, e := range val {
			if err := rejectNulls(e); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	}
	return nil
}
