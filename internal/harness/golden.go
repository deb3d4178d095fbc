package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/statebox/internal/ir"
)

// TraceSnapshot captures the trace and final state of a scenario execution.
// Action IDs are left out: they are checked by replay, and omitting them
// keeps golden files readable.
type TraceSnapshot struct {
	ScenarioName string
	Session      string
	Trace        []TraceEvent
	Final        ir.Object
}

// Value converts the snapshot to an ir.Object for canonical serialization.
func (s *TraceSnapshot) Value() ir.Object {
	trace := make(ir.Array, len(s.Trace))
	for i, event := range s.Trace {
		changed := make(ir.Array, len(event.Changed))
		for j, name := range event.Changed {
			changed[j] = ir.String(name)
		}
		payload := event.Payload
		if payload == nil {
			payload = ir.Object{}
		}
		ev := ir.Obj(
			ir.P("seq", ir.Int(event.Seq)),
			ir.P("action", ir.String(event.Action)),
			ir.P("payload", payload),
			ir.P("changed", changed),
		)
		if event.Error != "" {
			ev["error"] = ir.String(event.Error)
		}
		trace[i] = ev
	}

	final := s.Final
	if final == nil {
		final = ir.Object{}
	}

	obj := ir.Obj(
		ir.P("scenario_name", ir.String(s.ScenarioName)),
		ir.P("trace", trace),
		ir.P("final", final),
	)
	if s.Session != "" {
		obj["session"] = ir.String(s.Session)
	}
	return obj
}

// Marshal returns the canonical JSON encoding of the snapshot.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.Value())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check assertions. A trace that
// doesn't match the golden file fails t via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Session:      scenario.Session,
		Trace:        result.Trace,
		Final:        result.State,
	}
	if err := assertSnapshot(t, scenario.Name, &snapshot); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Final:        result.State,
	}
	return assertSnapshot(t, scenarioName, &snapshot)
}

func assertSnapshot(t *testing.T, name string, snapshot *TraceSnapshot) error {
	t.Helper()

	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
