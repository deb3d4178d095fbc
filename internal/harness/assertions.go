package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/statebox/internal/catalog"
	"github.com/roach88/statebox/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Action, canonical(event.Payload))
		}
	}

	return buf.String()
}

// AssertionContext provides the live store for state assertions.
type AssertionContext struct {
	Instance *catalog.Instance
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertSelector:
			if actx == nil || actx.Instance == nil {
				err = fmt.Errorf("assertion[%d]: selector requires a store", i)
			} else {
				err = assertSelector(actx.Instance, assertion)
			}
		case AssertNotificationCount:
			err = assertNotificationCount(result, assertion)
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertFinalState checks a slice's final encoded value.
func assertFinalState(result *Result, assertion Assertion) error {
	expected, err := ir.FromGo(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_state %s: expect: %w", assertion.Slice, err)
	}

	actual, ok := result.State[assertion.Slice]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("slice %s = %s", assertion.Slice, canonical(expected)),
			Actual:   fmt.Sprintf("no slice %s (have %v)", assertion.Slice, result.State.SortedKeys()),
		}
	}

	if !ir.Equal(expected, actual) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("slice %s = %s", assertion.Slice, canonical(expected)),
			Actual:   fmt.Sprintf("slice %s = %s", assertion.Slice, canonical(actual)),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertSelector evaluates a qualified selector against the final store.
func assertSelector(inst *catalog.Instance, assertion Assertion) error {
	expected, err := ir.FromGo(assertion.Expect)
	if err != nil {
		return fmt.Errorf("selector %s: expect: %w", assertion.Selector, err)
	}

	actual, err := inst.Select(assertion.Selector)
	if err != nil {
		return &AssertionError{
			Type:     AssertSelector,
			Expected: fmt.Sprintf("selector %s = %s", assertion.Selector, canonical(expected)),
			Actual:   fmt.Sprintf("%v (have %v)", err, inst.SelectorNames()),
		}
	}

	if !ir.Equal(expected, actual) {
		return &AssertionError{
			Type:     AssertSelector,
			Expected: fmt.Sprintf("selector %s = %s", assertion.Selector, canonical(expected)),
			Actual:   fmt.Sprintf("selector %s = %s", assertion.Selector, canonical(actual)),
		}
	}
	return nil
}

// assertNotificationCount checks how often a slice's subscriber fired after
// its replay.
func assertNotificationCount(result *Result, assertion Assertion) error {
	got, ok := result.Notifications[assertion.Slice]
	if !ok {
		return &AssertionError{
			Type:     AssertNotificationCount,
			Expected: fmt.Sprintf("%d notifications for %s", assertion.Count, assertion.Slice),
			Actual:   fmt.Sprintf("no slice %s", assertion.Slice),
		}
	}
	if got != assertion.Count {
		return &AssertionError{
			Type:     AssertNotificationCount,
			Expected: fmt.Sprintf("%d notifications for %s", assertion.Count, assertion.Slice),
			Actual:   fmt.Sprintf("%d notifications", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceContains checks if the trace contains an action matching the
// specified tag and payload (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	expected, err := ConvertPayload(assertion.Payload)
	if err != nil {
		return fmt.Errorf("trace_contains %s: %w", assertion.Action, err)
	}

	for _, event := range trace {
		if event.Action == assertion.Action && matchSubset(event.Payload, expected) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with payload %s", assertion.Action, canonical(expected)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
// Repeated tags in the expected list match successive occurrences.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(assertion.Actions) && event.Action == assertion.Actions[next] {
			next++
		}
	}

	if next < len(assertion.Actions) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
			Actual:   fmt.Sprintf("matched %d of %d; %s not found after position %d", next, len(assertion.Actions), assertion.Actions[next], next),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// matchSubset reports whether actual contains every key of expected with an
// equal value. Nested objects are matched by subset too.
func matchSubset(actual, expected ir.Object) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return false
		}
		wantObj, wantIsObj := want.(ir.Object)
		gotObj, gotIsObj := got.(ir.Object)
		if wantIsObj && gotIsObj {
			if !matchSubset(gotObj, wantObj) {
				return false
			}
			continue
		}
		if !ir.Equal(want, got) {
			return false
		}
	}
	return true
}

func canonical(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
