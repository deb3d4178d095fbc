package harness

import "github.com/roach88/statebox/internal/ir"

// TraceEvent is one processed dispatch step.
type TraceEvent struct {
	Seq     int64     `json:"seq"`
	ID      string    `json:"id,omitempty"`
	Action  string    `json:"action"`
	Payload ir.Object `json:"payload"`
	Changed []string  `json:"changed"`

	// Error is set when the engine failed to apply the action. Failed
	// actions have no seq or ID.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every assertion held and replay was deterministic.
	Pass bool `json:"pass"`

	// Trace lists dispatch steps in processing order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final encoded value of every slice.
	State ir.Object `json:"state"`

	// Notifications counts, per slice, the subscriber deliveries after the
	// initial replay.
	Notifications map[string]int `json:"notifications"`

	// Deterministic reports whether replaying the journal reproduced the
	// run exactly.
	Deterministic bool `json:"deterministic"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:          true,
		Trace:         []TraceEvent{},
		Errors:        []string{},
		State:         ir.Object{},
		Notifications: make(map[string]int),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
