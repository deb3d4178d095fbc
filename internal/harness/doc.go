// Package harness runs YAML scenarios against a store built from CUE
// definitions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	specs:
//	  - defs/store.cue
//	session: scenario-session-1
//	dispatch:
//	  - action: "[Counter Component] IncrementByOne"
//	  - action: "[User] Set User"
//	    payload: { user: { id: "u1", name: "Alice", email: "alice@example.com" } }
//	assertions:
//	  - type: final_state
//	    slice: counter
//	    expect: 1
//	  - type: selector
//	    selector: user.isLoggedIn
//	    expect: true
//	  - type: notification_count
//	    slice: counter
//	    count: 1
//
// # Assertion Types
//
//   - final_state: the encoded value of a slice equals expect
//   - selector: a qualified selector ("slice.selector") evaluates to expect
//   - notification_count: a slice's subscriber was notified exactly count
//     times after its initial replay
//   - trace_contains: an action appears in the trace with a matching payload
//     (subset match)
//   - trace_order: actions appear in the given relative order
//   - trace_count: an action appears exactly count times
//
// # Execution
//
// Run drives the real engine: every dispatch step is enqueued, the engine
// applies them in order and journals them to an in-memory SQLite journal,
// and the journal is replayed through a fresh store afterwards. A replay
// divergence fails the scenario regardless of its assertions.
//
// All scenarios execute with a fixed session token and a deterministic
// clock, so running a scenario twice produces identical traces and action
// IDs. RunWithGolden compares the canonical trace with a golden file.
package harness
