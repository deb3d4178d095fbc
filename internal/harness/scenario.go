package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a test scenario: store definitions, a dispatch script and
// assertions on the resulting state and trace.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists CUE files defining the store's slices.
	Specs []string `yaml:"specs"`

	// Session is an optional fixed session token. If empty, defaults to
	// testutil.DefaultSessionToken.
	Session string `yaml:"session,omitempty"`

	// Dispatch is the ordered list of actions to dispatch.
	Dispatch []Step `yaml:"dispatch"`

	// Assertions validate the final state, notifications and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one action to dispatch.
type Step struct {
	// Action is the action tag, e.g. "[Counter Component] Reset".
	Action string `yaml:"action"`

	// Payload is the action payload. Omitted means {}.
	Payload map[string]any `yaml:"payload,omitempty"`
}

// Assertion validates state, notifications or the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Slice names the slice (final_state, notification_count).
	Slice string `yaml:"slice,omitempty"`

	// Selector is a qualified selector name (selector).
	Selector string `yaml:"selector,omitempty"`

	// Expect is the expected value (final_state, selector). Compared
	// exactly after conversion to an IR value.
	Expect any `yaml:"expect,omitempty"`

	// Action is an action tag (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Payload is the expected payload subset (trace_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Actions is the expected relative order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number (notification_count, trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState        = "final_state"
	AssertSelector          = "selector"
	AssertNotificationCount = "notification_count"
	AssertTraceContains     = "trace_contains"
	AssertTraceOrder        = "trace_order"
	AssertTraceCount        = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file. Relative spec paths
// are resolved against the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file, resolving
// relative spec paths against basePath.
//
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	for _, specPath := range scenario.Specs {
		if _, err := os.Stat(specPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("invalid scenario: spec file not found: %s", specPath)
		}
	}

	return scenario, nil
}

// ParseScenario decodes scenario YAML with strict field checking (catches
// typos like "assertion:" vs "assertions:"). Spec paths are left as written
// and not checked for existence.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Dispatch {
		if step.Action == "" {
			return fmt.Errorf("dispatch[%d]: action is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalState:
		if a.Slice == "" {
			return fmt.Errorf("assertions[%d]: slice is required for final_state", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertSelector:
		if a.Selector == "" {
			return fmt.Errorf("assertions[%d]: selector is required for selector", index)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for selector", index)
		}
	case AssertNotificationCount:
		if a.Slice == "" {
			return fmt.Errorf("assertions[%d]: slice is required for notification_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for notification_count", index)
		}
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
