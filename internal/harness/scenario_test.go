package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestSpec writes a store definition and returns its path.
func createTestSpec(t *testing.T, dir, name string) string {
	t.Helper()
	specsDir := filepath.Join(dir, "specs")
	require.NoError(t, os.MkdirAll(specsDir, 0755))
	specPath := filepath.Join(specsDir, name)
	content := "slice: counter: { reducer: \"counter\", initial: 0 }\nslice: user: reducer: \"user\"\n"
	require.NoError(t, os.WriteFile(specPath, []byte(content), 0644))
	return specPath
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	createTestSpec(t, dir, "store.cue")
	scenarioPath := filepath.Join(dir, "test.yaml")

	content := `
name: test_scenario
description: "Test scenario for validation"
specs:
  - specs/store.cue
dispatch:
  - action: "[User] Set User"
    payload:
      user:
        id: "u1"
  - action: "[Counter Component] Reset"
assertions:
  - type: final_state
    slice: counter
    expect: 0
`
	require.NoError(t, os.WriteFile(scenarioPath, []byte(content), 0644))

	scenario, err := LoadScenario(scenarioPath)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, []string{filepath.Join(dir, "specs", "store.cue")}, scenario.Specs, "resolved against the scenario file")
	require.Len(t, scenario.Dispatch, 2)
	assert.Equal(t, "[User] Set User", scenario.Dispatch[0].Action)
	assert.Equal(t, map[string]any{"id": "u1"}, scenario.Dispatch[0].Payload["user"])
	assert.Nil(t, scenario.Dispatch[1].Payload)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, 0, scenario.Assertions[0].Expect)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingSpecFile(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "test.yaml")
	content := `
name: missing_spec
description: "Spec does not exist"
specs:
  - specs/ghost.cue
assertions:
  - type: trace_count
    action: "[Counter Component] Reset"
    count: 0
`
	require.NoError(t, os.WriteFile(scenarioPath, []byte(content), 0644))

	_, err := LoadScenario(scenarioPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spec file not found")
}

func TestParseScenario_UnknownFieldRejected(t *testing.T) {
	content := `
name: typo
description: "assertion instead of assertions"
specs: [store.cue]
assertion:
  - type: final_state
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nspecs: [a.cue]\nassertions: [{type: trace_count, action: x, count: 0}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nspecs: [a.cue]\nassertions: [{type: trace_count, action: x, count: 0}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing specs",
			content: "name: n\ndescription: d\nassertions: [{type: trace_count, action: x, count: 0}]\n",
			wantErr: "specs list is required",
		},
		{
			name:    "missing assertions",
			content: "name: n\ndescription: d\nspecs: [a.cue]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "empty dispatch action",
			content: "name: n\ndescription: d\nspecs: [a.cue]\ndispatch: [{payload: {a: 1}}]\nassertions: [{type: trace_count, action: x, count: 0}]\n",
			wantErr: "dispatch[0]: action is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_AssertionValidation(t *testing.T) {
	tests := []struct {
		name      string
		assertion string
		wantErr   string
	}{
		{"missing type", "{slice: counter}", "type is required"},
		{"unknown type", "{type: eventually}", `unknown assertion type "eventually"`},
		{"final_state without slice", "{type: final_state, expect: 1}", "slice is required for final_state"},
		{"final_state without expect", "{type: final_state, slice: counter}", "expect is required for final_state"},
		{"selector without name", "{type: selector, expect: 1}", "selector is required for selector"},
		{"selector without expect", "{type: selector, selector: counter.count}", "expect is required for selector"},
		{"notification_count without slice", "{type: notification_count, count: 1}", "slice is required for notification_count"},
		{"negative notification_count", "{type: notification_count, slice: counter, count: -1}", "count must be non-negative"},
		{"trace_contains without action", "{type: trace_contains}", "action is required for trace_contains"},
		{"trace_order without actions", "{type: trace_order}", "actions list is required for trace_order"},
		{"trace_count without action", "{type: trace_count, count: 1}", "action is required for trace_count"},
		{"negative trace_count", "{type: trace_count, action: x, count: -2}", "count must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "name: n\ndescription: d\nspecs: [a.cue]\nassertions: [" + tt.assertion + "]\n"
			_, err := ParseScenario([]byte(content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_FalsyExpectIsPresent(t *testing.T) {
	content := `
name: falsy
description: "zero, false and {} are real expectations"
specs: [a.cue]
assertions:
  - type: final_state
    slice: counter
    expect: 0
  - type: selector
    selector: user.isLoggedIn
    expect: false
  - type: final_state
    slice: user
    expect: {}
`
	scenario, err := ParseScenario([]byte(content))
	require.NoError(t, err)
	require.Len(t, scenario.Assertions, 3)
	assert.Equal(t, 0, scenario.Assertions[0].Expect)
	assert.Equal(t, false, scenario.Assertions[1].Expect)
	assert.Equal(t, map[string]any{}, scenario.Assertions[2].Expect)
}

func TestLoadScenario_Testdata(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			scenario, err := LoadScenario(file)
			require.NoError(t, err)
			assert.NotEmpty(t, scenario.Name)
		})
	}
}
