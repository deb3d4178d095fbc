package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statebox/internal/catalog"
)

func TestFindScenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata/scenarios", "counter_increments.yaml"),
		filepath.Join("testdata/scenarios", "reset_from_five.yaml"),
		filepath.Join("testdata/scenarios", "unknown_action.yaml"),
		filepath.Join("testdata/scenarios", "user_login.yaml"),
	}, files)

	single, err := FindScenarios("testdata/scenarios/user_login.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"testdata/scenarios/user_login.yaml"}, single)

	_, err = FindScenarios("testdata/nope")
	require.Error(t, err)
}

func TestRunSuite_Testdata(t *testing.T) {
	suite, err := RunSuite("testdata/scenarios", catalog.Default())
	require.NoError(t, err)

	assert.Equal(t, 4, suite.TotalScenarios)
	assert.Equal(t, 4, suite.Passed)
	assert.True(t, suite.Pass())
	for _, r := range suite.Results {
		assert.True(t, r.Pass, "%s: %v", r.Path, r.Errors)
	}
}

func TestRunSuite_CollectsFailures(t *testing.T) {
	dir := t.TempDir()
	spec, err := filepath.Abs("testdata/defs/store.cue")
	require.NoError(t, err)

	failing := `
name: failing
description: "Wrong final counter"
specs: [` + spec + `]
dispatch:
  - action: "[Counter Component] IncrementByOne"
assertions:
  - type: final_state
    slice: counter
    expect: 7
`
	broken := "name: broken\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_failing.yaml"), []byte(failing), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_broken.yml"), []byte(broken), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	suite, err := RunSuite(dir, catalog.Default())
	require.NoError(t, err)

	assert.Equal(t, 2, suite.TotalScenarios)
	assert.Equal(t, 2, suite.Failed)
	assert.False(t, suite.Pass())
	require.Len(t, suite.Results, 2)
	assert.Equal(t, "failing", suite.Results[0].Name)
	assert.Contains(t, suite.Results[0].Errors[0], "final_state")
	assert.Contains(t, suite.Results[1].Errors[0], "failed to load scenario")
}
