package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statebox/internal/journal"
)

func TestReplayMissingDatabaseFlag(t *testing.T) {
	_, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), defsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayMissingJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing.db")
	_, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath, defsDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "journal not found")
	assert.NoFileExists(t, dbPath, "replay must not create a journal")
}

func TestReplayEmptyJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	out, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath, defsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found in journal.")
}

func TestReplayDeterministic(t *testing.T) {
	dbPath := recordSession(t)

	out, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath, defsDir)
	require.NoError(t, err)

	assert.Contains(t, out, "Replay Summary: 1 session(s)")
	assert.Contains(t, out, "✓ Session: demo-1")
	assert.Contains(t, out, "  Actions: 5")
	assert.Contains(t, out, "✓ All sessions verified deterministic")
}

func TestReplayDeterministicJSON(t *testing.T) {
	dbPath := recordSession(t)

	out, err := execute(NewReplayCommand(&RootOptions{Format: "json"}),
		"--db", dbPath, "--session", "demo-1", defsDir)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.AllDeterministic)
	require.Len(t, resp.Data.Sessions, 1)
	assert.Equal(t, 5, resp.Data.Sessions[0].Actions)
	assert.Empty(t, resp.Data.Sessions[0].Divergences)
}

func TestReplayChangedDefinitionsDiverge(t *testing.T) {
	dbPath := recordSession(t)

	out, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath, defsFiveDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ Session: demo-1")
	assert.Contains(t, out, "Divergence: spec_hash")
	assert.Contains(t, out, "Divergence: initial_state slice=counter: expected 0, got 5")
	assert.Contains(t, out, "✗ Determinism verification failed")
}

func TestReplayDivergenceJSON(t *testing.T) {
	dbPath := recordSession(t)

	out, err := execute(NewReplayCommand(&RootOptions{Format: "json"}), "--db", dbPath, defsFiveDir)
	require.Error(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDeterminism, resp.Error.Code)
	assert.False(t, resp.Data.AllDeterministic)

	kinds := map[journal.DivergenceKind]bool{}
	for _, d := range resp.Data.Sessions[0].Divergences {
		kinds[d.Kind] = true
	}
	assert.True(t, kinds[journal.DivergenceSpecHash])
	assert.True(t, kinds[journal.DivergenceInitial])
	assert.True(t, kinds[journal.DivergenceSnapshot])
}

func TestReplayUnknownSession(t *testing.T) {
	dbPath := recordSession(t)

	_, err := execute(NewReplayCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "--session", "nobody", defsDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "session not found: nobody")
}
