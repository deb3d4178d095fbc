package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var (
	defsDir     = filepath.Join("testdata", "defs")
	defsFiveDir = filepath.Join("testdata", "defs_five")
	invalidDir  = filepath.Join("testdata", "invalid")
	scriptPath  = filepath.Join("testdata", "scripts", "session.yaml")
)

// execute runs cmd with args and returns stdout. Diagnostic output (engine
// logs, verbose lines) is discarded.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// recordSession runs the demo script against defs, journaling to a fresh
// database, and returns the database path.
func recordSession(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	_, err := execute(NewRunCommand(&RootOptions{Format: "text"}),
		"--script", scriptPath, "--db", dbPath, defsDir)
	require.NoError(t, err)
	return dbPath
}
