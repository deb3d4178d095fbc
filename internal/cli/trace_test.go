package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/journal"
)

func TestTraceMissingFlags(t *testing.T) {
	_, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", "x.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "session")
}

func TestTraceMissingJournal(t *testing.T) {
	_, err := execute(NewTraceCommand(&RootOptions{Format: "text"}),
		"--db", filepath.Join(t.TempDir(), "missing.db"), "--session", "demo-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "journal not found")
}

func TestTraceUnknownSession(t *testing.T) {
	dbPath := recordSession(t)

	_, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--session", "nobody")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "session not found")
}

func TestTraceText(t *testing.T) {
	dbPath := recordSession(t)

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--session", "demo-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for Session: demo-1")
	assert.Contains(t, out, "=== Initial ===")
	assert.Contains(t, out, "  counter: 0")
	assert.Contains(t, out, "=== Timeline ===")
	assert.Contains(t, out, "  [1] [Counter Component] IncrementByOne -> counter")
	assert.Contains(t, out, "       counter = 1")
	assert.Contains(t, out, "  [3] [User] Set User -> user")
	assert.Contains(t, out, "       user = {email=alice@example.com, id=u1, name=Alice}")
	assert.Contains(t, out, "  [4] [Nobody] Home (no change)")
	assert.Contains(t, out, "=== Stats ===")
	assert.Contains(t, out, "  Total Actions: 5")
	assert.Contains(t, out, "  No-ops:        1")
	assert.Contains(t, out, "  counter changes: 3")
	assert.Contains(t, out, "  user changes: 1")
	assert.NotContains(t, out, "Payload:")
}

func TestTraceVerbose(t *testing.T) {
	dbPath := recordSession(t)

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text", Verbose: true}),
		"--db", dbPath, "--session", "demo-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Spec hash: ")
	assert.Contains(t, out, "       Payload: {user={email=alice@example.com, id=u1, name=Alice}}")
	assert.Contains(t, out, "       ID: ")
}

func TestTraceFilterByAction(t *testing.T) {
	dbPath := recordSession(t)

	out, err := execute(NewTraceCommand(&RootOptions{Format: "json"}),
		"--db", dbPath, "--session", "demo-1", "--action", "[Counter Component] IncrementByOne")
	require.NoError(t, err)

	var resp struct {
		Status  string      `json:"status"`
		TraceID string      `json:"trace_id"`
		Data    TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "demo-1", resp.TraceID)

	require.Len(t, resp.Data.Timeline, 2)
	assert.Equal(t, int64(1), resp.Data.Timeline[0].Seq)
	assert.Equal(t, int64(2), resp.Data.Timeline[1].Seq)
	assert.Equal(t, float64(2), resp.Data.Timeline[1].Snapshots["counter"])
	assert.Equal(t, 2, resp.Data.Stats.TotalActions)
	assert.Equal(t, 2, resp.Data.Stats.SliceChanges["counter"])
}

func TestBuildStats(t *testing.T) {
	entries := []journal.Entry{
		{Action: ir.ActionRecord{Seq: 1, Tag: "a", Changed: []string{"counter", "user"}}},
		{Action: ir.ActionRecord{Seq: 2, Tag: "b", Changed: []string{}}},
		{Action: ir.ActionRecord{Seq: 3, Tag: "a", Changed: []string{"counter"}}},
	}

	stats := buildStats(entries)
	assert.Equal(t, 3, stats.TotalActions)
	assert.Equal(t, 1, stats.NoOps)
	assert.Equal(t, map[string]int{"counter": 2, "user": 1}, stats.SliceChanges)
}

func TestBuildTimeline_NilChangedIsEmpty(t *testing.T) {
	timeline := buildTimeline([]journal.Entry{{Action: ir.ActionRecord{Seq: 1, Tag: "a"}}})
	require.Len(t, timeline, 1)
	assert.NotNil(t, timeline[0].Changed)
	assert.Equal(t, map[string]any{}, timeline[0].Payload)
	assert.Nil(t, timeline[0].Snapshots)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "x", "x"},
		{"int", int64(3), "3"},
		{"bool", true, "true"},
		{"list", []any{int64(1), "a"}, "[1, a]"},
		{"nested map sorted", map[string]any{"b": int64(2), "a": map[string]any{"z": "y"}}, "{a={z=y}, b=2}"},
		{"empty map", map[string]any{}, "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.in))
		})
	}
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", truncateID("short"))
	long := "0123456789abcdef0123456789abcdef"
	assert.Equal(t, "01234567...89abcdef", truncateID(long))
}

func TestOutputTraceText_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, outputTraceText(buf, TraceResult{Session: "s", Stats: TraceStats{SliceChanges: map[string]int{}}}, false))
	assert.Contains(t, buf.String(), "  (no slices)")
	assert.Contains(t, buf.String(), "  (no actions)")
}
