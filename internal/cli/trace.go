package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Action   string // optional - filter to specific action tag
}

// TraceEvent is one journaled action in the timeline.
type TraceEvent struct {
	Seq       int64          `json:"seq"`
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Payload   map[string]any `json:"payload"`
	Changed   []string       `json:"changed"`
	Snapshots map[string]any `json:"snapshots,omitempty"` // slice values after the action
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session  string         `json:"session"`
	SpecHash string         `json:"spec_hash"`
	Initial  map[string]any `json:"initial"`
	Timeline []TraceEvent   `json:"timeline"`
	Stats    TraceStats     `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalActions int            `json:"total_actions"`
	NoOps        int            `json:"no_ops"` // actions that changed no slice
	SliceChanges map[string]int `json:"slice_changes"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the journaled action trace of a session",
		Long: `Print the journaled actions of a session in seq order.

The output includes:
- Initial: every slice's value when the session started
- Timeline: each action with its payload, the slices it changed and their
  new values
- Stats: how often each slice changed and how many actions were no-ops

Examples:
  statebox trace --db ./statebox.db --session demo-1
  statebox trace --db ./statebox.db --session demo-1 --action "[Counter Component] Reset"
  statebox trace --db ./statebox.db --session demo-1 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session token to trace (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().StringVar(&opts.Action, "action", "", "filter to specific action tag")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	j, err := openExistingJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	if _, err := sessionTokens(ctx, j, opts.Session); err != nil {
		return err
	}
	sess, err := j.ReadSession(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	initial, err := j.ReadInitialStates(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read initial state", err)
	}

	entries, err := readEntries(ctx, j, opts.Session, opts.Action)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	result := TraceResult{
		Session:  sess.Token,
		SpecHash: sess.SpecHash,
		Initial:  snapshotsToMap(initial),
		Timeline: buildTimeline(entries),
		Stats:    buildStats(entries),
	}

	if formatter.IsJSON() {
		return formatter.Respond(CLIResponse{Status: "ok", Data: result, TraceID: result.Session})
	}
	return outputTraceText(formatter.Writer, result, opts.Verbose)
}

// readEntries returns the session's journal entries, optionally only those
// with the given tag. Filtering uses the tag index.
func readEntries(ctx context.Context, j *journal.Journal, token, tag string) ([]journal.Entry, error) {
	if tag == "" {
		return j.ReadTrace(ctx, token)
	}

	actions, err := j.ReadActionsByTag(ctx, token, tag)
	if err != nil {
		return nil, err
	}
	entries := make([]journal.Entry, len(actions))
	for i, a := range actions {
		snaps, err := j.ReadSnapshots(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		entries[i] = journal.Entry{Action: a, Snapshots: snaps}
	}
	return entries, nil
}

// buildTimeline converts journal entries to timeline events.
func buildTimeline(entries []journal.Entry) []TraceEvent {
	timeline := make([]TraceEvent, 0, len(entries))
	for _, e := range entries {
		event := TraceEvent{
			Seq:     e.Action.Seq,
			ID:      e.Action.ID,
			Action:  e.Action.Tag,
			Payload: irObjectToMap(e.Action.Payload),
			Changed: e.Action.Changed,
		}
		if event.Changed == nil {
			event.Changed = []string{}
		}
		if len(e.Snapshots) > 0 {
			event.Snapshots = snapshotsToMap(e.Snapshots)
		}
		timeline = append(timeline, event)
	}
	return timeline
}

func buildStats(entries []journal.Entry) TraceStats {
	stats := TraceStats{
		TotalActions: len(entries),
		SliceChanges: make(map[string]int),
	}
	for _, e := range entries {
		if len(e.Action.Changed) == 0 {
			stats.NoOps++
		}
		for _, name := range e.Action.Changed {
			stats.SliceChanges[name]++
		}
	}
	return stats
}

func snapshotsToMap(snaps []ir.SliceSnapshot) map[string]any {
	out := make(map[string]any, len(snaps))
	for _, s := range snaps {
		out[s.Slice] = ir.ToGo(s.Value)
	}
	return out
}

// irObjectToMap converts an ir.Object to a plain map.
func irObjectToMap(obj ir.Object) map[string]any {
	if obj == nil {
		return map[string]any{}
	}
	return ir.ToGo(obj).(map[string]any)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session)
	if verbose {
		fmt.Fprintf(w, "Spec hash: %s\n", result.SpecHash)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Initial ===")
	if len(result.Initial) == 0 {
		fmt.Fprintln(w, "  (no slices)")
	}
	for _, name := range sortedKeys(result.Initial) {
		fmt.Fprintf(w, "  %s: %s\n", name, formatValue(result.Initial[name]))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no actions)")
	} else {
		for _, event := range result.Timeline {
			formatTimelineEvent(w, event, verbose)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Actions: %d\n", result.Stats.TotalActions)
	fmt.Fprintf(w, "  No-ops:        %d\n", result.Stats.NoOps)
	for _, name := range sortedKeys(result.Stats.SliceChanges) {
		fmt.Fprintf(w, "  %s changes: %d\n", name, result.Stats.SliceChanges[name])
	}

	return nil
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event TraceEvent, verbose bool) {
	if len(event.Changed) == 0 {
		fmt.Fprintf(w, "  [%d] %s (no change)\n", event.Seq, event.Action)
	} else {
		fmt.Fprintf(w, "  [%d] %s -> %s\n", event.Seq, event.Action, strings.Join(event.Changed, ", "))
	}
	if verbose && len(event.Payload) > 0 {
		fmt.Fprintf(w, "       Payload: %s\n", formatArgs(event.Payload))
	}
	for _, name := range event.Changed {
		if v, ok := event.Snapshots[name]; ok {
			fmt.Fprintf(w, "       %s = %s\n", name, formatValue(v))
		}
	}
	if verbose {
		fmt.Fprintf(w, "       ID: %s\n", truncateID(event.ID))
	}
}

// formatArgs formats a map for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	var parts []string
	for _, k := range sortedKeys(args) {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
