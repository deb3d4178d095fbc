package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/statebox/internal/catalog"
	"github.com/roach88/statebox/internal/engine"
	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/journal"
	"github.com/roach88/statebox/internal/metrics"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Script   string
	Database string
	Session  string
	Metrics  bool

	// SessionGenerator allows overriding the session token generator (for
	// testing). If nil, defaults to UUIDv7Generator. A --session flag or a
	// script session takes precedence.
	SessionGenerator engine.TokenGenerator
}

// RunStep is one applied (or failed) action in a run.
type RunStep struct {
	Seq     int64    `json:"seq"`
	ID      string   `json:"id,omitempty"`
	Action  string   `json:"action"`
	Changed []string `json:"changed"`
	Error   string   `json:"error,omitempty"`
}

// RunResult holds the outcome of a run.
type RunResult struct {
	Session string    `json:"session"`
	Applied int       `json:"applied"`
	Failed  int       `json:"failed"`
	Steps   []RunStep `json:"steps"`
	Slices  []string  `json:"slices"`
	Final   ir.Object `json:"final"`
	Metrics string    `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <defs-dir>",
		Short: "Run an action script through a store",
		Long: `Build a store from CUE definitions and dispatch a scripted list of
actions through the engine, one at a time, in order.

Prints every applied action with the slices it changed, then the final
state. With --db every action and changed slice is journaled to SQLite
(created if it doesn't exist) for later replay and trace. With --metrics
the dispatch counters are printed in Prometheus text format.

Example:
  statebox run --script actions.yaml ./defs
  statebox run --script actions.yaml --db ./statebox.db --metrics ./defs`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStore(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Script, "script", "", "path to the action script YAML (required)")
	_ = cmd.MarkFlagRequired("script")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (optional)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session token (default: script session or a new UUIDv7)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics after the run")

	return cmd
}

func runStore(opts *RunOptions, defsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()
	cat := catalog.Default()

	logger.Debug("compiling definitions", "dir", defsDir)
	specs, err := CompileDefinitions(defsDir, cat)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile definitions", err)
	}
	logger.Debug("definitions compiled", "slices", len(specs))

	script, err := LoadScript(opts.Script)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load script", err)
	}
	actions, err := script.Decode()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load script", err)
	}

	var applied []engine.Applied
	engOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.OnApplied(func(a engine.Applied) { applied = append(applied, a) }),
	}

	if opts.Database != "" {
		logger.Debug("opening journal", "path", opts.Database)
		j, err := journal.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		engOpts = append(engOpts, engine.WithJournal(j))
	}

	registry := prometheus.NewRegistry()
	if opts.Metrics {
		collector := metrics.New(registry, metrics.WithConstLabels(prometheus.Labels{
			"store": filepath.Base(filepath.Clean(defsDir)),
		}))
		engOpts = append(engOpts, engine.WithObserver(collector), engine.OnApplied(collector.Applied))
	}

	eng, err := engine.New(cat, specs, sessionGenerator(opts, script), engOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build store", err)
	}

	if err := enqueueScript(eng, actions); err != nil {
		return err
	}
	eng.Stop()

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitCommandError, "engine error", err)
	}

	result, err := buildRunResult(eng, applied)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read final state", err)
	}

	if opts.Metrics {
		var buf bytes.Buffer
		if err := metrics.WriteText(&buf, registry); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
		result.Metrics = buf.String()
	}

	if formatter.IsJSON() {
		return outputRunJSON(formatter, result)
	}
	return outputRunText(formatter, result)
}

// enqueueScript queues every script action, failing if the engine has
// already stopped accepting them.
func enqueueScript(eng *engine.Engine, actions []ScriptAction) error {
	for i, a := range actions {
		if !eng.EnqueueTag(a.Tag, a.Payload) {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("action %d (%s): engine stopped before the script was queued", i, a.Tag))
		}
	}
	return nil
}

// sessionGenerator picks the session token source: --session, then the
// script's session, then the configured generator, then a UUIDv7.
func sessionGenerator(opts *RunOptions, script *Script) engine.TokenGenerator {
	switch {
	case opts.Session != "":
		return engine.NewFixedGenerator(opts.Session)
	case script.Session != "":
		return engine.NewFixedGenerator(script.Session)
	case opts.SessionGenerator != nil:
		return opts.SessionGenerator
	default:
		return engine.UUIDv7Generator{}
	}
}

// signalContext derives a context cancelled on SIGINT/SIGTERM.
// Uses the command's context if available (for testing).
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan) // Prevent signal handler leak
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func buildRunResult(eng *engine.Engine, applied []engine.Applied) (*RunResult, error) {
	store := eng.Instance().Store
	final, err := store.SnapshotAll()
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		Session: eng.Session().Token,
		Steps:   make([]RunStep, 0, len(applied)),
		Slices:  store.Slices(),
		Final:   final,
	}
	for _, a := range applied {
		step := RunStep{
			Seq:     a.Record.Seq,
			ID:      a.Record.ID,
			Action:  a.Record.Tag,
			Changed: a.Record.Changed,
		}
		if step.Changed == nil {
			step.Changed = []string{}
		}
		if a.Err != nil {
			var re *engine.RuntimeError
			if errors.As(a.Err, &re) && re.Tag != "" {
				step.Action = re.Tag
			}
			step.Error = a.Err.Error()
			result.Failed++
		} else {
			result.Applied++
		}
		result.Steps = append(result.Steps, step)
	}
	return result, nil
}

// outputRunJSON outputs the run result as JSON.
func outputRunJSON(formatter *OutputFormatter, result *RunResult) error {
	response := CLIResponse{
		Status:  "ok",
		Data:    result,
		TraceID: result.Session,
	}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDispatch,
			Message: fmt.Sprintf("%d action(s) failed", result.Failed),
		}
	}

	if err := formatter.Respond(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d action(s) failed", result.Failed))
	}
	return nil
}

// outputRunText outputs the run result as text.
func outputRunText(formatter *OutputFormatter, result *RunResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Session: %s\n\n", result.Session)
	for _, step := range result.Steps {
		switch {
		case step.Error != "":
			fmt.Fprintf(w, "  ✗ %s: %s\n", step.Action, step.Error)
		case len(step.Changed) == 0:
			fmt.Fprintf(w, "  [%d] %s (no change)\n", step.Seq, step.Action)
		default:
			fmt.Fprintf(w, "  [%d] %s -> %v\n", step.Seq, step.Action, step.Changed)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Final state:")
	for _, name := range result.Slices {
		fmt.Fprintf(w, "  %s: %s\n", name, canonicalText(result.Final[name]))
	}

	if result.Metrics != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Metrics:")
		fmt.Fprint(w, result.Metrics)
	}
	fmt.Fprintln(w)

	if result.Failed > 0 {
		fmt.Fprintf(w, "✗ %d of %d action(s) failed\n", result.Failed, len(result.Steps))
		return NewExitError(ExitFailure, fmt.Sprintf("%d action(s) failed", result.Failed))
	}

	fmt.Fprintf(w, "✓ Applied %d action(s)\n", result.Applied)
	return nil
}
