package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/statebox/internal/catalog"
	"github.com/roach88/statebox/internal/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session       string               `json:"session"`
	Actions       int                  `json:"actions"`
	Deterministic bool                 `json:"deterministic"`
	Divergences   []journal.Divergence `json:"divergences,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <defs-dir>",
		Short: "Replay journaled sessions and verify determinism",
		Long: `Replay journaled sessions through a fresh store and verify determinism.

Each session's actions are re-dispatched in seq order against a store
built from the given definitions. The spec hash, initial state, action IDs,
changed slices and post-action snapshots must all match what was journaled.

Exit codes:
  0 - All sessions are deterministic
  1 - Determinism verification failed (divergences detected)
  2 - Command error (journal not found, etc.)

Examples:
  statebox replay --db ./statebox.db ./defs
  statebox replay --db ./statebox.db --session demo-1 ./defs
  statebox replay --db ./statebox.db --format json ./defs`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, defsDir string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)
	cat := catalog.Default()

	specs, err := CompileDefinitions(defsDir, cat)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile definitions", err)
	}

	j, err := openExistingJournal(opts.Database)
	if err != nil {
		return err
	}
	defer j.Close()

	tokens, err := sessionTokens(ctx, j, opts.Session)
	if err != nil {
		return err
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(tokens)),
		TotalSessions:    len(tokens),
		AllDeterministic: true,
	}

	for _, token := range tokens {
		formatter.VerboseLog("Replaying session: %s", token)
		replay, err := j.Replay(ctx, token, cat, specs)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", token), err)
		}

		sessionResult := ReplaySessionResult{
			Session:       token,
			Actions:       replay.Actions,
			Deterministic: replay.Deterministic(),
			Divergences:   replay.Divergences,
		}
		result.Sessions = append(result.Sessions, sessionResult)
		if !sessionResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if formatter.IsJSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// openExistingJournal opens a journal that must already exist. Opening a
// missing path would silently create an empty database.
func openExistingJournal(path string) (*journal.Journal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", path), err)
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return j, nil
}

// sessionTokens returns the one requested session, checking it exists, or
// every session in the journal.
func sessionTokens(ctx context.Context, j *journal.Journal, token string) ([]string, error) {
	if token != "" {
		if _, err := j.ReadSession(ctx, token); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", token))
			}
			return nil, WrapExitError(ExitCommandError, "failed to read session", err)
		}
		return []string{token}, nil
	}

	sessions, err := j.ReadSessions(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to list sessions", err)
	}
	tokens := make([]string, len(sessions))
	for i, s := range sessions {
		tokens[i] = s.Token
	}
	return tokens, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "determinism verification failed",
		}
	}

	if err := formatter.Respond(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	if result.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in journal.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, sess := range result.Sessions {
		status := "✓"
		if !sess.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Session: %s\n", status, sess.Session)
		fmt.Fprintf(w, "  Actions: %d\n", sess.Actions)

		for _, d := range sess.Divergences {
			fmt.Fprintf(w, "  Divergence: %s\n", d.String())
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All sessions verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
