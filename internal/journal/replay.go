package journal

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/statebox/internal/catalog"
	"github.com/roach88/statebox/internal/ir"
)

// DivergenceKind names what a replay found to differ from the journal.
type DivergenceKind string

const (
	DivergenceSpecHash DivergenceKind = "spec_hash"
	DivergenceInitial  DivergenceKind = "initial_state"
	DivergenceActionID DivergenceKind = "action_id"
	DivergenceChanged  DivergenceKind = "changed"
	DivergenceSnapshot DivergenceKind = "snapshot"
)

// Divergence is one difference between a journaled session and its replay.
// Expected and Actual are canonical JSON (or plain strings for IDs).
type Divergence struct {
	Kind     DivergenceKind `json:"kind"`
	Seq      int64          `json:"seq,omitempty"`
	ActionID string         `json:"action_id,omitempty"`
	Slice    string         `json:"slice,omitempty"`
	Expected string         `json:"expected"`
	Actual   string         `json:"actual"`
}

func (d Divergence) String() string {
	var b strings.Builder
	b.WriteString(string(d.Kind))
	if d.Seq > 0 {
		fmt.Fprintf(&b, " seq=%d", d.Seq)
	}
	if d.Slice != "" {
		fmt.Fprintf(&b, " slice=%s", d.Slice)
	}
	fmt.Fprintf(&b, ": expected %s, got %s", d.Expected, d.Actual)
	return b.String()
}

// ReplayResult is the outcome of re-folding a journaled session.
type ReplayResult struct {
	Session     ir.Session   `json:"session"`
	Actions     int          `json:"actions"`
	Divergences []Divergence `json:"divergences"`
	Final       ir.Object    `json:"final"`
}

// Deterministic reports whether the replay matched the journal exactly.
func (r *ReplayResult) Deterministic() bool {
	return len(r.Divergences) == 0
}

// Replay rebuilds a fresh store from specs, re-dispatches every journaled
// action of the session in seq order and compares each step with what was
// recorded: action IDs, changed slices and post-action snapshots. Since
// reducers are pure, any difference means the definitions or reducers
// changed since the session was recorded.
func (j *Journal) Replay(ctx context.Context, token string, cat *catalog.Catalog, specs []ir.SliceSpec) (*ReplayResult, error) {
	sess, err := j.ReadSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("replay %s: read session: %w", token, err)
	}
	result := &ReplayResult{Session: sess, Divergences: []Divergence{}}

	specHash, err := ir.SpecHash(specs)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", token, err)
	}
	if specHash != sess.SpecHash {
		result.Divergences = append(result.Divergences, Divergence{
			Kind:     DivergenceSpecHash,
			Expected: sess.SpecHash,
			Actual:   specHash,
		})
	}

	inst, err := cat.Build(specs)
	if err != nil {
		return nil, fmt.Errorf("replay %s: build store: %w", token, err)
	}

	initial, err := j.ReadInitialStates(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", token, err)
	}
	for _, snap := range initial {
		result.Divergences = append(result.Divergences,
			compareSnapshot(inst.Store.Snapshot, DivergenceInitial, 0, "", snap)...)
	}

	entries, err := j.ReadTrace(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", token, err)
	}

	for _, entry := range entries {
		rec := entry.Action

		id, err := ir.ActionID(rec.Session, rec.Tag, rec.Payload, rec.Seq)
		if err != nil {
			return nil, fmt.Errorf("replay %s: seq %d: %w", token, rec.Seq, err)
		}
		if id != rec.ID {
			result.Divergences = append(result.Divergences, Divergence{
				Kind:     DivergenceActionID,
				Seq:      rec.Seq,
				ActionID: rec.ID,
				Expected: rec.ID,
				Actual:   id,
			})
		}

		step, err := inst.ApplyTag(rec.Tag, rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("replay %s: seq %d: %w", token, rec.Seq, err)
		}
		result.Actions++

		changed := step.Changed
		if !slices.Equal(changed, rec.Changed) {
			result.Divergences = append(result.Divergences, Divergence{
				Kind:     DivergenceChanged,
				Seq:      rec.Seq,
				ActionID: rec.ID,
				Expected: "[" + strings.Join(rec.Changed, ",") + "]",
				Actual:   "[" + strings.Join(changed, ",") + "]",
			})
		}

		for _, snap := range entry.Snapshots {
			result.Divergences = append(result.Divergences,
				compareSnapshot(inst.Store.Snapshot, DivergenceSnapshot, rec.Seq, rec.ID, snap)...)
		}
	}

	final, err := inst.Store.SnapshotAll()
	if err != nil {
		return nil, fmt.Errorf("replay %s: final state: %w", token, err)
	}
	result.Final = final

	return result, nil
}

// compareSnapshot checks a recorded slice value against the replayed one.
func compareSnapshot(read func(string) (ir.Value, error), kind DivergenceKind, seq int64, actionID string, want ir.SliceSnapshot) []Divergence {
	expected := canonicalString(want.Value)

	got, err := read(want.Slice)
	if err != nil {
		return []Divergence{{
			Kind:     kind,
			Seq:      seq,
			ActionID: actionID,
			Slice:    want.Slice,
			Expected: expected,
			Actual:   err.Error(),
		}}
	}
	if ir.Equal(want.Value, got) {
		return nil
	}
	return []Divergence{{
		Kind:     kind,
		Seq:      seq,
		ActionID: actionID,
		Slice:    want.Slice,
		Expected: expected,
		Actual:   canonicalString(got),
	}}
}

func canonicalString(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
