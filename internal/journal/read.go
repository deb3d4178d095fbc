package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/statebox/internal/ir"
)

// Entry is one journaled action with the snapshots written alongside it.
type Entry struct {
	Action    ir.ActionRecord    `json:"action"`
	Snapshots []ir.SliceSnapshot `json:"snapshots"`
}

// ReadSessions returns every session ordered by token. UUIDv7 tokens sort
// by creation time.
func (j *Journal) ReadSessions(ctx context.Context) ([]ir.Session, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT token, spec_hash, engine_version, ir_version
		FROM sessions
		ORDER BY token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []ir.Session{}
	for rows.Next() {
		var sess ir.Session
		if err := rows.Scan(&sess.Token, &sess.SpecHash, &sess.EngineVersion, &sess.IRVersion); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadSession retrieves a single session by token.
// Returns sql.ErrNoRows if not found.
func (j *Journal) ReadSession(ctx context.Context, token string) (ir.Session, error) {
	var sess ir.Session
	err := j.db.QueryRowContext(ctx, `
		SELECT token, spec_hash, engine_version, ir_version
		FROM sessions
		WHERE token = ?
	`, token).Scan(&sess.Token, &sess.SpecHash, &sess.EngineVersion, &sess.IRVersion)
	if err != nil {
		return ir.Session{}, err
	}
	return sess, nil
}

// ReadInitialStates returns a session's initial slice values in
// registration order.
func (j *Journal) ReadInitialStates(ctx context.Context, token string) ([]ir.SliceSnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT slice, value
		FROM initial_states
		WHERE session = ?
		ORDER BY position ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query initial states: %w", err)
	}
	defer rows.Close()

	snaps := []ir.SliceSnapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows, "")
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate initial states: %w", err)
	}
	return snaps, nil
}

// ReadActions returns a session's actions.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the session has no actions.
func (j *Journal) ReadActions(ctx context.Context, token string) ([]ir.ActionRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session, seq, tag, payload, changed
		FROM actions
		WHERE session = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	records := []ir.ActionRecord{}
	for rows.Next() {
		rec, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return records, nil
}

// ReadActionsByTag returns a session's actions with the given tag, in
// dispatch order.
func (j *Journal) ReadActionsByTag(ctx context.Context, token, tag string) ([]ir.ActionRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session, seq, tag, payload, changed
		FROM actions
		WHERE session = ? AND tag = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, token, tag)
	if err != nil {
		return nil, fmt.Errorf("query actions by tag: %w", err)
	}
	defer rows.Close()

	records := []ir.ActionRecord{}
	for rows.Next() {
		rec, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions by tag: %w", err)
	}
	return records, nil
}

// ReadSnapshots returns the snapshots written with an action, ordered by
// slice name.
func (j *Journal) ReadSnapshots(ctx context.Context, actionID string) ([]ir.SliceSnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT slice, value
		FROM snapshots
		WHERE action_id = ?
		ORDER BY slice COLLATE BINARY ASC
	`, actionID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []ir.SliceSnapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows, actionID)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

// ReadTrace returns a session's actions, each with its snapshots.
func (j *Journal) ReadTrace(ctx context.Context, token string) ([]Entry, error) {
	records, err := j.ReadActions(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	// One query for all snapshots instead of one per action
	rows, err := j.db.QueryContext(ctx, `
		SELECT s.action_id, s.slice, s.value
		FROM snapshots s
		JOIN actions a ON s.action_id = a.id
		WHERE a.session = ?
		ORDER BY a.seq ASC, s.slice COLLATE BINARY ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("read trace: query snapshots: %w", err)
	}
	defer rows.Close()

	byAction := make(map[string][]ir.SliceSnapshot)
	for rows.Next() {
		var actionID, slice, valueJSON string
		if err := rows.Scan(&actionID, &slice, &valueJSON); err != nil {
			return nil, fmt.Errorf("read trace: scan snapshot: %w", err)
		}
		v, err := unmarshalValue(valueJSON)
		if err != nil {
			return nil, fmt.Errorf("read trace: %w", err)
		}
		byAction[actionID] = append(byAction[actionID], ir.SliceSnapshot{ActionID: actionID, Slice: slice, Value: v})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read trace: iterate snapshots: %w", err)
	}

	entries := make([]Entry, len(records))
	for i, rec := range records {
		snaps := byAction[rec.ID]
		if snaps == nil {
			snaps = []ir.SliceSnapshot{}
		}
		entries[i] = Entry{Action: rec, Snapshots: snaps}
	}
	return entries, nil
}

// LastSeq returns the highest seq journaled for a session, or 0.
func (j *Journal) LastSeq(ctx context.Context, token string) (int64, error) {
	var seq sql.NullInt64
	err := j.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM actions WHERE session = ?
	`, token).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func scanAction(rows *sql.Rows) (ir.ActionRecord, error) {
	var rec ir.ActionRecord
	var payloadJSON, changedJSON string
	if err := rows.Scan(&rec.ID, &rec.Session, &rec.Seq, &rec.Tag, &payloadJSON, &changedJSON); err != nil {
		return ir.ActionRecord{}, fmt.Errorf("scan action: %w", err)
	}

	payload, err := unmarshalPayload(payloadJSON)
	if err != nil {
		return ir.ActionRecord{}, fmt.Errorf("action %s: %w", rec.ID, err)
	}
	rec.Payload = payload

	changed, err := unmarshalChanged(changedJSON)
	if err != nil {
		return ir.ActionRecord{}, fmt.Errorf("action %s: %w", rec.ID, err)
	}
	rec.Changed = changed

	return rec, nil
}

func scanSnapshot(rows *sql.Rows, actionID string) (ir.SliceSnapshot, error) {
	var slice, valueJSON string
	if err := rows.Scan(&slice, &valueJSON); err != nil {
		return ir.SliceSnapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}
	v, err := unmarshalValue(valueJSON)
	if err != nil {
		return ir.SliceSnapshot{}, fmt.Errorf("snapshot %q: %w", slice, err)
	}
	return ir.SliceSnapshot{ActionID: actionID, Slice: slice, Value: v}, nil
}
