package journal

import (
	"context"
	"fmt"

	"github.com/roach88/statebox/internal/ir"
)

// WriteSession records a session and the initial value of every slice, in
// registration order. Uses ON CONFLICT DO NOTHING for idempotency: writing
// the same session twice leaves the first record in place.
func (j *Journal) WriteSession(ctx context.Context, sess ir.Session, initial []ir.SliceSnapshot) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write session: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (token, spec_hash, engine_version, ir_version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		sess.Token,
		sess.SpecHash,
		sess.EngineVersion,
		sess.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	for i, snap := range initial {
		valueJSON, err := marshalValue(snap.Value)
		if err != nil {
			return fmt.Errorf("write session: slice %q: %w", snap.Slice, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO initial_states (session, position, slice, value)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(session, slice) DO NOTHING
		`, sess.Token, i, snap.Slice, valueJSON)
		if err != nil {
			return fmt.Errorf("write session: slice %q: %w", snap.Slice, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write session: commit: %w", err)
	}
	return nil
}

// WriteAction records one dispatched action and the post-action value of
// each slice it changed, atomically.
//
// Note: The session referenced by rec.Session must exist (foreign key
// constraint). Snapshots whose ActionID is empty are stamped with rec.ID.
func (j *Journal) WriteAction(ctx context.Context, rec ir.ActionRecord, snaps []ir.SliceSnapshot) error {
	payloadJSON, err := marshalPayload(rec.Payload)
	if err != nil {
		return fmt.Errorf("write action: %w", err)
	}
	changedJSON, err := marshalChanged(rec.Changed)
	if err != nil {
		return fmt.Errorf("write action: %w", err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write action: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO actions (id, session, seq, tag, payload, changed)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.ID,
		rec.Session,
		rec.Seq,
		rec.Tag,
		payloadJSON,
		changedJSON,
	)
	if err != nil {
		return fmt.Errorf("write action: %w", err)
	}

	for _, snap := range snaps {
		actionID := snap.ActionID
		if actionID == "" {
			actionID = rec.ID
		}
		valueJSON, err := marshalValue(snap.Value)
		if err != nil {
			return fmt.Errorf("write action: slice %q: %w", snap.Slice, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO snapshots (action_id, slice, value)
			VALUES (?, ?, ?)
			ON CONFLICT(action_id, slice) DO NOTHING
		`, actionID, snap.Slice, valueJSON)
		if err != nil {
			return fmt.Errorf("write action: slice %q: %w", snap.Slice, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write action: commit: %w", err)
	}
	return nil
}
