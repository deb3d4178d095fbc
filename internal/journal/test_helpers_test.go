package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/statebox/internal/catalog"
	"github.com/roach88/statebox/internal/ir"
)

// createTestJournal opens a fresh journal in a temp directory.
func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func testSpecs() []ir.SliceSpec {
	return []ir.SliceSpec{
		{Name: "counter", Reducer: "counter"},
		{Name: "user", Reducer: "user"},
	}
}

func createTestSession(token string) ir.Session {
	return ir.Session{
		Token:         token,
		SpecHash:      "test-hash",
		EngineVersion: "0.1.0",
		IRVersion:     "1",
	}
}

// createTestRecord builds an action record with a real content-addressed ID.
func createTestRecord(session, tag string, payload ir.Object, seq int64, changed ...string) ir.ActionRecord {
	if changed == nil {
		changed = []string{}
	}
	if payload == nil {
		payload = ir.Object{}
	}
	return ir.ActionRecord{
		ID:      ir.MustActionID(session, tag, payload, seq),
		Session: session,
		Seq:     seq,
		Tag:     tag,
		Payload: payload,
		Changed: changed,
	}
}

// recordSession runs tags through a real store and journals them the way
// the engine does.
func recordSession(t *testing.T, j *Journal, token string, specs []ir.SliceSpec, steps []step) {
	t.Helper()
	ctx := context.Background()
	cat := catalog.Default()

	inst, err := cat.Build(specs)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	hash, err := ir.SpecHash(specs)
	if err != nil {
		t.Fatalf("SpecHash() failed: %v", err)
	}
	sess := ir.Session{Token: token, SpecHash: hash, EngineVersion: ir.EngineVersion, IRVersion: ir.IRVersion}

	var initial []ir.SliceSnapshot
	for _, name := range inst.Store.Slices() {
		v, err := inst.Store.Snapshot(name)
		if err != nil {
			t.Fatalf("Snapshot(%q) failed: %v", name, err)
		}
		initial = append(initial, ir.SliceSnapshot{Slice: name, Value: v})
	}
	if err := j.WriteSession(ctx, sess, initial); err != nil {
		t.Fatalf("WriteSession() failed: %v", err)
	}

	for i, s := range steps {
		seq := int64(i + 1)
		report, err := inst.Dispatch(s.tag, s.payload)
		if err != nil {
			t.Fatalf("Dispatch(%q) failed: %v", s.tag, err)
		}
		rec := createTestRecord(token, s.tag, s.payload, seq, report.Changed...)

		var snaps []ir.SliceSnapshot
		for _, name := range report.Changed {
			v, err := inst.Store.Snapshot(name)
			if err != nil {
				t.Fatalf("Snapshot(%q) failed: %v", name, err)
			}
			snaps = append(snaps, ir.SliceSnapshot{Slice: name, Value: v})
		}
		if err := j.WriteAction(ctx, rec, snaps); err != nil {
			t.Fatalf("WriteAction() failed: %v", err)
		}
	}
}

type step struct {
	tag     string
	payload ir.Object
}
