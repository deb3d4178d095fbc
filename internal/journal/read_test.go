package journal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statebox/internal/ir"
)

func TestReadActions_OrderedBySeq(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	require.NoError(t, j.WriteSession(ctx, createTestSession("s1"), nil))

	// Written out of order
	for _, seq := range []int64{3, 1, 2} {
		rec := createTestRecord("s1", "[Counter Component] IncrementByOne", nil, seq, "counter")
		require.NoError(t, j.WriteAction(ctx, rec, nil))
	}

	records, err := j.ReadActions(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, int64(i+1), rec.Seq)
	}

	last, err := j.LastSeq(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), last)
}

func TestReadActions_EmptyNotNil(t *testing.T) {
	j := createTestJournal(t)
	records, err := j.ReadActions(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	last, err := j.LastSeq(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestReadActions_SessionsIsolated(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	require.NoError(t, j.WriteSession(ctx, createTestSession("a"), nil))
	require.NoError(t, j.WriteSession(ctx, createTestSession("b"), nil))

	require.NoError(t, j.WriteAction(ctx, createTestRecord("a", "[Counter Component] Reset", nil, 1), nil))
	require.NoError(t, j.WriteAction(ctx, createTestRecord("b", "[Counter Component] Reset", nil, 1), nil))
	require.NoError(t, j.WriteAction(ctx, createTestRecord("b", "[Counter Component] Reset", nil, 2), nil))

	a, err := j.ReadActions(ctx, "a")
	require.NoError(t, err)
	b, err := j.ReadActions(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, a, 1)
	assert.Len(t, b, 2)

	sessions, err := j.ReadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].Token)
	assert.Equal(t, "b", sessions[1].Token)
}

func TestReadActionsByTag(t *testing.T) {
	j := createTestJournal(t)
	recordSession(t, j, "s1", testSpecs(), []step{
		{tag: "[Counter Component] IncrementByOne"},
		{tag: "[Counter Component] Reset"},
		{tag: "[Counter Component] IncrementByOne"},
	})

	records, err := j.ReadActionsByTag(context.Background(), "s1", "[Counter Component] IncrementByOne")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].Seq)
	assert.Equal(t, int64(3), records[1].Seq)
}

func TestReadTrace(t *testing.T) {
	j := createTestJournal(t)
	recordSession(t, j, "s1", testSpecs(), []step{
		{tag: "[Counter Component] IncrementByOne"},
		{tag: "[Elsewhere] Ping"},
		{tag: "[User] Set User", payload: ir.Obj(ir.P("user", ir.Obj(ir.P("id", ir.String("u1")))))},
	})

	entries, err := j.ReadTrace(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, []string{"counter"}, entries[0].Action.Changed)
	require.Len(t, entries[0].Snapshots, 1)
	assert.Equal(t, ir.Int(1), entries[0].Snapshots[0].Value)

	assert.Empty(t, entries[1].Action.Changed, "unknown action changes nothing")
	assert.NotNil(t, entries[1].Snapshots)
	assert.Empty(t, entries[1].Snapshots)

	assert.Equal(t, []string{"user"}, entries[2].Action.Changed)
	require.Len(t, entries[2].Snapshots, 1)
	assert.Equal(t, "user", entries[2].Snapshots[0].Slice)
}
