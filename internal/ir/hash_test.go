package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionIDDeterminism(t *testing.T) {
	payload := Object{"user": Object{"id": String("1")}}

	id1, err := ActionID("session-1", "[User] Set User", payload, 3)
	require.NoError(t, err)
	id2, err := ActionID("session-1", "[User] Set User", payload, 3)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64, "hex-encoded sha256")
}

func TestActionIDChangesWithInput(t *testing.T) {
	base := MustActionID("s", "[Counter Component] Reset", nil, 1)

	assert.NotEqual(t, base, MustActionID("other", "[Counter Component] Reset", nil, 1))
	assert.NotEqual(t, base, MustActionID("s", "[Counter Component] Decrement", nil, 1))
	assert.NotEqual(t, base, MustActionID("s", "[Counter Component] Reset", nil, 2))
	assert.NotEqual(t, base, MustActionID("s", "[Counter Component] Reset", Object{"x": Int(1)}, 1))
}

func TestActionIDNilPayloadMatchesEmpty(t *testing.T) {
	assert.Equal(t,
		MustActionID("s", "t", nil, 1),
		MustActionID("s", "t", Object{}, 1),
	)
}

func TestActionIDRejectsFloatPayload(t *testing.T) {
	_, err := ActionID("s", "t", Object{"bad": Null{}}, 1)
	require.Error(t, err)
}

func TestMustActionIDPanics(t *testing.T) {
	assert.Panics(t, func() {
		MustActionID("s", "t", Object{"bad": Null{}}, 1)
	})
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t, hashWithDomain(DomainAction, data), hashWithDomain(DomainSnapshot, data))
}

func TestSnapshotHashKeyOrderIndependent(t *testing.T) {
	a, err := SnapshotHash(Object{"counter": Int(1), "user": Object{}})
	require.NoError(t, err)
	b, err := SnapshotHash(Object{"user": Object{}, "counter": Int(1)})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSpecHash(t *testing.T) {
	specs := []SliceSpec{
		{Name: "counter", Reducer: "counter", Initial: Int(0)},
		{Name: "user", Reducer: "user"},
	}

	h1, err := SpecHash(specs)
	require.NoError(t, err)
	h2, err := SpecHash(specs)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	reordered, err := SpecHash([]SliceSpec{specs[1], specs[0]})
	require.NoError(t, err)
	assert.NotEqual(t, h1, reordered, "slice order is part of the definition")

	noInitial, err := SpecHash([]SliceSpec{{Name: "counter", Reducer: "counter"}, specs[1]})
	require.NoError(t, err)
	assert.NotEqual(t, h1, noInitial)
}
