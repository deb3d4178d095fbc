package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("")
	var _ Value = Int(0)
	var _ Value = Bool(false)
	var _ Value = Array{}
	var _ Value = Object{}
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+FF61 sorts after U+1F600 in UTF-8 but before it in UTF-16
	// (the emoji encodes as a D83D surrogate).
	obj := Object{
		"\U0001F600": Int(1),
		"\uff61":     Int(2),
		"a":          Int(3),
	}
	assert.Equal(t, []string{"a", "\U0001F600", "\uff61"}, obj.SortedKeys())
}

func TestCompareKeysRFC8785(t *testing.T) {
	assert.Equal(t, 0, compareKeysRFC8785("abc", "abc"))
	assert.Equal(t, -1, compareKeysRFC8785("ab", "abc"))
	assert.Equal(t, 1, compareKeysRFC8785("b", "abc"))
}

func TestObjFromPairs(t *testing.T) {
	obj := Obj(P("id", String("1")), P("count", Int(5)))

	s, ok := obj.GetString("id")
	assert.True(t, ok)
	assert.Equal(t, "1", s)

	n, ok := obj.GetInt("count")
	assert.True(t, ok)
	assert.Equal(t, int64(5), n)

	_, ok = obj.GetObject("id")
	assert.False(t, ok, "wrong kind")
}

func TestEqual(t *testing.T) {
	a := Object{"user": Object{"id": String("1")}, "tags": Array{Int(1), Bool(true)}}
	b := Object{"tags": Array{Int(1), Bool(true)}, "user": Object{"id": String("1")}}

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, Object{"user": Object{}}))
	assert.False(t, Equal(Int(1), String("1")))
	assert.True(t, Equal(Null{}, Null{}))
	assert.True(t, Equal(nil, nil))
}

func TestObjectJSONRoundTrip(t *testing.T) {
	obj := Object{
		"name":  String("John Doe"),
		"count": Int(9007199254740993), // beyond float64 precision
		"ok":    Bool(true),
		"none":  Null{},
		"list":  Array{String("a")},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"count":9007199254740993,"list":["a"],"name":"John Doe","none":null,"ok":true}`, string(data))

	var back Object
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, Equal(obj, back))
}

func TestDecodeJSONRejectsFloats(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"x": 1.5}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats")
}

func TestParseStrict(t *testing.T) {
	v, err := ParseStrict([]byte(`{"user":{"id":"1"},"n":2}`))
	require.NoError(t, err)
	assert.True(t, Equal(Object{"user": Object{"id": String("1")}, "n": Int(2)}, v))

	_, err = ParseStrict([]byte(`{"user":null}`))
	require.Error(t, err)

	_, err = ParseStrict([]byte(`{"n":2.5}`))
	require.Error(t, err)
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"id":    "1",
		"count": 3,
		"whole": float64(4),
		"none":  nil,
		"list":  []any{true},
	})
	require.NoError(t, err)
	assert.True(t, Equal(Object{
		"id":    String("1"),
		"count": Int(3),
		"whole": Int(4),
		"none":  Null{},
		"list":  Array{Bool(true)},
	}, v))

	_, err = FromGo(2.5)
	require.Error(t, err)

	_, err = FromGo(struct{}{})
	require.Error(t, err)
}

func TestToGo(t *testing.T) {
	got := ToGo(Object{"n": Int(1), "s": String("x"), "a": Array{Bool(false)}, "z": Null{}})
	assert.Equal(t, map[string]any{
		"n": int64(1),
		"s": "x",
		"a": []any{false},
		"z": nil,
	}, got)
}
