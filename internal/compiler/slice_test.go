package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statebox/internal/ir"
)

func TestCompileSliceBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		slice: counter: {
			reducer: "counter"
			initial: 5
		}
	`)

	require.NoError(t, v.Err())
	spec, err := CompileSlice(v.LookupPath(cue.ParsePath("slice.counter")))
	require.NoError(t, err)

	assert.Equal(t, "counter", spec.Name)
	assert.Equal(t, "counter", spec.Reducer)
	assert.Equal(t, ir.Int(5), spec.Initial)
}

func TestCompileSliceNoInitial(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`slice: user: reducer: "user"`)

	spec, err := CompileSlice(v.LookupPath(cue.ParsePath("slice.user")))
	require.NoError(t, err)
	assert.Nil(t, spec.Initial)
}

func TestCompileSliceStructuredInitial(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		slice: user: {
			reducer: "user"
			initial: {
				id:    "u1"
				name:  "Alice"
				email: "alice@example.com"
				tags:  ["admin", true, 3]
			}
		}
	`)

	spec, err := CompileSlice(v.LookupPath(cue.ParsePath("slice.user")))
	require.NoError(t, err)

	want := ir.Obj(
		ir.P("id", ir.String("u1")),
		ir.P("name", ir.String("Alice")),
		ir.P("email", ir.String("alice@example.com")),
		ir.P("tags", ir.Array{ir.String("admin"), ir.Bool(true), ir.Int(3)}),
	)
	assert.True(t, ir.Equal(want, spec.Initial), "got %v", spec.Initial)
}

func TestCompileSliceMissingReducer(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		slice: bad: {
			initial: 0
		}
	`)

	_, err := CompileSlice(v.LookupPath(cue.ParsePath("slice.bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reducer")
	assert.Contains(t, err.Error(), "required")
}

func TestCompileSliceFloatInitialForbidden(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		slice: bad: {
			reducer: "counter"
			initial: 1.5
		}
	`)

	_, err := CompileSlice(v.LookupPath(cue.ParsePath("slice.bad")))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "initial", ce.Field)
	assert.Contains(t, ce.Message, "float")
	assert.True(t, ce.Pos.IsValid())
}

func TestCompileSliceNestedFloatForbidden(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		slice: bad: {
			reducer: "user"
			initial: { scores: [1, 2.5] }
		}
	`)

	_, err := CompileSlice(v.LookupPath(cue.ParsePath("slice.bad")))
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "initial.scores[1]", ce.Field)
}

func TestCompileSliceNullForbidden(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		slice: bad: {
			reducer: "user"
			initial: null
		}
	`)

	_, err := CompileSlice(v.LookupPath(cue.ParsePath("slice.bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")
}

func TestCompileSliceReducerNotString(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		slice: bad: {
			reducer: 42
		}
	`)

	_, err := CompileSlice(v.LookupPath(cue.ParsePath("slice.bad")))
	require.Error(t, err)
}

func TestCompileSlicesOrderAndNames(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		slice: counter: { reducer: "counter", initial: 0 }
		slice: user:    { reducer: "user" }
		slice: "second-counter": { reducer: "counter" }
	`)

	specs, err := CompileSlices(v)
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, "counter", specs[0].Name)
	assert.Equal(t, "user", specs[1].Name)
	assert.Equal(t, "second-counter", specs[2].Name, "labels are unquoted")
}

func TestCompileSlicesNoSliceStruct(t *testing.T) {
	ctx := cuecontext.New()
	specs, err := CompileSlices(ctx.CompileString(`other: 1`))
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestCompileSlicesWrapsSliceName(t *testing.T) {
	ctx := cuecontext.New()
	_, err := CompileSlices(ctx.CompileString(`slice: broken: { initial: 1 }`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slice.broken")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "reducer", Message: "reducer is required"}
	assert.Equal(t, "reducer: reducer is required", err.Error())
}
