// Package compiler turns CUE store definitions into ir.SliceSpec values.
//
// A definition file declares slices under the top-level "slice" struct:
//
//	slice: counter: { reducer: "counter", initial: 0 }
//	slice: user:    { reducer: "user" }
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/statebox/internal/ir"
)

// CompileSlice parses a CUE value into a SliceSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the slice struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`slice: counter: { reducer: "counter" }`)
//	spec, err := CompileSlice(v.LookupPath(cue.ParsePath("slice.counter")))
func CompileSlice(v cue.Value) (*ir.SliceSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.SliceSpec{}

	// Slice name is the struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	reducerVal := v.LookupPath(cue.ParsePath("reducer"))
	if !reducerVal.Exists() {
		return nil, &CompileError{
			Field:   "reducer",
			Message: "reducer is required",
			Pos:     v.Pos(),
		}
	}
	reducer, err := reducerVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	spec.Reducer = reducer

	// initial is optional; each reducer kind has a default
	initialVal := v.LookupPath(cue.ParsePath("initial"))
	if initialVal.Exists() {
		initial, err := valueFromCUE(initialVal, "initial")
		if err != nil {
			return nil, err
		}
		spec.Initial = initial
	}

	return spec, nil
}

// CompileSlices compiles every slice under the top-level "slice" struct, in
// declaration order. A value without a "slice" struct yields no specs.
func CompileSlices(root cue.Value) ([]ir.SliceSpec, error) {
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	slicesVal := root.LookupPath(cue.ParsePath("slice"))
	if !slicesVal.Exists() {
		return nil, nil
	}

	iter, err := slicesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []ir.SliceSpec
	for iter.Next() {
		spec, err := CompileSlice(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("slice.%s: %w", iter.Label(), err)
		}
		spec.Name = iter.Label()
		specs = append(specs, *spec)
	}
	return specs, nil
}

// valueFromCUE converts a concrete CUE value to an ir.Value.
// Floats and null are forbidden.
func valueFromCUE(v cue.Value, field string) (ir.Value, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.Array{}
		for i := 0; iter.Next(); i++ {
			elem, err := valueFromCUE(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.Object{}
		for iter.Next() {
			label := iter.Label()
			elem, err := valueFromCUE(iter.Value(), field+"."+label)
			if err != nil {
				return nil, err
			}
			obj[label] = elem
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	case cue.NullKind:
		return nil, &CompileError{
			Field:   field,
			Message: "null is not allowed - omit the field instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
