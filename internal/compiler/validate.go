package compiler

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/roach88/statebox/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// SliceSpec errors (E101-E109)
	ErrSliceNameInvalid = "E101" // name empty or not an identifier
	ErrReducerEmpty     = "E102" // reducer is required
	ErrUnknownReducer   = "E103" // reducer kind not registered
	ErrInvalidInitial   = "E104" // initial value rejected by the reducer kind
	ErrDuplicateName    = "E105" // duplicate slice name
	ErrNoSlices         = "E106" // definitions declare no slices
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Reducers is the set of reducer kinds slices may name.
// *catalog.Catalog implements it.
type Reducers interface {
	Kinds() []string
	CheckInitial(reducer string, initial ir.Value) error
}

// Validate validates compiled IR against schema rules.
// Returns all errors found (does not fail-fast).
func Validate(v any, reducers Reducers) []ValidationError {
	switch spec := v.(type) {
	case *ir.SliceSpec:
		return validateSliceSpec(spec, "slice", reducers)
	case ir.SliceSpec:
		return validateSliceSpec(&spec, "slice", reducers)
	case []ir.SliceSpec:
		return ValidateSlices(spec, reducers)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// ValidateSlices validates a full store definition: each slice on its own
// plus name uniqueness. A nil reducers skips the reducer kind checks.
func ValidateSlices(specs []ir.SliceSpec, reducers Reducers) []ValidationError {
	var errs []ValidationError

	// E106: a store needs at least one slice
	if len(specs) == 0 {
		return []ValidationError{{
			Field:   "slice",
			Message: "at least one slice is required",
			Code:    ErrNoSlices,
		}}
	}

	seen := make(map[string]bool, len(specs))
	for i := range specs {
		field := fmt.Sprintf("slice.%s", specs[i].Name)

		// E105: duplicate slice name
		if seen[specs[i].Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("slices[%d].name", i),
				Message: fmt.Sprintf("duplicate slice name: %q", specs[i].Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[specs[i].Name] = true

		errs = append(errs, validateSliceSpec(&specs[i], field, reducers)...)
	}

	return errs
}

// sliceNamePattern matches identifiers. Dots are reserved for qualified
// selector names ("counter.count").
var sliceNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateSliceSpec validates one slice definition.
func validateSliceSpec(spec *ir.SliceSpec, field string, reducers Reducers) []ValidationError {
	var errs []ValidationError

	// E101: name must be an identifier
	if !sliceNamePattern.MatchString(spec.Name) {
		errs = append(errs, ValidationError{
			Field:   field + ".name",
			Message: fmt.Sprintf("invalid slice name %q, expected an identifier", spec.Name),
			Code:    ErrSliceNameInvalid,
		})
	}

	// E102: reducer is required
	if spec.Reducer == "" {
		errs = append(errs, ValidationError{
			Field:   field + ".reducer",
			Message: "reducer is required",
			Code:    ErrReducerEmpty,
		})
		return errs
	}

	if reducers == nil {
		return errs
	}

	// E103: reducer kind must exist
	if !slices.Contains(reducers.Kinds(), spec.Reducer) {
		errs = append(errs, ValidationError{
			Field:   field + ".reducer",
			Message: fmt.Sprintf("unknown reducer %q, known: %v", spec.Reducer, reducers.Kinds()),
			Code:    ErrUnknownReducer,
		})
		return errs
	}

	// E104: initial value must suit the reducer kind
	if err := reducers.CheckInitial(spec.Reducer, spec.Initial); err != nil {
		errs = append(errs, ValidationError{
			Field:   field + ".initial",
			Message: err.Error(),
			Code:    ErrInvalidInitial,
		})
	}

	return errs
}
