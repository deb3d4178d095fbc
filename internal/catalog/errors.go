package catalog

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	ErrCodeUnknownReducer = "UNKNOWN_REDUCER"
	ErrCodeInvalidInitial = "INVALID_INITIAL"
	ErrCodeDuplicateKind  = "DUPLICATE_KIND"
	ErrCodeDuplicateTag   = "DUPLICATE_TAG"
	ErrCodeUnknownSelect  = "UNKNOWN_SELECTOR"
)

// Error describes a catalog failure.
type Error struct {
	Code    string
	Slice   string
	Kind    string
	Message string
}

func (e *Error) Error() string {
	switch {
	case e.Slice != "":
		return fmt.Sprintf("%s: slice %q: %s", e.Code, e.Slice, e.Message)
	case e.Kind != "":
		return fmt.Sprintf("%s: kind %q: %s", e.Code, e.Kind, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// HasCode reports whether err is a catalog Error with the given code.
func HasCode(err error, code string) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == code
}
