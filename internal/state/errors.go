package state

import (
	"errors"
	"fmt"
)

// ErrorCode categorises store errors.
type ErrorCode string

const (
	// ErrCodeReentrantDispatch indicates Dispatch was called while another
	// dispatch on the same Store was still running.
	ErrCodeReentrantDispatch ErrorCode = "REENTRANT_DISPATCH"

	// ErrCodeDuplicateSlice indicates two slices share a name.
	ErrCodeDuplicateSlice ErrorCode = "DUPLICATE_SLICE"

	// ErrCodeInvalidSlice indicates a nil slice or an empty slice name.
	ErrCodeInvalidSlice ErrorCode = "INVALID_SLICE"

	// ErrCodeUnknownSlice indicates a lookup for a slice the Store does not hold.
	ErrCodeUnknownSlice ErrorCode = "UNKNOWN_SLICE"

	// ErrCodeInvalidAction indicates a nil action.
	ErrCodeInvalidAction ErrorCode = "INVALID_ACTION"
)

// ErrReentrantDispatch matches any reentrant dispatch error via errors.Is.
var ErrReentrantDispatch = errors.New("reentrant dispatch")

// Error is returned by Store construction, Dispatch and Snapshot.
type Error struct {
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Slice names the slice involved, if any.
	Slice string

	// Action is the tag of the action involved, if any.
	Action string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Action != "":
		return fmt.Sprintf("%s: %s (action=%s)", e.Code, e.Message, e.Action)
	case e.Slice != "":
		return fmt.Sprintf("%s: %s (slice=%s)", e.Code, e.Message, e.Slice)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Is lets errors.Is(err, ErrReentrantDispatch) match reentrancy errors.
func (e *Error) Is(target error) bool {
	return target == ErrReentrantDispatch && e.Code == ErrCodeReentrantDispatch
}

// IsReentrantError reports whether err is a reentrant dispatch error.
func IsReentrantError(err error) bool {
	return errors.Is(err, ErrReentrantDispatch)
}

// HasCode reports whether err is a store Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

func newReentrantError(a Action) *Error {
	return &Error{
		Code:    ErrCodeReentrantDispatch,
		Message: "dispatch called while a dispatch is in progress",
		Action:  a.Type(),
	}
}
