package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure while applying one action.
//
// Runtime errors include:
//   - Reducer panic: a reducer panicked; the store is unchanged
//   - Dispatch failure: the store rejected the action
//   - Journal failure: the action applied but could not be recorded
//
// The engine logs these and continues; Submit callers receive them.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Session identifies the engine session.
	Session string

	// Seq is the logical clock value stamped on the action.
	Seq int64

	// Tag is the action tag.
	Tag string

	// Err is the underlying error, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeReducerPanic indicates a reducer panicked during dispatch.
	ErrCodeReducerPanic RuntimeErrorCode = "REDUCER_PANIC"

	// ErrCodeDispatchFailed indicates the store returned an error.
	ErrCodeDispatchFailed RuntimeErrorCode = "DISPATCH_FAILED"

	// ErrCodeJournalFailed indicates the journal write failed.
	ErrCodeJournalFailed RuntimeErrorCode = "JOURNAL_FAILED"

	// ErrCodeStopped indicates the engine no longer accepts actions.
	ErrCodeStopped RuntimeErrorCode = "ENGINE_STOPPED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Tag != "" {
		return fmt.Sprintf("%s: %s (seq=%d, action=%s)", e.Code, msg, e.Seq, e.Tag)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsReducerPanic returns true if err is a reducer panic.
// Uses errors.As to handle wrapped errors.
func IsReducerPanic(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeReducerPanic
	}
	return false
}

// IsJournalError returns true if err is a journal write failure.
func IsJournalError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeJournalFailed
	}
	return false
}
