package state

import "github.com/roach88/statebox/internal/ir"

// Action describes an intended state change. Type returns the stable,
// human-readable tag, e.g. "[Counter Component] IncrementByOne".
type Action interface {
	Type() string
}

// UnknownAction carries a tag no registered slice understands. Decoders
// return it instead of failing so that replaying foreign actions is an
// identity operation.
type UnknownAction struct {
	Tag     string
	Payload ir.Object
}

// Type implements Action.
func (a UnknownAction) Type() string {
	return a.Tag
}
