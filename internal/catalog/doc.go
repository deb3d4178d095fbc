// Package catalog maps slice definitions onto the built-in reducer kinds.
//
// A compiled ir.SliceSpec names its reducer kind ("counter", "user") and an
// optional initial value. The catalog turns a list of specs into a live
// state.Store, decodes journaled or scripted action tags back into typed
// actions, and exposes each slice's selectors by qualified name
// ("counter.count", "user.isLoggedIn") as ir.Value projections for the
// harness and CLI.
//
// Tags no kind recognises decode to state.UnknownAction, which every
// reducer ignores.
package catalog
