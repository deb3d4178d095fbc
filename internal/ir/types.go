package ir

// SliceSpec is a compiled slice definition: which reducer kind owns the
// slice and, optionally, the slice's initial value.
type SliceSpec struct {
	Name    string `json:"name"`
	Reducer string `json:"reducer"` // catalog kind, e.g. "counter"
	Initial Value  `json:"initial,omitempty"`
}

// Session identifies one journaled run of a store.
type Session struct {
	Token         string `json:"token"`
	SpecHash      string `json:"spec_hash"`
	EngineVersion string `json:"engine_version"`
	IRVersion     string `json:"ir_version"`
}

// ActionRecord is one dispatched action as written to the journal.
type ActionRecord struct {
	ID      string   `json:"id"` // ActionID
	Session string   `json:"session"`
	Seq     int64    `json:"seq"` // Logical clock
	Tag     string   `json:"tag"`
	Payload Object   `json:"payload"`
	Changed []string `json:"changed"` // Slice names whose value changed, in registration order
}

// SliceSnapshot is the encoded value of one slice, either at session start
// (ActionID empty) or after the action that changed it.
type SliceSnapshot struct {
	ActionID string `json:"action_id,omitempty"`
	Slice    string `json:"slice"`
	Value    Value  `json:"value"`
}
