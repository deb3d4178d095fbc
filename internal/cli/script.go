package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/statebox/internal/harness"
	"github.com/roach88/statebox/internal/ir"
)

// Script is an action script for the run command:
//
//	session: demo-1          # optional; defaults to a fresh UUIDv7
//	actions:
//	  - action: "[Counter Component] IncrementByOne"
//	  - action: "[User] Set User"
//	    payload: { user: { id: "u1", name: "Alice", email: "a@example.com" } }
type Script struct {
	Session string         `yaml:"session,omitempty"`
	Actions []harness.Step `yaml:"actions"`
}

// ScriptAction is a decoded script step.
type ScriptAction struct {
	Tag     string
	Payload ir.Object
}

// LoadScript reads and parses an action script with strict field checking.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes script YAML. Unknown fields are rejected.
func ParseScript(data []byte) (*Script, error) {
	var script Script
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&script); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	for i, step := range script.Actions {
		if step.Action == "" {
			return nil, fmt.Errorf("actions[%d]: action is required", i)
		}
	}
	return &script, nil
}

// Decode converts every step's payload to IR.
func (s *Script) Decode() ([]ScriptAction, error) {
	out := make([]ScriptAction, len(s.Actions))
	for i, step := range s.Actions {
		payload, err := harness.ConvertPayload(step.Payload)
		if err != nil {
			return nil, fmt.Errorf("actions[%d] (%s): %w", i, step.Action, err)
		}
		out[i] = ScriptAction{Tag: step.Action, Payload: payload}
	}
	return out, nil
}
