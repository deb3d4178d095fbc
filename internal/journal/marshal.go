package journal

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/statebox/internal/ir"
)

// marshalPayload converts an action payload to canonical JSON TEXT.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalPayload(payload ir.Object) (string, error) {
	if payload == nil {
		payload = ir.Object{}
	}
	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// marshalValue converts a slice value to canonical JSON TEXT.
func marshalValue(v ir.Value) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// marshalChanged stores changed slice names as a JSON array, keeping
// registration order.
func marshalChanged(changed []string) (string, error) {
	arr := make(ir.Array, len(changed))
	for i, name := range changed {
		arr[i] = ir.String(name)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal changed: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT to an Object.
// ir.Object.UnmarshalJSON uses json.Number, so large integers survive.
func unmarshalPayload(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return obj, nil
}

// unmarshalValue parses canonical JSON TEXT to a Value.
func unmarshalValue(data string) (ir.Value, error) {
	v, err := ir.ParseStrict([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

// unmarshalChanged parses the changed-slices array.
func unmarshalChanged(data string) ([]string, error) {
	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, fmt.Errorf("unmarshal changed: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
