package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainAction   = "statebox/action/v1"
	DomainSnapshot = "statebox/snapshot/v1"
	DomainSpec     = "statebox/spec/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data).
// The null separator removes domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ActionID computes the content-addressed ID of a dispatched action.
// It is stable across replays given the same session, tag, payload and seq.
func ActionID(session, tag string, payload Object, seq int64) (string, error) {
	if payload == nil {
		payload = Object{}
	}
	obj := Object{
		"session": String(session),
		"tag":     String(tag),
		"payload": payload,
		"seq":     Int(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("action id: %w", err)
	}
	return hashWithDomain(DomainAction, canonical), nil
}

// SnapshotHash hashes a set of slice values keyed by slice name.
// Replay compares these hashes to detect divergence.
func SnapshotHash(values Object) (string, error) {
	canonical, err := MarshalCanonical(values)
	if err != nil {
		return "", fmt.Errorf("snapshot hash: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// SpecHash identifies a store definition. Slice order is significant since
// it fixes notification order.
func SpecHash(specs []SliceSpec) (string, error) {
	arr := make(Array, len(specs))
	for i, spec := range specs {
		obj := Object{
			"name":    String(spec.Name),
			"reducer": String(spec.Reducer),
		}
		if spec.Initial != nil {
			obj["initial"] = spec.Initial
		}
		arr[i] = obj
	}

	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("spec hash: %w", err)
	}
	return hashWithDomain(DomainSpec, canonical), nil
}

// MustActionID is like ActionID but panics on error.
// Use only in tests or with inputs known to be valid.
func MustActionID(session, tag string, payload Object, seq int64) string {
	id, err := ActionID(session, tag, payload, seq)
	if err != nil {
		panic(err)
	}
	return id
}
