package models

import (
	"encoding/json"
	"fmt"
)

// SnapshotInput is the wire format for feature snapshots (with string
// timestamp for flexible parsing)
type SnapshotInput struct {
	Component string             `json:"component"`
	Timestamp string             `json:"timestamp,omitempty"`
	Features  map[string]float64 `json:"features,omitempty"`
}

// DecodeSnapshot parses a JSON payload into a FeatureSnapshot. Two
// shapes are accepted:
//
//	{"component": "PUMP", "timestamp": "...", "features": {"vibration_rms": 4.5}}
//	{"component": "PUMP", "timestamp": "...", "vibration_rms": 4.5}
//
// The flat shape is what the upstream feature extractor emits: every
// numeric top-level field is a feature. An absent timestamp is left at
// the zero value for the caller to default.
func DecodeSnapshot(data []byte) (*FeatureSnapshot, error) {
	// Try the nested shape first
	var input SnapshotInput
	if err := json.Unmarshal(data, &input); err == nil && len(input.Features) > 0 {
		return buildSnapshot(input)
	}

	// Fall back to the flat shape
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: expected snapshot object")
	}

	input = SnapshotInput{Features: make(map[string]float64)}
	for key, val := range raw {
		switch key {
		case "component":
			if s, ok := val.(string); ok {
				input.Component = s
			}
		case "timestamp":
			if s, ok := val.(string); ok {
				input.Timestamp = s
			}
		default:
			if f, ok := val.(float64); ok {
				input.Features[key] = f
			}
		}
	}

	if len(input.Features) == 0 {
		return nil, fmt.Errorf("invalid snapshot: no numeric features found")
	}

	return buildSnapshot(input)
}

func buildSnapshot(input SnapshotInput) (*FeatureSnapshot, error) {
	snapshot := &FeatureSnapshot{
		Component: input.Component,
		Features:  input.Features,
	}

	if input.Timestamp != "" {
		ts, err := ParseTimestamp(input.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("timestamp: %w", err)
		}
		snapshot.Timestamp = ts
	}

	return snapshot, nil
}
