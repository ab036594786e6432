package models

import (
	"errors"
	"math"
	"time"
)

// FeatureSnapshot is one set of sensor-derived feature readings for a
// single component at a single point in time. Produced by the upstream
// feature extractor; the evaluation engine never mutates it.
type FeatureSnapshot struct {
	// Component identifier (PUMP, CONVEYOR, COMPRESSOR, ...)
	Component string `json:"component"`

	// Timestamp when the features were extracted
	Timestamp time.Time `json:"timestamp"`

	// Feature name -> numeric reading
	Features map[string]float64 `json:"features"`
}

// Validation errors
var (
	ErrEmptyComponent   = errors.New("component cannot be empty")
	ErrZeroTimestamp    = errors.New("timestamp cannot be zero")
	ErrFutureTimestamp  = errors.New("timestamp cannot be in the future")
	ErrInvalidTimestamp = errors.New("invalid timestamp format")
	ErrNoFeatures       = errors.New("snapshot must contain at least one feature")
	ErrTooManyFeatures  = errors.New("too many features")
	ErrNonFiniteFeature = errors.New("feature value must be finite")
)

const MaxFeatures = 100

// Validate checks if the FeatureSnapshot has all required fields and valid values
func (s *FeatureSnapshot) Validate() error {
	if s.Component == "" {
		return ErrEmptyComponent
	}

	if s.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}

	if s.Timestamp.After(time.Now().Add(time.Minute)) {
		return ErrFutureTimestamp
	}

	if len(s.Features) == 0 {
		return ErrNoFeatures
	}

	if len(s.Features) > MaxFeatures {
		return ErrTooManyFeatures
	}

	for _, v := range s.Features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFiniteFeature
		}
	}

	return nil
}
