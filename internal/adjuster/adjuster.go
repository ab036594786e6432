package adjuster

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"vigil/internal/logger"
	"vigil/internal/metrics"
	"vigil/internal/models"
)

// Recalibration bounds
const (
	// SafetyMargin is the fraction added above a rejected reading so the
	// same value no longer trips the rule
	SafetyMargin = 0.05

	// MaxIncreaseRatio caps how far a threshold may move in a single run
	MaxIncreaseRatio = 0.50
)

// adjustmentReason is stamped on every audit record
const adjustmentReason = "User rejected alert - value now considered normal"

// ErrMalformedTrace indicates the rejected feedback entry carries no
// usable trace
var ErrMalformedTrace = errors.New("malformed trace in feedback entry")

// Catalog is the mutable threshold store the adjuster writes back to
type Catalog interface {
	GetThreshold(component, rule string) (float64, bool)
	UpdateThreshold(component, rule string, value float64) (bool, error)
	Persist() error
}

// FeedbackSource yields recorded interactions
type FeedbackSource interface {
	FindLatest(pred func(models.InteractionEntry) bool) (models.InteractionEntry, bool)
}

// AuditTrail records applied adjustments
type AuditTrail interface {
	Append(records ...models.AdjustmentRecord) error
}

// Adjuster recalibrates rule thresholds from rejected alerts. Runs are
// serialized so the catalog never sees two runs interleaved.
type Adjuster struct {
	mu       sync.Mutex
	catalog  Catalog
	feedback FeedbackSource
	audit    AuditTrail
}

// New creates a threshold adjuster
func New(catalog Catalog, feedback FeedbackSource, audit AuditTrail) *Adjuster {
	return &Adjuster{
		catalog:  catalog,
		feedback: feedback,
		audit:    audit,
	}
}

// NewThreshold computes the recalibrated threshold for a rejected
// reading: the reading plus the safety margin, capped at 150% of the
// old threshold, rounded to 2 decimals.
func NewThreshold(old, rejectedValue float64) float64 {
	candidate := rejectedValue * (1 + SafetyMargin)
	limit := old * (1 + MaxIncreaseRatio)
	if candidate > limit {
		candidate = limit
	}
	return math.Round(candidate*100) / 100
}

// AdjustFromLatestRejection finds the most recent rejected alert and
// raises the threshold of every rule that appears in its reasoning
// trace, fired or not: the operator judged the whole reading normal,
// so near-threshold passes are recalibrated along with the rule that
// tripped.
//
// Returns the applied adjustments. When no rejection exists the run is
// a no-op. A persist or audit failure is returned alongside the records
// already applied in memory.
func (a *Adjuster) AdjustFromLatestRejection() ([]models.AdjustmentRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.feedback.FindLatest(func(e models.InteractionEntry) bool {
		return e.UserFeedback == models.VerdictRejected
	})
	if !ok {
		metrics.AdjustmentRunsTotal.WithLabelValues("no_rejection").Inc()
		return []models.AdjustmentRecord{}, nil
	}

	trace := entry.InputTrace
	if trace == nil || trace.ComponentID == "" || len(trace.ReasoningTrace) == 0 {
		metrics.AdjustmentRunsTotal.WithLabelValues("malformed").Inc()
		return nil, ErrMalformedTrace
	}

	log := logger.WithComponent("adjuster")
	now := time.Now().UTC()
	records := make([]models.AdjustmentRecord, 0, len(trace.ReasoningTrace))

	for _, step := range trace.ReasoningTrace {
		if _, ok := a.catalog.GetThreshold(trace.ComponentID, step.Rule); !ok {
			log.Warn().
				Str("component", trace.ComponentID).
				Str("rule", step.Rule).
				Msg("rule from trace no longer in catalog, skipping")
			continue
		}

		// The cap base is the threshold the rejected alert was judged
		// against, not whatever the catalog holds now. That makes reruns
		// on the same rejection idempotent: the bound never ratchets.
		value := NewThreshold(step.Threshold, step.FeatureValue)
		applied, err := a.catalog.UpdateThreshold(trace.ComponentID, step.Rule, value)
		if err != nil {
			log.Warn().
				Err(err).
				Str("rule", step.Rule).
				Float64("value", value).
				Msg("computed threshold not applicable, skipping")
			continue
		}
		if !applied {
			continue
		}

		records = append(records, models.AdjustmentRecord{
			Rule:          step.Rule,
			Component:     trace.ComponentID,
			Feature:       step.Feature,
			OldThreshold:  step.Threshold,
			NewThreshold:  value,
			RejectedValue: step.FeatureValue,
			Timestamp:     now,
			Reason:        adjustmentReason,
		})
		metrics.ThresholdAdjustmentsTotal.WithLabelValues(trace.ComponentID, step.Rule).Inc()
	}

	if len(records) == 0 {
		metrics.AdjustmentRunsTotal.WithLabelValues("no_change").Inc()
		return records, nil
	}

	if err := a.catalog.Persist(); err != nil {
		metrics.AdjustmentRunsTotal.WithLabelValues("persist_failed").Inc()
		return records, err
	}

	if err := a.audit.Append(records...); err != nil {
		metrics.AdjustmentRunsTotal.WithLabelValues("audit_failed").Inc()
		return records, fmt.Errorf("record adjustments: %w", err)
	}

	metrics.AdjustmentRunsTotal.WithLabelValues("applied").Inc()
	log.Info().
		Str("component", trace.ComponentID).
		Str("trace_id", trace.TraceID).
		Int("adjustments", len(records)).
		Msg("thresholds recalibrated from rejected alert")

	return records, nil
}
