package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vigil/internal/logger"
	"vigil/internal/metrics"
	"vigil/internal/models"
)

// Evaluation errors
var (
	ErrUnknownComponent = errors.New("unknown component")
	ErrMissingFeature   = errors.New("missing feature in snapshot")
)

// RuleSource provides the current ordered rules for a component.
type RuleSource interface {
	GetRules(component string) ([]models.Rule, bool)
}

// Engine evaluates feature snapshots against the rule catalog. It reads
// the catalog but never writes it; every call produces a complete trace
// or no trace at all.
type Engine struct {
	rules RuleSource
}

// New creates an evaluation engine backed by the given rule source
func New(rules RuleSource) *Engine {
	return &Engine{rules: rules}
}

// Evaluate runs every rule configured for the snapshot's component, in
// catalog order, and returns the full decision trace.
//
// An unknown component or a feature referenced by a rule but absent from
// the snapshot aborts the whole call: a partial trace would misrepresent
// the accumulated confidence.
func (e *Engine) Evaluate(snapshot *models.FeatureSnapshot) (*models.DecisionTrace, error) {
	start := time.Now()

	ruleList, ok := e.rules.GetRules(snapshot.Component)
	if !ok {
		metrics.EvaluationErrors.WithLabelValues("unknown_component").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, snapshot.Component)
	}

	now := time.Now().UTC()
	steps := make([]models.ReasoningStep, 0, len(ruleList))
	fired := make([]string, 0, len(ruleList))
	confidence := 0.0

	for i, rule := range ruleList {
		value, ok := snapshot.Features[rule.Feature]
		if !ok {
			metrics.EvaluationErrors.WithLabelValues("missing_feature").Inc()
			return nil, fmt.Errorf("%w: %s (required by rule %s)", ErrMissingFeature, rule.Feature, rule.Name)
		}

		result := models.StepPass
		if rule.Comparison.Apply(value, rule.Threshold) {
			result = models.StepFired
			confidence = clamp01(confidence + rule.ConfidenceDelta)
			fired = append(fired, rule.Name)
			metrics.RulesFired.WithLabelValues(snapshot.Component, rule.Name).Inc()
		}

		steps = append(steps, models.ReasoningStep{
			StepID:              i + 1,
			Rule:                rule.Name,
			Feature:             rule.Feature,
			FeatureValue:        value,
			Threshold:           rule.Threshold,
			Comparison:          rule.Comparison,
			RuleResult:          result,
			ConfidenceAfterStep: confidence,
			Timestamp:           now,
		})
	}

	severity := models.SeverityForConfidence(confidence)
	decision := deriveDecision(severity, len(fired) > 0)

	trace := &models.DecisionTrace{
		TraceID:         uuid.New().String(),
		ComponentID:     snapshot.Component,
		Timestamp:       now,
		ReasoningTrace:  steps,
		FinalConfidence: confidence,
		Severity:        severity,
		Decision:        decision,
		RulesTriggered:  fired,
	}

	metrics.EvaluationsTotal.WithLabelValues(snapshot.Component, string(decision)).Inc()
	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())

	log := logger.WithComponent("engine")
	log.Debug().
		Str("trace_id", trace.TraceID).
		Str("component", snapshot.Component).
		Str("decision", string(decision)).
		Float64("confidence", confidence).
		Int("rules_fired", len(fired)).
		Msg("snapshot evaluated")

	return trace, nil
}

// deriveDecision maps the severity band to the decision label. A run
// where no rule fired is always NORMAL.
func deriveDecision(severity models.Severity, anyFired bool) models.Decision {
	if !anyFired {
		return models.DecisionNormal
	}
	switch severity {
	case models.SeverityCritical, models.SeverityHigh:
		return models.DecisionDanger
	case models.SeverityModerate:
		return models.DecisionBorderline
	default:
		return models.DecisionNormal
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
