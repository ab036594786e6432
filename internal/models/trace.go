package models

import "time"

// StepResult is the outcome of evaluating one rule against one snapshot
type StepResult string

const (
	StepFired StepResult = "FIRED"
	StepPass  StepResult = "PASS"
)

// Decision is the final classification of an evaluation run
type Decision string

const (
	DecisionNormal     Decision = "NORMAL"
	DecisionBorderline Decision = "BORDERLINE"
	DecisionDanger     Decision = "DANGER"
)

// Severity labels the confidence band a final confidence falls into
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityBands maps band lower bounds to labels, scanned from the
// highest bound downward; the first bound <= confidence wins
var severityBands = []struct {
	lower float64
	label Severity
}{
	{0.9, SeverityCritical},
	{0.7, SeverityHigh},
	{0.4, SeverityModerate},
	{0.0, SeverityLow},
}

// SeverityForConfidence maps a confidence score in [0,1] to its band
func SeverityForConfidence(confidence float64) Severity {
	for _, band := range severityBands {
		if confidence >= band.lower {
			return band.label
		}
	}
	return SeverityLow
}

// ReasoningStep records the evaluation of a single rule. Steps are
// immutable once produced; StepID is 1-based and follows catalog order.
type ReasoningStep struct {
	StepID              int        `json:"step_id"`
	Rule                string     `json:"rule"`
	Feature             string     `json:"feature"`
	FeatureValue        float64    `json:"feature_value"`
	Threshold           float64    `json:"threshold"`
	Comparison          Comparator `json:"comparison"`
	RuleResult          StepResult `json:"rule_result"`
	ConfidenceAfterStep float64    `json:"confidence_after_step"`
	Timestamp           time.Time  `json:"timestamp"`
}

// DecisionTrace is the complete ordered output of evaluating all rules
// for one component at one point in time. Created once per evaluation
// call and owned by the caller afterwards.
type DecisionTrace struct {
	TraceID         string          `json:"trace_id"`
	ComponentID     string          `json:"component_id"`
	Timestamp       time.Time       `json:"timestamp"`
	ReasoningTrace  []ReasoningStep `json:"reasoning_trace"`
	FinalConfidence float64         `json:"final_confidence"`
	Severity        Severity        `json:"severity"`
	Decision        Decision        `json:"decision"`
	RulesTriggered  []string        `json:"rules_triggered"`
}
