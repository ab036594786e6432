package models

import "time"

// Verdict is the human judgement attached to a past alert
type Verdict string

const (
	VerdictAccepted Verdict = "Accepted"
	VerdictRejected Verdict = "Rejected"
)

// IsValid checks if the verdict is one of the recognized values
func (v Verdict) IsValid() bool {
	return v == VerdictAccepted || v == VerdictRejected
}

// InteractionEntry is one record in the feedback log: the trace that was
// shown, the explanation rendered for it, and the optional human verdict.
// Entries are append-only and never mutated after write.
type InteractionEntry struct {
	Timestamp         time.Time      `json:"timestamp"`
	InputTrace        *DecisionTrace `json:"input_trace"`
	OutputExplanation string         `json:"output_explanation"`
	UserFeedback      Verdict        `json:"user_feedback,omitempty"`
}

// AdjustmentRecord is one audit entry produced when a rule threshold is
// recalibrated from a rejected alert
type AdjustmentRecord struct {
	Rule          string    `json:"rule"`
	Component     string    `json:"component"`
	Feature       string    `json:"feature"`
	OldThreshold  float64   `json:"old_threshold"`
	NewThreshold  float64   `json:"new_threshold"`
	RejectedValue float64   `json:"rejected_value"`
	Timestamp     time.Time `json:"timestamp"`
	Reason        string    `json:"reason"`
}
