package models

// Comparator is the comparison operator a rule applies to a feature reading
type Comparator string

const (
	ComparatorGT Comparator = ">"
	ComparatorLT Comparator = "<"
	ComparatorGE Comparator = ">="
	ComparatorLE Comparator = "<="
)

// IsValid checks if the comparator is one of the supported operators
func (c Comparator) IsValid() bool {
	switch c {
	case ComparatorGT, ComparatorLT, ComparatorGE, ComparatorLE:
		return true
	default:
		return false
	}
}

// Apply evaluates value against threshold using the comparator
func (c Comparator) Apply(value, threshold float64) bool {
	switch c {
	case ComparatorGT:
		return value > threshold
	case ComparatorLT:
		return value < threshold
	case ComparatorGE:
		return value >= threshold
	case ComparatorLE:
		return value <= threshold
	default:
		return false
	}
}

// Rule is a single threshold comparison over one feature with an
// associated confidence contribution. Name is the immutable identity
// within a component; Threshold is the only field mutated after load,
// and only by the threshold adjuster.
type Rule struct {
	Name            string     `json:"rule"`
	Feature         string     `json:"feature"`
	Comparison      Comparator `json:"comparison"`
	Threshold       float64    `json:"threshold"`
	ConfidenceDelta float64    `json:"confidence_delta"`
}
