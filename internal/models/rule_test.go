package models_test

import (
	"testing"

	"vigil/internal/models"
)

func TestComparatorApply(t *testing.T) {
	tests := []struct {
		name       string
		comparator models.Comparator
		value      float64
		threshold  float64
		want       bool
	}{
		{"gt above", models.ComparatorGT, 4.5, 4.0, true},
		{"gt equal", models.ComparatorGT, 4.0, 4.0, false},
		{"gt below", models.ComparatorGT, 3.9, 4.0, false},
		{"lt below", models.ComparatorLT, 3.9, 4.0, true},
		{"lt equal", models.ComparatorLT, 4.0, 4.0, false},
		{"ge equal", models.ComparatorGE, 4.0, 4.0, true},
		{"ge below", models.ComparatorGE, 3.9, 4.0, false},
		{"le equal", models.ComparatorLE, 4.0, 4.0, true},
		{"le above", models.ComparatorLE, 4.1, 4.0, false},
		{"unknown comparator", models.Comparator("=="), 4.0, 4.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.comparator.Apply(tt.value, tt.threshold); got != tt.want {
				t.Errorf("Apply(%v, %v) = %v, want %v", tt.value, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestComparatorIsValid(t *testing.T) {
	valid := []models.Comparator{
		models.ComparatorGT,
		models.ComparatorLT,
		models.ComparatorGE,
		models.ComparatorLE,
	}
	for _, c := range valid {
		if !c.IsValid() {
			t.Errorf("Comparator %q should be valid", c)
		}
	}

	if models.Comparator("==").IsValid() {
		t.Error("unsupported comparator should return false")
	}
	if models.Comparator("").IsValid() {
		t.Error("empty comparator should return false")
	}
}
