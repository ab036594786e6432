package rules

import "vigil/internal/models"

// DefaultRuleSets returns the built-in rule catalog, seeded when no
// catalog file exists yet. Values come from the commissioning baselines
// for each machine class.
func DefaultRuleSets() map[string][]models.Rule {
	return map[string][]models.Rule{
		"PUMP": {
			{Name: "PUMP_VIBRATION_CRITICAL", Feature: "vibration_rms", Comparison: models.ComparatorGT, Threshold: 4.0, ConfidenceDelta: 0.35},
			{Name: "PUMP_TEMP_SPIKE", Feature: "temperature_delta", Comparison: models.ComparatorGT, Threshold: 5.0, ConfidenceDelta: 0.3},
			{Name: "PUMP_OVERHEAT", Feature: "temperature_c", Comparison: models.ComparatorGT, Threshold: 95.0, ConfidenceDelta: 0.4},
			{Name: "PUMP_HIGH_LOAD", Feature: "load_avg", Comparison: models.ComparatorGT, Threshold: 85.0, ConfidenceDelta: 0.2},
		},
		"CONVEYOR": {
			{Name: "CONVEYOR_VIB_TRENDING", Feature: "vibration_trend", Comparison: models.ComparatorGT, Threshold: 1.5, ConfidenceDelta: 0.25},
			{Name: "CONVEYOR_MOTOR_HEAT", Feature: "temperature_c", Comparison: models.ComparatorGT, Threshold: 80.0, ConfidenceDelta: 0.3},
			{Name: "CONVEYOR_LOAD_PEAK", Feature: "load_avg", Comparison: models.ComparatorGT, Threshold: 90.0, ConfidenceDelta: 0.2},
			{Name: "CONVEYOR_VIB_SPIKE", Feature: "vibration_delta", Comparison: models.ComparatorGT, Threshold: 0.8, ConfidenceDelta: 0.2},
		},
		"COMPRESSOR": {
			{Name: "COMP_DISCHARGE_TEMP", Feature: "temperature_c", Comparison: models.ComparatorGT, Threshold: 50.0, ConfidenceDelta: 0.2},
			{Name: "COMP_VIB_INSTABILITY", Feature: "vibration_rms", Comparison: models.ComparatorGT, Threshold: 7.44, ConfidenceDelta: 0.5},
			{Name: "COMP_RAPID_WARMING", Feature: "temperature_delta", Comparison: models.ComparatorGT, Threshold: 5.57, ConfidenceDelta: 0.2},
			{Name: "COMP_OVERLOAD", Feature: "load_avg", Comparison: models.ComparatorGT, Threshold: 98.28, ConfidenceDelta: 0.35},
		},
	}
}
