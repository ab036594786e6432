package rules_test

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"vigil/internal/models"
	"vigil/internal/rules"
)

func openTestCatalog(t *testing.T) *rules.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules_catalog.json")
	catalog, err := rules.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return catalog
}

func TestOpenSeedsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules_catalog.json")

	catalog, err := rules.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if got := catalog.RuleCount(); got != 12 {
		t.Errorf("RuleCount() = %d, want 12", got)
	}

	components := catalog.Components()
	want := []string{"COMPRESSOR", "CONVEYOR", "PUMP"}
	if len(components) != len(want) {
		t.Fatalf("Components() = %v, want %v", components, want)
	}
	for i := range want {
		if components[i] != want[i] {
			t.Errorf("Components()[%d] = %q, want %q", i, components[i], want[i])
		}
	}

	// Seeding persists the defaults to disk
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("seeded catalog file not written: %v", err)
	}
	var onDisk map[string][]models.Rule
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("seeded catalog file not parseable: %v", err)
	}
	if len(onDisk["PUMP"]) != 4 {
		t.Errorf("seeded file has %d PUMP rules, want 4", len(onDisk["PUMP"]))
	}
}

func TestOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules_catalog.json")

	catalog, err := rules.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := catalog.UpdateThreshold("PUMP", "PUMP_VIBRATION_CRITICAL", 4.73); err != nil {
		t.Fatalf("UpdateThreshold() error = %v", err)
	}
	if err := catalog.Persist(); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	reopened, err := rules.Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}

	if got, ok := reopened.GetThreshold("PUMP", "PUMP_VIBRATION_CRITICAL"); !ok || got != 4.73 {
		t.Errorf("reopened threshold = %v (ok=%v), want 4.73", got, ok)
	}

	// Rule order within a component survives the round trip
	list, ok := reopened.GetRules("PUMP")
	if !ok {
		t.Fatal("reopened catalog missing PUMP")
	}
	wantOrder := []string{"PUMP_VIBRATION_CRITICAL", "PUMP_TEMP_SPIKE", "PUMP_OVERHEAT", "PUMP_HIGH_LOAD"}
	for i, rule := range list {
		if rule.Name != wantOrder[i] {
			t.Errorf("rule %d = %q, want %q", i, rule.Name, wantOrder[i])
		}
	}
}

func TestOpenRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not JSON", `{{{`},
		{"empty component id", `{"": [{"rule": "R1", "feature": "f", "comparison": ">", "threshold": 1, "confidence_delta": 0.1}]}`},
		{"unnamed rule", `{"PUMP": [{"feature": "f", "comparison": ">", "threshold": 1, "confidence_delta": 0.1}]}`},
		{"duplicate rule", `{"PUMP": [{"rule": "R1", "feature": "f", "comparison": ">", "threshold": 1, "confidence_delta": 0.1}, {"rule": "R1", "feature": "g", "comparison": ">", "threshold": 2, "confidence_delta": 0.1}]}`},
		{"missing feature", `{"PUMP": [{"rule": "R1", "comparison": ">", "threshold": 1, "confidence_delta": 0.1}]}`},
		{"bad comparator", `{"PUMP": [{"rule": "R1", "feature": "f", "comparison": "==", "threshold": 1, "confidence_delta": 0.1}]}`},
		{"zero threshold", `{"PUMP": [{"rule": "R1", "feature": "f", "comparison": ">", "threshold": 0, "confidence_delta": 0.1}]}`},
		{"delta out of range", `{"PUMP": [{"rule": "R1", "feature": "f", "comparison": ">", "threshold": 1, "confidence_delta": 1.5}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rules_catalog.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}
			if _, err := rules.Open(path); err == nil {
				t.Error("Open() should reject malformed catalog")
			}
		})
	}
}

func TestGetRulesReturnsCopy(t *testing.T) {
	catalog := openTestCatalog(t)

	list, ok := catalog.GetRules("PUMP")
	if !ok {
		t.Fatal("GetRules(PUMP) not found")
	}
	list[0].Threshold = 999.0

	fresh, _ := catalog.GetRules("PUMP")
	if fresh[0].Threshold == 999.0 {
		t.Error("mutating the returned slice must not affect the catalog")
	}
}

func TestGetRulesUnknownComponent(t *testing.T) {
	catalog := openTestCatalog(t)

	if _, ok := catalog.GetRules("TURBINE"); ok {
		t.Error("GetRules should report unknown components")
	}
}

func TestUpdateThreshold(t *testing.T) {
	catalog := openTestCatalog(t)

	t.Run("success", func(t *testing.T) {
		applied, err := catalog.UpdateThreshold("PUMP", "PUMP_VIBRATION_CRITICAL", 4.2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !applied {
			t.Error("update should be applied")
		}
		if got, _ := catalog.GetThreshold("PUMP", "PUMP_VIBRATION_CRITICAL"); got != 4.2 {
			t.Errorf("GetThreshold() = %v, want 4.2", got)
		}
	})

	t.Run("unknown component", func(t *testing.T) {
		applied, err := catalog.UpdateThreshold("TURBINE", "PUMP_VIBRATION_CRITICAL", 4.2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if applied {
			t.Error("unknown component should not apply")
		}
	})

	t.Run("unknown rule", func(t *testing.T) {
		applied, err := catalog.UpdateThreshold("PUMP", "PUMP_NO_SUCH_RULE", 4.2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if applied {
			t.Error("unknown rule should not apply")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		before, _ := catalog.GetThreshold("PUMP", "PUMP_OVERHEAT")
		for _, value := range []float64{0, -1.5, math.NaN(), math.Inf(1), math.Inf(-1)} {
			applied, err := catalog.UpdateThreshold("PUMP", "PUMP_OVERHEAT", value)
			if !errors.Is(err, rules.ErrInvalidThreshold) {
				t.Errorf("UpdateThreshold(%v) error = %v, want ErrInvalidThreshold", value, err)
			}
			if applied {
				t.Errorf("UpdateThreshold(%v) should not apply", value)
			}
		}
		after, _ := catalog.GetThreshold("PUMP", "PUMP_OVERHEAT")
		if before != after {
			t.Errorf("threshold changed by rejected update: %v -> %v", before, after)
		}
	})
}

func TestAllReturnsCopy(t *testing.T) {
	catalog := openTestCatalog(t)

	all := catalog.All()
	if len(all) != 3 {
		t.Fatalf("All() returned %d components, want 3", len(all))
	}
	all["PUMP"][0].Threshold = 999.0

	if got, _ := catalog.GetThreshold("PUMP", all["PUMP"][0].Name); got == 999.0 {
		t.Error("mutating All() result must not affect the catalog")
	}
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules_catalog.json")
	catalog, err := rules.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	t.Run("own write skipped", func(t *testing.T) {
		applied, err := catalog.Reload()
		if err != nil {
			t.Fatalf("Reload() error = %v", err)
		}
		if applied {
			t.Error("reloading the catalog's own persist should be skipped")
		}
	})

	t.Run("external edit applied", func(t *testing.T) {
		edited := rules.DefaultRuleSets()
		edited["PUMP"][0].Threshold = 9.99
		data, err := json.MarshalIndent(edited, "", "  ")
		if err != nil {
			t.Fatalf("marshal fixture: %v", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}

		applied, err := catalog.Reload()
		if err != nil {
			t.Fatalf("Reload() error = %v", err)
		}
		if !applied {
			t.Error("external edit should be applied")
		}
		if got, _ := catalog.GetThreshold("PUMP", "PUMP_VIBRATION_CRITICAL"); got != 9.99 {
			t.Errorf("GetThreshold() after reload = %v, want 9.99", got)
		}
	})

	t.Run("malformed edit keeps previous rules", func(t *testing.T) {
		if err := os.WriteFile(path, []byte(`{"broken":`), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}

		if _, err := catalog.Reload(); err == nil {
			t.Error("Reload() should fail on malformed file")
		}
		if got, _ := catalog.GetThreshold("PUMP", "PUMP_VIBRATION_CRITICAL"); got != 9.99 {
			t.Errorf("rules changed after failed reload: got %v", got)
		}
	})
}
