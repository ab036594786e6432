package adjuster_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vigil/internal/adjuster"
	"vigil/internal/models"
)

func auditRecord(rule string) models.AdjustmentRecord {
	return models.AdjustmentRecord{
		Rule:          rule,
		Component:     "PUMP",
		Feature:       "vibration_rms",
		OldThreshold:  4.0,
		NewThreshold:  4.73,
		RejectedValue: 4.5,
		Timestamp:     time.Now().UTC(),
		Reason:        "User rejected alert - value now considered normal",
	}
}

func TestTrailAppendAndRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threshold_adjustments.json")
	trail := adjuster.NewTrail(path)

	if records := trail.Records(); len(records) != 0 {
		t.Errorf("missing file should read as empty, got %d", len(records))
	}

	if err := trail.Append(auditRecord("R1"), auditRecord("R2")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := trail.Append(auditRecord("R3")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records := trail.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Rule != "R1" || records[2].Rule != "R3" {
		t.Errorf("records out of order: %v, %v", records[0].Rule, records[2].Rule)
	}

	// A fresh trail on the same file sees the same history
	if got := adjuster.NewTrail(path).Records(); len(got) != 3 {
		t.Errorf("reopened trail has %d records, want 3", len(got))
	}
}

func TestTrailAppendNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threshold_adjustments.json")
	trail := adjuster.NewTrail(path)

	if err := trail.Append(); err != nil {
		t.Fatalf("empty append should be a no-op, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("empty append must not create the file")
	}
}

func TestTrailMalformedFileReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threshold_adjustments.json")
	if err := os.WriteFile(path, []byte(`not an array`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	trail := adjuster.NewTrail(path)
	if records := trail.Records(); len(records) != 0 {
		t.Errorf("malformed file should read as empty, got %d", len(records))
	}
}
