package state_test

import (
	"context"
	"testing"
	"time"

	"vigil/internal/models"
	"vigil/internal/state"
)

func traceAt(component string, ts time.Time) *models.DecisionTrace {
	return &models.DecisionTrace{
		TraceID:     "trace-" + component + "-" + ts.Format("150405.000"),
		ComponentID: component,
		Timestamp:   ts,
		Decision:    models.DecisionNormal,
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := state.NewMemoryStore()
	ctx := context.Background()

	trace := traceAt("PUMP", time.Now().UTC())
	if err := store.SetLatest(ctx, trace); err != nil {
		t.Fatalf("SetLatest() error = %v", err)
	}

	got, err := store.Latest(ctx, "PUMP")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got == nil || got.TraceID != trace.TraceID {
		t.Errorf("Latest() = %v, want %v", got, trace)
	}
}

func TestMemoryStoreUnknownComponent(t *testing.T) {
	store := state.NewMemoryStore()

	got, err := store.Latest(context.Background(), "TURBINE")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown component, got %v", got)
	}
}

func TestMemoryStoreKeepsNewest(t *testing.T) {
	store := state.NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	newer := traceAt("PUMP", now)
	older := traceAt("PUMP", now.Add(-time.Minute))

	if err := store.SetLatest(ctx, newer); err != nil {
		t.Fatalf("SetLatest() error = %v", err)
	}
	// Workers finish out of order; the stale trace must not win
	if err := store.SetLatest(ctx, older); err != nil {
		t.Fatalf("SetLatest() error = %v", err)
	}

	got, _ := store.Latest(ctx, "PUMP")
	if got.TraceID != newer.TraceID {
		t.Errorf("older trace replaced newer one: got %v", got.TraceID)
	}
}

func TestMemoryStoreIgnoresInvalid(t *testing.T) {
	store := state.NewMemoryStore()
	ctx := context.Background()

	if err := store.SetLatest(ctx, nil); err != nil {
		t.Errorf("nil trace should be ignored, got %v", err)
	}
	if err := store.SetLatest(ctx, &models.DecisionTrace{TraceID: "no-component"}); err != nil {
		t.Errorf("trace without component should be ignored, got %v", err)
	}

	components, _ := store.Components(ctx)
	if len(components) != 0 {
		t.Errorf("store should stay empty, got %v", components)
	}
}

func TestMemoryStoreComponentsSorted(t *testing.T) {
	store := state.NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	for _, c := range []string{"PUMP", "COMPRESSOR", "CONVEYOR"} {
		if err := store.SetLatest(ctx, traceAt(c, now)); err != nil {
			t.Fatalf("SetLatest() error = %v", err)
		}
	}

	components, err := store.Components(ctx)
	if err != nil {
		t.Fatalf("Components() error = %v", err)
	}

	want := []string{"COMPRESSOR", "CONVEYOR", "PUMP"}
	if len(components) != len(want) {
		t.Fatalf("Components() = %v, want %v", components, want)
	}
	for i := range want {
		if components[i] != want[i] {
			t.Errorf("Components()[%d] = %q, want %q", i, components[i], want[i])
		}
	}
}
