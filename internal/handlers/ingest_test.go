package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vigil/internal/handlers"
	"vigil/internal/models"
)

func TestIngestHandler_SingleSnapshot(t *testing.T) {
	ch := make(chan *models.Envelope, 10)
	handler := handlers.NewIngestHandler(handlers.IngestConfig{
		EnvelopeChan: ch,
		NodeID:       "test-node",
	})

	body := `{
        "component": "pump",
        "timestamp": "2025-06-01T12:00:00Z",
        "features": {"vibration_rms": 4.5, "temperature_c": 71.5}
    }`

	w := postJSON(handler, "/ingest", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp handlers.IngestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if !resp.Success || resp.Accepted != 1 || resp.Rejected != 0 {
		t.Errorf("unexpected response: %+v", resp)
	}

	// Check envelope was pushed
	select {
	case envelope := <-ch:
		if envelope.Snapshot.Component != "PUMP" {
			t.Errorf("component not normalized: got %s", envelope.Snapshot.Component)
		}
		if envelope.Snapshot.Features["vibration_rms"] != 4.5 {
			t.Errorf("features lost: %v", envelope.Snapshot.Features)
		}
		if envelope.IngestNode != "test-node" {
			t.Errorf("ingest node = %q, want test-node", envelope.IngestNode)
		}
		if envelope.BatchID == "" {
			t.Error("batch id missing")
		}
	case <-time.After(time.Second):
		t.Fatal("no envelope received")
	}
}

func TestIngestHandler_WrappedSnapshot(t *testing.T) {
	ch := make(chan *models.Envelope, 10)
	handler := handlers.NewIngestHandler(handlers.IngestConfig{
		EnvelopeChan: ch,
		NodeID:       "test-node",
	})

	body := `{"snapshot": {"component": "pump", "features": {"vibration_rms": 2.0}}}`

	w := postJSON(handler, "/ingest", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp handlers.IngestResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Accepted != 1 {
		t.Errorf("expected 1 accepted, got %d", resp.Accepted)
	}
}

func TestIngestHandler_BatchSnapshots(t *testing.T) {
	ch := make(chan *models.Envelope, 10)
	handler := handlers.NewIngestHandler(handlers.IngestConfig{
		EnvelopeChan: ch,
		NodeID:       "test-node",
	})

	body := `{
        "snapshots": [
            {"component": "pump", "timestamp": "2025-06-01T12:00:00Z", "features": {"vibration_rms": 2.0}},
            {"component": "conveyor", "timestamp": "2025-06-01T12:00:01Z", "features": {"vibration_trend": 0.4}}
        ]
    }`

	w := postJSON(handler, "/ingest", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp handlers.IngestResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Accepted != 2 {
		t.Errorf("expected 2 accepted, got %d", resp.Accepted)
	}

	// Both envelopes share a batch id and carry their index
	for i := 0; i < 2; i++ {
		select {
		case envelope := <-ch:
			if envelope.BatchID == "" {
				t.Error("batch id missing")
			}
			if envelope.BatchIndex != i {
				t.Errorf("batch index = %d, want %d", envelope.BatchIndex, i)
			}
		case <-time.After(time.Second):
			t.Fatal("missing envelope")
		}
	}
}

func TestIngestHandler_BareArray(t *testing.T) {
	ch := make(chan *models.Envelope, 10)
	handler := handlers.NewIngestHandler(handlers.IngestConfig{
		EnvelopeChan: ch,
		NodeID:       "test-node",
	})

	body := `[
        {"component": "pump", "features": {"vibration_rms": 2.0}},
        {"component": "compressor", "features": {"temperature_c": 45.0}}
    ]`

	w := postJSON(handler, "/ingest", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp handlers.IngestResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Accepted != 2 {
		t.Errorf("expected 2 accepted, got %d", resp.Accepted)
	}
}

func TestIngestHandler_ValidationErrors(t *testing.T) {
	ch := make(chan *models.Envelope, 10)
	handler := handlers.NewIngestHandler(handlers.IngestConfig{
		EnvelopeChan: ch,
		NodeID:       "test-node",
	})

	body := `{
        "snapshots": [
            {"component": "pump", "features": {"vibration_rms": 2.0}},
            {"component": "pump", "note": "no numeric features here"}
        ]
    }`

	w := postJSON(handler, "/ingest", body)

	var resp handlers.IngestResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Accepted != 1 || resp.Rejected != 1 {
		t.Errorf("expected 1 accepted, 1 rejected, got %d/%d", resp.Accepted, resp.Rejected)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Index != 1 {
		t.Errorf("expected error at index 1: %+v", resp.Errors)
	}
	if resp.Success {
		t.Error("partial rejection must clear the success flag")
	}
}

func TestIngestHandler_AllRejected(t *testing.T) {
	ch := make(chan *models.Envelope, 10)
	handler := handlers.NewIngestHandler(handlers.IngestConfig{
		EnvelopeChan: ch,
		NodeID:       "test-node",
	})

	body := `{"component": "", "features": {"vibration_rms": 2.0}}`

	w := postJSON(handler, "/ingest", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 when every snapshot is rejected, got %d", w.Code)
	}
}

func TestIngestHandler_QueueFull(t *testing.T) {
	// Unbuffered channel with no consumer: every send would block
	ch := make(chan *models.Envelope)
	handler := handlers.NewIngestHandler(handlers.IngestConfig{
		EnvelopeChan: ch,
		NodeID:       "test-node",
	})

	body := `{"component": "pump", "features": {"vibration_rms": 2.0}}`

	w := postJSON(handler, "/ingest", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when the queue is full, got %d", w.Code)
	}

	var resp handlers.IngestResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Rejected != 1 || len(resp.Errors) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Errors[0].Error != "internal queue full, try again later" {
		t.Errorf("unexpected error message: %q", resp.Errors[0].Error)
	}
}

func TestIngestHandler_MethodNotAllowed(t *testing.T) {
	ch := make(chan *models.Envelope, 10)
	handler := handlers.NewIngestHandler(handlers.IngestConfig{
		EnvelopeChan: ch,
	})

	req := httptest.NewRequest(http.MethodGet, "/ingest", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}
