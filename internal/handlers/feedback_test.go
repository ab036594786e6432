package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"vigil/internal/feedback"
	"vigil/internal/handlers"
	"vigil/internal/models"
)

func newTestFeedbackLog(t *testing.T) *feedback.Log {
	t.Helper()
	return feedback.NewLog(filepath.Join(t.TempDir(), "interaction_logs.json"))
}

func TestFeedbackHandler_RecordsVerdict(t *testing.T) {
	log := newTestFeedbackLog(t)
	handler := handlers.NewFeedbackHandler(log, 0)

	body := `{
        "trace": {
            "trace_id": "trace-1",
            "component_id": "PUMP",
            "decision": "DANGER"
        },
        "explanation": "pump flagged as DANGER",
        "verdict": "Rejected"
    }`

	w := postJSON(handler, "/feedback", body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["success"] != true || resp["trace_id"] != "trace-1" {
		t.Errorf("unexpected response: %v", resp)
	}

	entries := log.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry in log, got %d", len(entries))
	}
	entry := entries[0]
	if entry.UserFeedback != models.VerdictRejected {
		t.Errorf("verdict = %q, want Rejected", entry.UserFeedback)
	}
	if entry.InputTrace == nil || entry.InputTrace.TraceID != "trace-1" {
		t.Errorf("trace not recorded: %+v", entry.InputTrace)
	}
	if entry.OutputExplanation != "pump flagged as DANGER" {
		t.Errorf("explanation = %q", entry.OutputExplanation)
	}
}

func TestFeedbackHandler_VerdictOptional(t *testing.T) {
	log := newTestFeedbackLog(t)
	handler := handlers.NewFeedbackHandler(log, 0)

	body := `{
        "trace": {"trace_id": "trace-1", "component_id": "PUMP"},
        "explanation": "shown to operator, no verdict yet"
    }`

	w := postJSON(handler, "/feedback", body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	entries := log.Entries()
	if len(entries) != 1 || entries[0].UserFeedback != "" {
		t.Errorf("expected 1 entry with no verdict, got %+v", entries)
	}
}

func TestFeedbackHandler_TraceRequired(t *testing.T) {
	handler := handlers.NewFeedbackHandler(newTestFeedbackLog(t), 0)

	w := postJSON(handler, "/feedback", `{"explanation": "no trace attached", "verdict": "Rejected"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without trace, got %d", w.Code)
	}
}

func TestFeedbackHandler_InvalidVerdict(t *testing.T) {
	handler := handlers.NewFeedbackHandler(newTestFeedbackLog(t), 0)

	body := `{"trace": {"trace_id": "trace-1"}, "verdict": "Maybe"}`

	w := postJSON(handler, "/feedback", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid verdict, got %d", w.Code)
	}
}

func TestFeedbackHandler_BadBody(t *testing.T) {
	handler := handlers.NewFeedbackHandler(newTestFeedbackLog(t), 0)

	w := postJSON(handler, "/feedback", `not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", w.Code)
	}
}

func TestFeedbackHandler_MethodNotAllowed(t *testing.T) {
	handler := handlers.NewFeedbackHandler(newTestFeedbackLog(t), 0)

	req := httptest.NewRequest(http.MethodGet, "/feedback", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}
