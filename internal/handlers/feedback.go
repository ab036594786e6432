package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"vigil/internal/models"
)

// Appender records interactions in the feedback log
type Appender interface {
	Append(entry models.InteractionEntry) error
}

// FeedbackHandler captures operator verdicts on past alerts
type FeedbackHandler struct {
	log         Appender
	maxBodySize int64
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(log Appender, maxBodySize int64) *FeedbackHandler {
	if maxBodySize == 0 {
		maxBodySize = 10 * 1024 * 1024 // 10MB default
	}
	return &FeedbackHandler{log: log, maxBodySize: maxBodySize}
}

// FeedbackRequest is the incoming JSON payload
type FeedbackRequest struct {
	Trace       *models.DecisionTrace `json:"trace"`
	Explanation string                `json:"explanation"`
	Verdict     models.Verdict        `json:"verdict,omitempty"`
}

// ServeHTTP appends one interaction entry
func (h *FeedbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType != "application/json" && contentType != "" {
		writeError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var req FeedbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if req.Trace == nil {
		writeError(w, http.StatusBadRequest, "trace is required")
		return
	}

	if req.Verdict != "" && !req.Verdict.IsValid() {
		writeError(w, http.StatusBadRequest, "verdict must be Accepted or Rejected")
		return
	}

	entry := models.InteractionEntry{
		Timestamp:         time.Now().UTC(),
		InputTrace:        req.Trace,
		OutputExplanation: req.Explanation,
		UserFeedback:      req.Verdict,
	}

	if err := h.log.Append(entry); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success":  true,
		"trace_id": req.Trace.TraceID,
	})
}
