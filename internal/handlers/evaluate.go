package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"vigil/internal/logger"
	"vigil/internal/models"
)

// Evaluator turns a feature snapshot into a decision trace
type Evaluator interface {
	Evaluate(snapshot *models.FeatureSnapshot) (*models.DecisionTrace, error)
}

// Archiver appends traces to the durable archive
type Archiver interface {
	Append(trace *models.DecisionTrace) error
}

// Tracker records the most recent trace per component
type Tracker interface {
	SetLatest(ctx context.Context, trace *models.DecisionTrace) error
}

// EvaluateHandler serves synchronous snapshot evaluation
type EvaluateHandler struct {
	evaluator   Evaluator
	archiver    Archiver
	tracker     Tracker
	maxBodySize int64
}

// EvaluateConfig holds configuration for the evaluate handler. Archiver
// and Tracker are optional.
type EvaluateConfig struct {
	Evaluator   Evaluator
	Archiver    Archiver
	Tracker     Tracker
	MaxBodySize int64
}

// NewEvaluateHandler creates a new evaluate handler
func NewEvaluateHandler(cfg EvaluateConfig) *EvaluateHandler {
	maxBodySize := cfg.MaxBodySize
	if maxBodySize == 0 {
		maxBodySize = 10 * 1024 * 1024 // 10MB default
	}

	return &EvaluateHandler{
		evaluator:   cfg.Evaluator,
		archiver:    cfg.Archiver,
		tracker:     cfg.Tracker,
		maxBodySize: maxBodySize,
	}
}

// ServeHTTP evaluates one snapshot and returns the full decision trace
func (h *EvaluateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	snapshot, err := models.DecodeSnapshot(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}

	snapshot.Normalize()
	if err := snapshot.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trace, err := h.evaluator.Evaluate(snapshot)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	// The trace is emitted like any pipeline trace: archived and
	// recorded as the component's latest.
	log := logger.WithComponent("handlers")
	if h.archiver != nil {
		if err := h.archiver.Append(trace); err != nil {
			log.Error().
				Err(err).
				Str("trace_id", trace.TraceID).
				Msg("failed to archive trace")
		}
	}
	if h.tracker != nil {
		if err := h.tracker.SetLatest(r.Context(), trace); err != nil {
			log.Error().
				Err(err).
				Str("trace_id", trace.TraceID).
				Msg("failed to record latest trace")
		}
	}

	writeJSON(w, http.StatusOK, trace)
}
