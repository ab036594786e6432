package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"vigil/internal/metrics"
	"vigil/internal/models"
)

// IngestHandler handles asynchronous snapshot ingestion via HTTP
type IngestHandler struct {
	// Channel to push envelopes to the worker pool
	envelopeChan chan<- *models.Envelope

	// Node identifier for tracking
	nodeID string

	// Batch counter for generating batch IDs
	batchCounter uint64

	// Max body size (default 10MB)
	maxBodySize int64
}

// IngestConfig holds configuration for the ingest handler
type IngestConfig struct {
	EnvelopeChan chan<- *models.Envelope
	NodeID       string
	MaxBodySize  int64
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(cfg IngestConfig) *IngestHandler {
	nodeID := cfg.NodeID
	if nodeID == "" {
		nodeID, _ = os.Hostname()
		if nodeID == "" {
			nodeID = "unknown"
		}
	}

	maxBodySize := cfg.MaxBodySize
	if maxBodySize == 0 {
		maxBodySize = 10 * 1024 * 1024 // 10MB default
	}

	return &IngestHandler{
		envelopeChan: cfg.EnvelopeChan,
		nodeID:       nodeID,
		maxBodySize:  maxBodySize,
	}
}

// IngestRequest represents the incoming JSON payload (single or batch)
type IngestRequest struct {
	// Single snapshot (if Snapshots is empty)
	Snapshot json.RawMessage `json:"snapshot,omitempty"`

	// Batch of snapshots
	Snapshots []json.RawMessage `json:"snapshots,omitempty"`
}

// IngestResponse is the response returned to clients
type IngestResponse struct {
	Success  bool          `json:"success"`
	Accepted int           `json:"accepted"`
	Rejected int           `json:"rejected"`
	Errors   []IngestError `json:"errors,omitempty"`
}

// IngestError describes a validation error for a specific snapshot
type IngestError struct {
	Index     int    `json:"index"`
	Component string `json:"component,omitempty"`
	Error     string `json:"error"`
}

// ServeHTTP handles the ingest HTTP request
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only accept POST
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Check content type
	contentType := r.Header.Get("Content-Type")
	if contentType != "application/json" && contentType != "" {
		writeError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		return
	}

	// Limit body size
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	// Read body
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	// Parse JSON
	raws, err := h.parseBody(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(raws) == 0 {
		writeError(w, http.StatusBadRequest, "no snapshots provided")
		return
	}

	// Generate batch ID
	batchID := h.generateBatchID()

	// Process snapshots
	response := h.processSnapshots(raws, batchID)

	// Return response
	if response.Rejected > 0 && response.Accepted == 0 {
		writeJSON(w, http.StatusBadRequest, response)
	} else {
		writeJSON(w, http.StatusOK, response)
	}
}

// parseBody splits the JSON body into individual raw snapshots
func (h *IngestHandler) parseBody(body []byte) ([]json.RawMessage, error) {
	// Try parsing as IngestRequest first
	var req IngestRequest
	if err := json.Unmarshal(body, &req); err == nil {
		if len(req.Snapshots) > 0 {
			return req.Snapshots, nil
		}
		if len(req.Snapshot) > 0 {
			return []json.RawMessage{req.Snapshot}, nil
		}
	}

	// Try parsing as array of snapshots
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err == nil && len(raws) > 0 {
		return raws, nil
	}

	// Fall back to a single bare snapshot object
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err == nil && len(probe) > 0 {
		return []json.RawMessage{body}, nil
	}

	return nil, fmt.Errorf("invalid JSON format: expected snapshot object or array of snapshots")
}

// processSnapshots validates, normalizes, and pushes snapshots to the channel
func (h *IngestHandler) processSnapshots(raws []json.RawMessage, batchID string) IngestResponse {
	response := IngestResponse{
		Success: true,
		Errors:  make([]IngestError, 0),
	}

	for i, raw := range raws {
		snapshot, err := models.DecodeSnapshot(raw)
		if err != nil {
			response.Errors = append(response.Errors, IngestError{
				Index: i,
				Error: err.Error(),
			})
			response.Rejected++
			metrics.IngestValidationErrors.WithLabelValues("decode").Inc()
			continue
		}

		if snapshot.Timestamp.IsZero() {
			snapshot.Timestamp = time.Now().UTC()
		}

		// Normalize the snapshot
		snapshot.Normalize()

		// Validate the snapshot
		if err := snapshot.Validate(); err != nil {
			response.Errors = append(response.Errors, IngestError{
				Index:     i,
				Component: snapshot.Component,
				Error:     err.Error(),
			})
			response.Rejected++
			metrics.IngestValidationErrors.WithLabelValues("validation").Inc()
			metrics.IngestSnapshotsTotal.WithLabelValues(snapshot.Component, "rejected").Inc()
			continue
		}

		// Create envelope and push to channel
		envelope := models.NewEnvelope(snapshot, h.nodeID).WithBatch(batchID, i)

		// Non-blocking send: the queue absorbs bursts, not sustained overload
		select {
		case h.envelopeChan <- envelope:
			response.Accepted++
			metrics.IngestSnapshotsTotal.WithLabelValues(snapshot.Component, "accepted").Inc()
		default:
			// Channel full - reject snapshot
			response.Errors = append(response.Errors, IngestError{
				Index:     i,
				Component: snapshot.Component,
				Error:     "internal queue full, try again later",
			})
			response.Rejected++
			metrics.IngestValidationErrors.WithLabelValues("queue_full").Inc()
			metrics.IngestSnapshotsTotal.WithLabelValues(snapshot.Component, "rejected").Inc()
		}
	}

	response.Success = response.Rejected == 0
	return response
}

// generateBatchID generates a unique batch ID
func (h *IngestHandler) generateBatchID() string {
	counter := atomic.AddUint64(&h.batchCounter, 1)
	return fmt.Sprintf("%s-%d-%d", h.nodeID, time.Now().UnixNano(), counter)
}
