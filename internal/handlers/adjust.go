package handlers

import (
	"net/http"

	"vigil/internal/models"
)

// Adjuster runs one threshold adjustment pass
type Adjuster interface {
	AdjustFromLatestRejection() ([]models.AdjustmentRecord, error)
}

// AdjustHandler triggers threshold recalibration from the latest
// rejected alert
type AdjustHandler struct {
	adjuster Adjuster
}

// NewAdjustHandler creates a new adjust handler
func NewAdjustHandler(adjuster Adjuster) *AdjustHandler {
	return &AdjustHandler{adjuster: adjuster}
}

// ServeHTTP runs the adjustment and returns the applied records
func (h *AdjustHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	records, err := h.adjuster.AdjustFromLatestRejection()
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"count":       len(records),
		"adjustments": records,
	})
}
