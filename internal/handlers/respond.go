package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"vigil/internal/adjuster"
	"vigil/internal/engine"
	"vigil/internal/feedback"
	"vigil/internal/rules"
)

// writeJSON writes v as the JSON response body
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a uniform error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownComponent):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrMissingFeature):
		return http.StatusBadRequest
	case errors.Is(err, rules.ErrInvalidThreshold):
		return http.StatusBadRequest
	case errors.Is(err, adjuster.ErrMalformedTrace):
		return http.StatusUnprocessableEntity
	case errors.Is(err, rules.ErrPersistFailed), errors.Is(err, feedback.ErrWriteFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
