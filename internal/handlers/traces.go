package handlers

import (
	"net/http"
	"strings"

	"vigil/internal/state"
)

// TracesHandler serves the most recent decision trace per component
type TracesHandler struct {
	store state.Store
}

// NewTracesHandler creates a new traces handler
func NewTracesHandler(store state.Store) *TracesHandler {
	return &TracesHandler{store: store}
}

// ServeHTTP returns the latest trace for ?component=
func (h *TracesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	component := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("component")))
	if component == "" {
		writeError(w, http.StatusBadRequest, "component query parameter is required")
		return
	}

	trace, err := h.store.Latest(r.Context(), component)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if trace == nil {
		writeError(w, http.StatusNotFound, "no trace recorded for component: "+component)
		return
	}

	writeJSON(w, http.StatusOK, trace)
}
