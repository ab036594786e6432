package handlers

import (
	"net/http"
	"strings"

	"vigil/internal/models"
)

// CatalogReader exposes the current rule catalog
type CatalogReader interface {
	All() map[string][]models.Rule
	GetRules(component string) ([]models.Rule, bool)
}

// RulesHandler serves catalog inspection
type RulesHandler struct {
	catalog CatalogReader
}

// NewRulesHandler creates a new rules handler
func NewRulesHandler(catalog CatalogReader) *RulesHandler {
	return &RulesHandler{catalog: catalog}
}

// ServeHTTP returns the whole catalog, or one component's rule list
// when ?component= is given
func (h *RulesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	component := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("component")))
	if component == "" {
		writeJSON(w, http.StatusOK, h.catalog.All())
		return
	}

	ruleList, ok := h.catalog.GetRules(component)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown component: "+component)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"component": component,
		"rules":     ruleList,
	})
}
