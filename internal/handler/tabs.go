package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/pulse-dashboard/internal/apperror"
	"github.com/sakif/pulse-dashboard/internal/tabs"
)

// TabsHandler serves the shell's tab bar.
type TabsHandler struct {
	router *tabs.Router
	logger *slog.Logger
}

// NewTabsHandler creates a TabsHandler.
func NewTabsHandler(router *tabs.Router, logger *slog.Logger) *TabsHandler {
	return &TabsHandler{router: router, logger: logger}
}

// HandleView returns the tab bar and stacking order.
//
// HTTP: GET /api/tabs
func (h *TabsHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.router.View())
}

// HandleSelect brings a tab to the front.
//
// HTTP: POST /api/tabs/{id}/select
//
// Unknown ids are a 404 here; Router.Select itself treats a bad index as a
// programming error.
func (h *TabsHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	idx, ok := h.router.IndexOf(id)
	if !ok {
		writeError(w, apperror.NotFound("tab", id))
		return
	}

	h.router.Select(idx)
	writeJSON(w, http.StatusOK, h.router.View())
}
