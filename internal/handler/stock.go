package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// HandleStockView serves GET /api/stock
func (h *PanelHandler) HandleStockView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.Stock.View())
}

// HandleStockSearch serves POST /api/stock?q=ibm
//
// An empty q is allowed: it clears the suggestions without a provider call.
func (h *PanelHandler) HandleStockSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, h.dash.Stock.Search(fetchContext(r), q))
}

// HandleStockSelect serves POST /api/stock/select/{symbol}
func (h *PanelHandler) HandleStockSelect(w http.ResponseWriter, r *http.Request) {
	v, err := h.dash.Stock.Select(fetchContext(r), chi.URLParam(r, "symbol"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
