package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/pulse-dashboard/internal/apperror"
)

// HandleGitHubView serves GET /api/github
func (h *PanelHandler) HandleGitHubView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.GitHub.View())
}

// HandleGitHubSearch serves POST /api/github?user=octocat
func (h *PanelHandler) HandleGitHubSearch(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if user == "" {
		writeError(w, apperror.ValidationFailed("user", "Enter a GitHub username"))
		return
	}
	writeJSON(w, http.StatusOK, h.dash.GitHub.Search(fetchContext(r), user))
}

// HandleGitHubPage serves POST /api/github/page/{n}
func (h *PanelHandler) HandleGitHubPage(w http.ResponseWriter, r *http.Request) {
	n, err := pageParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.dash.GitHub.Page(fetchContext(r), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleGitHubMore serves POST /api/github/more
func (h *PanelHandler) HandleGitHubMore(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.GitHub.LoadMore(fetchContext(r)))
}

// HandleGitHubSelect serves POST /api/github/select/{id}
func (h *PanelHandler) HandleGitHubSelect(w http.ResponseWriter, r *http.Request) {
	v, err := h.dash.GitHub.Select(fetchContext(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
