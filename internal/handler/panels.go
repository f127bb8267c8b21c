package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/pulse-dashboard/internal/apperror"
	"github.com/sakif/pulse-dashboard/internal/dashboard"
)

// PanelHandler exposes the four feature panels.
//
// GET returns the current view; POST changes the query, the page or the
// selection and returns the view after the fetch. Provider failures are
// part of the view (error, quotaNotice, stale) and still answer 200; only
// bad input or an unknown selection is an HTTP error.
type PanelHandler struct {
	dash   *dashboard.Dashboard
	logger *slog.Logger
}

// NewPanelHandler creates a PanelHandler.
func NewPanelHandler(dash *dashboard.Dashboard, logger *slog.Logger) *PanelHandler {
	return &PanelHandler{dash: dash, logger: logger}
}

// fetchContext detaches panel fetches from the request: a client that
// hangs up must not turn an in-flight fetch into a panel error. The
// fetcher's own timeout still bounds it.
func fetchContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func pageParam(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 1 {
		return 0, apperror.ValidationFailed("page", "Page must be a positive integer")
	}
	return n, nil
}
