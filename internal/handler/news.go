package handler

import (
	"net/http"

	"github.com/sakif/pulse-dashboard/internal/apperror"
	"github.com/sakif/pulse-dashboard/internal/panel"
	"github.com/sakif/pulse-dashboard/internal/provider/news"
)

// NewsView adds the pagination bar to the news panel.
type NewsView struct {
	panel.View[string, news.Article, panel.None]
	Categories []string `json:"categories"`
	TotalPages int      `json:"totalPages"`
	PageWindow []int    `json:"pageWindow"`
}

func newsView(v panel.View[string, news.Article, panel.None]) NewsView {
	total := news.TotalPages(v.Total)
	window := news.PageWindow(max(v.Page, 1), total)
	if window == nil {
		window = []int{}
	}
	return NewsView{
		View:       v,
		Categories: news.Categories,
		TotalPages: total,
		PageWindow: window,
	}
}

// HandleNewsView serves GET /api/news
//
// The news tab shows the default category as soon as it mounts, so the
// first GET on an untouched panel loads it.
func (h *PanelHandler) HandleNewsView(w http.ResponseWriter, r *http.Request) {
	v := h.dash.News.View()
	if v.Page == 0 && !v.Loading && v.Error == "" && v.QuotaNotice == "" {
		v = h.dash.News.Search(fetchContext(r), news.DefaultCategory)
	}
	writeJSON(w, http.StatusOK, newsView(v))
}

// HandleNewsCategory serves POST /api/news?category=Sports
func (h *PanelHandler) HandleNewsCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := news.NormalizeCategory(r.URL.Query().Get("category"))
	if !ok {
		writeError(w, apperror.ValidationFailed("category", "Unknown news category"))
		return
	}
	writeJSON(w, http.StatusOK, newsView(h.dash.News.Search(fetchContext(r), category)))
}

// HandleNewsPage serves POST /api/news/page/{n}
func (h *PanelHandler) HandleNewsPage(w http.ResponseWriter, r *http.Request) {
	n, err := pageParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.dash.News.Page(fetchContext(r), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newsView(v))
}

// HandleNewsMore serves POST /api/news/more
func (h *PanelHandler) HandleNewsMore(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newsView(h.dash.News.LoadMore(fetchContext(r))))
}
