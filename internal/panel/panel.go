// Package panel is the view model every dashboard feature shares: a query,
// a paged result set, a selection with its detail, and the error and
// quota-notice state around them.
//
// REQUEST TOKENS
// Fetches run outside the lock, so two can overlap: the user searches "A",
// then "B" before A answers. Each fetch takes a token from a counter; when
// it completes, the result is applied only if its token is still the latest.
// A late answer for A is dropped, never shown over B. Detail loads have a
// separate counter with the same rule.
//
// STALE-BUT-SHOWN
// A failed fetch never clears items. The view carries both the old items
// and the error, and sets Stale so the client can mark them.
//
// QUERY VS RESULT QUERY
// The items always belong to one query, resultQuery. After a failed Search
// the panel's query is new but its items are still the old query's, so
// LoadMore starts the new query at page 1 and replaces instead of appending.
package panel

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/sakif/pulse-dashboard/internal/apperror"
	"github.com/sakif/pulse-dashboard/internal/provider"
)

// None is the detail type of panels without a detail view.
type None struct{}

// FetchFunc loads one page of results for a query.
type FetchFunc[Q comparable, I any] func(ctx context.Context, q Q, page int) provider.Outcome[provider.ResultSet[I]]

// DetailFunc loads the detail for a selected item.
type DetailFunc[I, D any] func(ctx context.Context, item I) provider.Outcome[D]

// Config wires a panel to its provider.
type Config[Q comparable, I, D any] struct {
	Name   string
	Fetch  FetchFunc[Q, I]
	Key    func(I) string
	Detail DetailFunc[I, D] // nil: selecting only marks the item
	Logger *slog.Logger
}

// View is an immutable snapshot of a panel.
type View[Q comparable, I, D any] struct {
	Name          string `json:"name"`
	Query         Q      `json:"query"`
	ResultQuery   Q      `json:"resultQuery"`
	Page          int    `json:"page"`
	Items         []I    `json:"items"`
	Total         int    `json:"total"`
	Loading       bool   `json:"loading"`
	Error         string `json:"error,omitempty"`
	ErrorKind     string `json:"errorKind,omitempty"`
	Stale         bool   `json:"stale"`
	QuotaNotice   string `json:"quotaNotice,omitempty"`
	Selected      string `json:"selected,omitempty"`
	Detail        *D     `json:"detail,omitempty"`
	DetailLoading bool   `json:"detailLoading"`
	DetailError   string `json:"detailError,omitempty"`
}

// Panel holds one feature's state. Safe for concurrent use.
type Panel[Q comparable, I, D any] struct {
	name   string
	fetch  FetchFunc[Q, I]
	key    func(I) string
	detail DetailFunc[I, D]
	logger *slog.Logger

	mu          sync.Mutex
	query       Q
	resultQuery Q
	hasResult   bool // items came from a successful fetch of resultQuery
	page        int
	items       []I
	total       int
	loading     bool
	err         string
	errKind     provider.Kind
	quota       string
	token       uint64

	selected      string
	detailValue   *D
	detailLoading bool
	detailErr     string
	detailToken   uint64
}

// New creates a panel. Fetch and Key are required.
func New[Q comparable, I, D any](cfg Config[Q, I, D]) *Panel[Q, I, D] {
	if cfg.Fetch == nil || cfg.Key == nil {
		panic("panel: Fetch and Key are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Panel[Q, I, D]{
		name:   cfg.Name,
		fetch:  cfg.Fetch,
		key:    cfg.Key,
		detail: cfg.Detail,
		logger: logger.With(slog.String("panel", cfg.Name)),
	}
}

// Search sets a new query and replaces the results with its first page.
// The selection is cleared.
func (p *Panel[Q, I, D]) Search(ctx context.Context, q Q) View[Q, I, D] {
	p.mu.Lock()
	p.query = q
	p.clearSelectionLocked()
	t := p.beginLocked()
	p.mu.Unlock()

	out := p.fetch(ctx, q, 1)
	return p.finish(t, q, out, 1, false)
}

// Page replaces the results with page n of the current query.
func (p *Panel[Q, I, D]) Page(ctx context.Context, n int) (View[Q, I, D], error) {
	if n < 1 {
		return p.View(), apperror.ValidationFailed("page", "Page must be 1 or greater")
	}

	p.mu.Lock()
	q := p.query
	t := p.beginLocked()
	p.mu.Unlock()

	out := p.fetch(ctx, q, n)
	return p.finish(t, q, out, n, false), nil
}

// LoadMore appends the next page. It does nothing while another fetch is
// in flight, so a double click cannot append the same page twice.
//
// When the shown items belong to an earlier query (the last Search failed)
// it fetches page 1 of the current query and replaces them.
func (p *Panel[Q, I, D]) LoadMore(ctx context.Context) View[Q, I, D] {
	p.mu.Lock()
	if p.loading {
		v := p.viewLocked()
		p.mu.Unlock()
		return v
	}
	q := p.query
	next, appendItems := p.page+1, true
	if !p.hasResult || p.resultQuery != q {
		next, appendItems = 1, false
	}
	t := p.beginLocked()
	p.mu.Unlock()

	out := p.fetch(ctx, q, next)
	return p.finish(t, q, out, next, appendItems)
}

// Select marks the item with the given key and loads its detail. Only keys
// in the current result set are accepted.
func (p *Panel[Q, I, D]) Select(ctx context.Context, key string) (View[Q, I, D], error) {
	p.mu.Lock()
	idx := slices.IndexFunc(p.items, func(it I) bool { return p.key(it) == key })
	if idx < 0 {
		p.mu.Unlock()
		return p.View(), apperror.NotFound(p.name+" item", key)
	}
	item := p.items[idx]

	if p.selected != key {
		p.detailValue = nil
	}
	p.selected = key
	p.detailErr = ""
	p.detailToken++
	t := p.detailToken

	if p.detail == nil {
		v := p.viewLocked()
		p.mu.Unlock()
		return v, nil
	}
	p.detailLoading = true
	p.mu.Unlock()

	out := p.detail(ctx, item)

	p.mu.Lock()
	defer p.mu.Unlock()

	if t != p.detailToken {
		p.logger.Debug("dropping superseded detail", slog.String("key", key))
		return p.viewLocked(), nil
	}
	p.detailLoading = false

	switch out.Kind {
	case provider.KindOK:
		v := out.Value
		p.detailValue = &v
		p.detailErr = ""
	case provider.KindQuotaExceeded:
		p.quota = out.Message()
		p.logger.Warn("provider quota exceeded", slog.String("key", key))
	default:
		p.detailErr = out.Message()
		p.logger.Warn("detail load failed",
			slog.String("key", key),
			slog.String("kind", out.Kind.String()),
			slog.String("error", out.Message()),
		)
	}
	return p.viewLocked(), nil
}

// Reset discards all state. In-flight fetches complete into the void.
func (p *Panel[Q, I, D]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero Q
	p.query = zero
	p.resultQuery = zero
	p.hasResult = false
	p.page = 0
	p.items = nil
	p.total = 0
	p.loading = false
	p.err = ""
	p.errKind = provider.KindOK
	p.quota = ""
	p.token++
	p.clearSelectionLocked()
}

// View returns a snapshot.
func (p *Panel[Q, I, D]) View() View[Q, I, D] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

// Name is the panel's name.
func (p *Panel[Q, I, D]) Name() string {
	return p.name
}

func (p *Panel[Q, I, D]) beginLocked() uint64 {
	p.token++
	p.loading = true
	return p.token
}

func (p *Panel[Q, I, D]) clearSelectionLocked() {
	p.selected = ""
	p.detailValue = nil
	p.detailLoading = false
	p.detailErr = ""
	p.detailToken++
}

// finish applies a completed fetch if its token is still current.
func (p *Panel[Q, I, D]) finish(t uint64, q Q, out provider.Outcome[provider.ResultSet[I]], page int, appendItems bool) View[Q, I, D] {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t != p.token {
		p.logger.Debug("dropping superseded fetch", slog.Int("page", page))
		return p.viewLocked()
	}
	p.loading = false

	switch out.Kind {
	case provider.KindOK:
		if appendItems {
			p.items = append(p.items, out.Value.Items...)
		} else {
			p.items = slices.Clone(out.Value.Items)
		}
		p.total = out.Value.Total
		p.page = page
		p.resultQuery = q
		p.hasResult = true
		p.err = ""
		p.errKind = provider.KindOK
		p.quota = ""
		if p.selected != "" && !slices.ContainsFunc(p.items, func(it I) bool { return p.key(it) == p.selected }) {
			p.clearSelectionLocked()
		}
	case provider.KindQuotaExceeded:
		p.quota = out.Message()
		p.logger.Warn("provider quota exceeded", slog.Int("page", page))
	default:
		p.err = out.Message()
		p.errKind = out.Kind
		p.logger.Warn("fetch failed",
			slog.Int("page", page),
			slog.String("kind", out.Kind.String()),
			slog.String("error", out.Message()),
		)
	}
	return p.viewLocked()
}

func (p *Panel[Q, I, D]) viewLocked() View[Q, I, D] {
	v := View[Q, I, D]{
		Name:          p.name,
		Query:         p.query,
		ResultQuery:   p.resultQuery,
		Page:          p.page,
		Items:         slices.Clone(p.items),
		Total:         p.total,
		Loading:       p.loading,
		Error:         p.err,
		QuotaNotice:   p.quota,
		Selected:      p.selected,
		DetailLoading: p.detailLoading,
		DetailError:   p.detailErr,
	}
	if v.Items == nil {
		v.Items = []I{}
	}
	if p.err != "" {
		v.ErrorKind = p.errKind.String()
		v.Stale = len(p.items) > 0
	}
	if p.detailValue != nil {
		d := *p.detailValue
		v.Detail = &d
	}
	return v
}
