// Package tabs is the view router of the dashboard shell.
//
// Tabs keep a declared order (the order of the buttons) and a
// most-recently-selected-first order (the stacking of the panels). Selecting
// a tab promotes it to the front and makes it active. Every tab stays
// mounted; the ones behind the front are only de-emphasized, which the view
// model expresses as a depth.
package tabs

import (
	"fmt"
	"sync"
)

// Tab describes one panel of the shell.
type Tab struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Default tabs of the dashboard, in button order.
var Default = []Tab{
	{ID: "weather", Title: "Weather"},
	{ID: "news", Title: "News"},
	{ID: "stock", Title: "Finance"},
	{ID: "github", Title: "Github"},
}

// Router holds the declared tabs and their current ordering.
type Router struct {
	mu       sync.RWMutex
	declared []Tab
	order    []int // indices into declared, front first
}

// New creates a router whose first declared tab is active.
// It panics on an empty list or duplicate IDs; both are programming errors.
func New(declared ...Tab) *Router {
	if len(declared) == 0 {
		panic("tabs: at least one tab is required")
	}
	seen := make(map[string]bool, len(declared))
	for _, t := range declared {
		if seen[t.ID] {
			panic(fmt.Sprintf("tabs: duplicate tab id %q", t.ID))
		}
		seen[t.ID] = true
	}

	r := &Router{declared: append([]Tab(nil), declared...)}
	r.reset()
	return r
}

// Select promotes the tab at index (in declared order) to the front and
// makes it active. The other tabs keep their relative order. Selecting
// the front tab changes nothing.
//
// An out-of-range index is a programming error and panics; callers holding
// user input go through IndexOf first.
func (r *Router) Select(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.declared) {
		panic(fmt.Sprintf("tabs: index %d out of range [0,%d)", index, len(r.declared)))
	}

	pos := 0
	for i, idx := range r.order {
		if idx == index {
			pos = i
			break
		}
	}
	copy(r.order[1:pos+1], r.order[:pos])
	r.order[0] = index
}

// IndexOf returns the declared index of the tab with id.
func (r *Router) IndexOf(id string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, t := range r.declared {
		if t.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Active returns the front tab.
func (r *Router) Active() Tab {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.declared[r.order[0]]
}

// Declared returns the tabs in button order.
func (r *Router) Declared() []Tab {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Tab(nil), r.declared...)
}

// Ordered returns the tabs front first.
func (r *Router) Ordered() []Tab {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tab, len(r.order))
	for i, idx := range r.order {
		out[i] = r.declared[idx]
	}
	return out
}

// Reset restores the initial ordering (first declared tab active). The
// shell calls it when it unmounts on logout.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

func (r *Router) reset() {
	r.order = make([]int, len(r.declared))
	for i := range r.order {
		r.order[i] = i
	}
}

// TabView is one tab as the shell renders it.
type TabView struct {
	Tab
	Depth  int  `json:"depth"` // 0 = front
	Active bool `json:"active"`
}

// View is the shell's view model.
type View struct {
	Active  string    `json:"active"`
	Buttons []Tab     `json:"buttons"`
	Stack   []TabView `json:"stack"`
}

// View returns a snapshot of the shell.
func (r *Router) View() View {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stack := make([]TabView, len(r.order))
	for depth, idx := range r.order {
		stack[depth] = TabView{Tab: r.declared[idx], Depth: depth, Active: depth == 0}
	}
	return View{
		Active:  r.declared[r.order[0]].ID,
		Buttons: append([]Tab(nil), r.declared...),
		Stack:   stack,
	}
}
