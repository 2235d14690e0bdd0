// Package refresh infers which resource categories a conversational turn
// mutated and emits fire-and-forget refresh signals to subscribed views.
package refresh

import "sync"

// Category tags a refreshable resource group.
type Category string

const (
	CategoryIssues   Category = "issues"
	CategoryProjects Category = "projects"
	CategoryPeople   Category = "people"
)

// AllCategories lists every category, in fallback-signal order.
var AllCategories = []Category{CategoryIssues, CategoryProjects, CategoryPeople}

// Hub delivers refresh signals to listeners. Signals are fire-and-forget:
// a category with no listeners is dropped, never queued, and duplicate
// categories within one Signal call collapse to a single delivery.
type Hub struct {
	mu   sync.RWMutex
	subs map[Category]map[int]func()
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[Category]map[int]func())}
}

// Subscribe registers a listener for one category and returns its
// unsubscribe function. Unsubscribing twice is harmless.
func (h *Hub) Subscribe(c Category, fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[c] == nil {
		h.subs[c] = make(map[int]func())
	}
	id := h.next
	h.next++
	h.subs[c][id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[c], id)
	}
}

// Signal notifies listeners of the given categories. Each category is
// delivered at most once per call regardless of how often it appears.
func (h *Hub) Signal(cats ...Category) {
	seen := make(map[Category]bool, len(cats))
	var fns []func()
	h.mu.RLock()
	for _, c := range cats {
		if seen[c] {
			continue
		}
		seen[c] = true
		for _, fn := range h.subs[c] {
			fns = append(fns, fn)
		}
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}
