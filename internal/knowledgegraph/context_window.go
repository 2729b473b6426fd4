package knowledgegraph

// ContextWindow is a bounded, LRU-ordered list of recently perceived node ids.
// It is not safe for concurrent use; the graph guards it.
type ContextWindow struct {
	capacity int
	items    []string
}

// NewContextWindow returns an empty window holding at most capacity ids.
func NewContextWindow(capacity int) *ContextWindow {
	if capacity <= 0 {
		capacity = 1
	}
	return &ContextWindow{capacity: capacity, items: make([]string, 0, capacity)}
}

// Push makes id the most recent entry, evicting the oldest one if full.
func (w *ContextWindow) Push(id string) {
	w.Remove(id)
	if len(w.items) == w.capacity {
		w.items = append(w.items[:0], w.items[1:]...)
	}
	w.items = append(w.items, id)
}

// Remove drops id from the window.
func (w *ContextWindow) Remove(id string) {
	for i, v := range w.items {
		if v == id {
			w.items = append(w.items[:i], w.items[i+1:]...)
			return
		}
	}
}

// Items returns a copy of the window, oldest first.
func (w *ContextWindow) Items() []string {
	return append([]string(nil), w.items...)
}

// Recent returns up to n ids, newest first. n <= 0 returns all of them.
func (w *ContextWindow) Recent(n int) []string {
	if n <= 0 || n > len(w.items) {
		n = len(w.items)
	}
	out := make([]string, 0, n)
	for i := len(w.items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, w.items[i])
	}
	return out
}

func (w *ContextWindow) Len() int { return len(w.items) }
