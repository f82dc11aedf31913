// Package selection tracks multi-selected item rows and runs the bulk item
// actions over them.
package selection

import "sync"

// Selection is a duplicate-free, insertion-ordered set of item ids.
type Selection struct {
	mu  sync.RWMutex
	ids []string
}

func New() *Selection {
	return &Selection{}
}

// Set replaces the selection, dropping duplicates.
func (s *Selection) Set(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = dedupe(ids)
}

func (s *Selection) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return contains(s.ids, id)
}

// Ensure adds id if absent. Calling it repeatedly is a no-op.
func (s *Selection) Ensure(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !contains(s.ids, id) {
		s.ids = append(s.ids, id)
	}
}

// Toggle selects or deselects id.
func (s *Selection) Toggle(id string, selected bool) {
	if selected {
		s.Ensure(id)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = remove(s.ids, func(x string) bool { return x == id })
}

func (s *Selection) Reset() {
	s.mu.Lock()
	s.ids = nil
	s.mu.Unlock()
}

func (s *Selection) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *Selection) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Targets is the effective set a bulk action applies to: the selection plus
// the row the action was triggered on. The selection itself is not changed.
func (s *Selection) Targets(id string) []string {
	ids := s.IDs()
	if id != "" && !contains(ids, id) {
		ids = append(ids, id)
	}
	return ids
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func remove[T any](in []T, drop func(T) bool) []T {
	out := in[:0:0]
	for _, v := range in {
		if !drop(v) {
			out = append(out, v)
		}
	}
	return out
}
