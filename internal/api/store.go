package api

import (
	"sync"

	"github.com/google/uuid"
)

// RefinementStore keeps finished refinements in memory, oldest evicted
// first once Limit is reached.
type RefinementStore struct {
	mu    sync.Mutex
	items map[string]*Refinement
	order []string
	limit int
}

func NewRefinementStore(limit int) *RefinementStore {
	return &RefinementStore{
		items: make(map[string]*Refinement),
		limit: limit,
	}
}

func (s *RefinementStore) Save(r *Refinement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.items[r.ID] = r
	for s.limit > 0 && len(s.order) > s.limit {
		delete(s.items, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *RefinementStore) Get(id string) (*Refinement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[id]
	return r, ok
}

func (s *RefinementStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *RefinementStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func newRefinementID() string {
	return "ref_" + uuid.NewString()
}
