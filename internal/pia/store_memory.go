package pia

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is the in-process Store used by unit tests.
type InMemoryStore struct {
	mu          sync.RWMutex
	assessments []Assessment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Insert(_ context.Context, assessment Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = append(s.assessments, assessment)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Assessment, len(s.assessments))
	copy(out, s.assessments)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ConductedAt.After(out[j].ConductedAt)
	})
	return out, nil
}
