package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore keeps events in a map keyed by id, which gives the same
// dedup-on-insert behavior as the PostgreSQL store. Used in tests and as
// the default store for local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string]Event)}
}

func (s *InMemoryStore) Insert(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if _, ok := s.events[e.ID.String()]; ok {
			continue
		}
		s.events[e.ID.String()] = e
	}
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *InMemoryStore) CountByKindAndSensitivity(_ context.Context, since time.Time) ([]KindSensitivityCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Kind]map[Sensitivity]int)
	for _, e := range s.events {
		if e.Timestamp.Before(since) {
			continue
		}
		if counts[e.Kind] == nil {
			counts[e.Kind] = make(map[Sensitivity]int)
		}
		counts[e.Kind][e.Sensitivity]++
	}
	var out []KindSensitivityCount
	for kind, bySens := range counts {
		for sens, n := range bySens {
			out = append(out, KindSensitivityCount{Kind: kind, Sensitivity: sens, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Sensitivity < out[j].Sensitivity
	})
	return out, nil
}

func (s *InMemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, e := range s.events {
		if e.Timestamp.Before(cutoff) {
			delete(s.events, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored events.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
