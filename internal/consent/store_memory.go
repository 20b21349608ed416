package consent

import (
	"context"
	"sync"
	"time"
)

type memoryKey struct {
	userID string
	ctype  Type
}

// InMemoryStore keeps current consent state in a map keyed by
// (user id, consent type), matching the unique constraint of the
// PostgreSQL store.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[memoryKey]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[memoryKey]Record)}
}

func (s *InMemoryStore) Upsert(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[memoryKey{record.UserID, record.Type}] = record
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for key, rec := range s.records {
		if key.userID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *InMemoryStore) CountByTypeAndState(_ context.Context, since time.Time) ([]TypeStateCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Type]map[bool]int)
	for _, rec := range s.records {
		if rec.Timestamp.Before(since) {
			continue
		}
		if counts[rec.Type] == nil {
			counts[rec.Type] = make(map[bool]int)
		}
		counts[rec.Type][rec.Granted]++
	}
	var out []TypeStateCount
	for ctype, byState := range counts {
		for granted, n := range byState {
			out = append(out, TypeStateCount{Type: ctype, Granted: granted, Count: n})
		}
	}
	return out, nil
}

func (s *InMemoryStore) DeleteByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key := range s.records {
		if key.userID == userID {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}
