package dsr

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps requests in a map keyed by id.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]Request
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[uuid.UUID]Request)}
}

func (s *InMemoryStore) Create(_ context.Context, request Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.ID]; ok {
		return fmt.Errorf("request %s: %w", request.ID, sentinel.ErrConflict)
	}
	s.requests[request.ID] = request
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[id]
	if !ok {
		return Request{}, fmt.Errorf("request %s: %w", id, sentinel.ErrNotFound)
	}
	return request, nil
}

func (s *InMemoryStore) Complete(_ context.Context, id uuid.UUID, response json.RawMessage, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[id]
	if !ok {
		return fmt.Errorf("request %s: %w", id, sentinel.ErrNotFound)
	}
	request.Status = StatusCompleted
	request.ResponseData = response
	request.CompletedAt = &completedAt
	s.requests[id] = request
	return nil
}

func (s *InMemoryStore) SetStatus(_ context.Context, id uuid.UUID, status Status, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	request, ok := s.requests[id]
	if !ok {
		return fmt.Errorf("request %s: %w", id, sentinel.ErrNotFound)
	}
	request.Status = status
	request.CompletedAt = completedAt
	s.requests[id] = request
	return nil
}

func (s *InMemoryStore) CountByTypeAndStatus(_ context.Context, since time.Time) ([]TypeStatusCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[RequestType]map[Status]int)
	for _, request := range s.requests {
		if request.RequestedAt.Before(since) {
			continue
		}
		if counts[request.Type] == nil {
			counts[request.Type] = make(map[Status]int)
		}
		counts[request.Type][request.Status]++
	}
	var out []TypeStatusCount
	for rtype, byStatus := range counts {
		for status, n := range byStatus {
			out = append(out, TypeStatusCount{Type: rtype, Status: status, Count: n})
		}
	}
	return out, nil
}
