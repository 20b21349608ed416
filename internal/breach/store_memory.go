package breach

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps breaches and tasks under one lock, which gives the
// same all-or-nothing visibility as the PostgreSQL transaction.
type InMemoryStore struct {
	mu       sync.RWMutex
	breaches map[uuid.UUID]Breach
	tasks    map[uuid.UUID][]ResponseTask
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		breaches: make(map[uuid.UUID]Breach),
		tasks:    make(map[uuid.UUID][]ResponseTask),
	}
}

func (s *InMemoryStore) CreateWithTasks(_ context.Context, breach Breach, tasks []ResponseTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.breaches[breach.ID]; ok {
		return fmt.Errorf("breach %s: %w", breach.ID, sentinel.ErrConflict)
	}
	s.breaches[breach.ID] = breach
	s.tasks[breach.ID] = append([]ResponseTask{}, tasks...)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (Breach, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	breach, ok := s.breaches[id]
	if !ok {
		return Breach{}, fmt.Errorf("breach %s: %w", id, sentinel.ErrNotFound)
	}
	return breach, nil
}

func (s *InMemoryStore) ListTasks(_ context.Context, breachID uuid.UUID) ([]ResponseTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ResponseTask{}, s.tasks[breachID]...), nil
}

func (s *InMemoryStore) SetTaskStatus(_ context.Context, breachID uuid.UUID, taskType TaskType, status TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.tasks[breachID]
	for i := range tasks {
		if tasks[i].Type == taskType {
			tasks[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("task %s for breach %s: %w", taskType, breachID, sentinel.ErrNotFound)
}

func (s *InMemoryStore) OverdueTasks(_ context.Context, now time.Time) ([]ResponseTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ResponseTask
	for _, tasks := range s.tasks {
		for _, task := range tasks {
			if task.Status != TaskStatusCompleted && task.Deadline.Before(now) {
				out = append(out, task)
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) CountBySeverity(_ context.Context, since time.Time) ([]SeverityCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Severity]int)
	for _, breach := range s.breaches {
		if breach.DetectedAt.Before(since) {
			continue
		}
		counts[breach.Severity]++
	}
	var out []SeverityCount
	for severity, n := range counts {
		out = append(out, SeverityCount{Severity: severity, Count: n})
	}
	return out, nil
}
