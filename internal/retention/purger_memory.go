package retention

import (
	"context"
	"sync"
	"time"
)

// InMemoryPurger tracks record timestamps per category. Used in tests and
// local development.
type InMemoryPurger struct {
	mu      sync.Mutex
	records map[Category][]time.Time
}

func NewInMemoryPurger() *InMemoryPurger {
	return &InMemoryPurger{records: make(map[Category][]time.Time)}
}

// Add registers a record created at the given time.
func (p *InMemoryPurger) Add(category Category, createdAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[category] = append(p.records[category], createdAt)
}

// Count reports the remaining records in a category.
func (p *InMemoryPurger) Count(category Category) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records[category])
}

func (p *InMemoryPurger) DeleteOlderThan(_ context.Context, category Category, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.records[category][:0]
	var removed int64
	for _, createdAt := range p.records[category] {
		if createdAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, createdAt)
	}
	p.records[category] = kept
	return removed, nil
}
