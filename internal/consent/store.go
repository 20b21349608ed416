package consent

import (
	"context"
	"time"
)

// Store persists current consent state, one row per (user id, consent
// type). Upsert replaces the prior row entirely.
type Store interface {
	Upsert(ctx context.Context, record Record) error
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	CountByTypeAndState(ctx context.Context, since time.Time) ([]TypeStateCount, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
