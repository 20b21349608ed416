package audit

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidEvent marks events rejected by validation before persistence.
var ErrInvalidEvent = errors.New("invalid compliance event")

// KindSensitivityCount is one row of the grouped audit aggregate used by
// compliance reports.
type KindSensitivityCount struct {
	Kind        Kind
	Sensitivity Sensitivity
	Count       int
}

// Store is the durable event store. Insert must be idempotent on event id
// so retried batches from the at-least-once flush path do not double-count.
type Store interface {
	Insert(ctx context.Context, events []Event) error
	ListByUser(ctx context.Context, userID string) ([]Event, error)
	CountByKindAndSensitivity(ctx context.Context, since time.Time) ([]KindSensitivityCount, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
