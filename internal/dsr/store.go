package dsr

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Store persists data-subject requests. FindByID returns
// sentinel.ErrNotFound (wrapped) when the request does not exist.
type Store interface {
	Create(ctx context.Context, request Request) error
	FindByID(ctx context.Context, id uuid.UUID) (Request, error)
	// Complete attaches the response payload and flips the request to
	// completed with the given timestamp.
	Complete(ctx context.Context, id uuid.UUID, response json.RawMessage, completedAt time.Time) error
	// SetStatus records a reviewer-driven transition. completedAt is nil
	// unless the new status is terminal.
	SetStatus(ctx context.Context, id uuid.UUID, status Status, completedAt *time.Time) error
	CountByTypeAndStatus(ctx context.Context, since time.Time) ([]TypeStatusCount, error)
}
