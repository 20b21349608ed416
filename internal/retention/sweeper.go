package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"custodia/internal/audit"
)

// Purger deletes expired rows for one data category. Implementations map
// categories onto whatever tables hold them.
type Purger interface {
	DeleteOlderThan(ctx context.Context, category Category, cutoff time.Time) (int64, error)
}

// AuditRecorder is the slice of the audit pipeline the sweeper needs.
type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// Sweeper enforces the retention table. Sweep is idempotent: the cutoff is
// re-evaluated against current time, so an immediate second run deletes
// nothing.
type Sweeper struct {
	purger   Purger
	recorder AuditRecorder
	logger   *slog.Logger
	policies []Policy
	now      func() time.Time
}

// SweeperOption configures the Sweeper.
type SweeperOption func(*Sweeper)

// WithLogger sets a logger for per-category failure reporting.
func WithLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = logger }
}

// WithPolicies overrides the default retention table.
func WithPolicies(policies []Policy) SweeperOption {
	return func(s *Sweeper) {
		if len(policies) > 0 {
			s.policies = policies
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) { s.now = now }
}

func NewSweeper(purger Purger, recorder AuditRecorder, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		purger:   purger,
		recorder: recorder,
		policies: DefaultPolicies,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep deletes expired records for every category and emits one audit
// event per category that lost rows. A failing category is logged and does
// not stop the remaining categories.
func (s *Sweeper) Sweep(ctx context.Context) map[Category]int64 {
	removedByCategory := make(map[Category]int64, len(s.policies))
	for _, policy := range s.policies {
		cutoff := s.now().UTC().Add(-policy.Window())
		removed, err := s.purger.DeleteOlderThan(ctx, policy.Category, cutoff)
		if err != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "retention sweep failed for category",
					"category", string(policy.Category),
					"error", err,
				)
			}
			continue
		}
		removedByCategory[policy.Category] = removed
		if removed == 0 {
			continue
		}
		err = s.recorder.Record(ctx, audit.Event{
			UserID:      audit.SystemUserID,
			Kind:        audit.KindDelete,
			Sensitivity: audit.SensitivitySensitive,
			Description: fmt.Sprintf("retention sweep removed %d expired %s records", removed, policy.Category),
			Metadata: map[string]any{
				"category":       string(policy.Category),
				"retention_days": policy.RetentionDays,
				"rows_removed":   removed,
			},
		})
		if err != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "retention audit event rejected",
				"category", string(policy.Category),
				"error", err,
			)
		}
	}
	return removedByCategory
}

// Run sweeps on every tick until the context is cancelled. Intended to be
// started as a goroutine from main with a daily interval.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
