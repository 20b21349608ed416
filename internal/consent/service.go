package consent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"custodia/internal/audit"
)

// AuditRecorder is the slice of the audit pipeline the consent service
// needs. Defined here to keep module boundaries explicit.
type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// Service persists consent decisions with latest-state-wins semantics and
// leaves a compliance trail for every change. The audit trail is the
// historical record; this store only answers "what is the current state".
type Service struct {
	store    Store
	recorder AuditRecorder
	cache    *StatusCache
	logger   *slog.Logger
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithCache fronts status reads with a Redis cache.
func WithCache(cache *StatusCache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

// WithLogger sets a logger for cache degradation reporting.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, recorder AuditRecorder, opts ...ServiceOption) *Service {
	s := &Service{store: store, recorder: recorder}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordConsent upserts the (user, type) consent state. The write replaces
// any prior state for the pair; after it succeeds a consent audit event is
// emitted describing the grant or withdrawal.
func (s *Service) RecordConsent(ctx context.Context, record Record) (Record, error) {
	if !validTypes[record.Type] {
		return Record{}, fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, record.Type)
	}
	if record.UserID == "" {
		return Record{}, fmt.Errorf("%w: missing user id", ErrInvalidRecord)
	}

	now := time.Now().UTC()
	record.Timestamp = now
	if record.Granted {
		record.WithdrawnAt = nil
	} else {
		record.WithdrawnAt = &now
	}

	if err := s.store.Upsert(ctx, record); err != nil {
		return Record{}, fmt.Errorf("record consent: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, record.UserID); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "consent cache invalidation failed",
				"user_id", record.UserID,
				"error", err,
			)
		}
	}

	action := "granted"
	if !record.Granted {
		action = "withdrawn"
	}
	err := s.recorder.Record(ctx, audit.Event{
		UserID:      record.UserID,
		Kind:        audit.KindConsent,
		Sensitivity: audit.SensitivityPII,
		Description: fmt.Sprintf("consent %s for %s", action, record.Type),
		IPAddress:   record.IPAddress,
		Metadata: map[string]any{
			"consent_type": string(record.Type),
			"granted":      record.Granted,
			"version":      record.Version,
		},
	})
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "consent audit event rejected",
			"user_id", record.UserID,
			"error", err,
		)
	}

	return record, nil
}

// Status returns the most recent record per consent type. Types the user
// never decided on are absent from the map; callers must treat absence as
// "no decision", not denial.
func (s *Service) Status(ctx context.Context, userID string) (map[Type]Record, error) {
	if s.cache != nil {
		status, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "consent cache read failed, falling back to store",
					"user_id", userID,
					"error", err,
				)
			}
		} else if ok {
			return status, nil
		}
	}

	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("consent status: %w", err)
	}
	status := make(map[Type]Record, len(records))
	for _, rec := range records {
		status[rec.Type] = rec
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, status); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "consent cache write failed",
				"user_id", userID,
				"error", err,
			)
		}
	}
	return status, nil
}

// EraseUser removes all consent rows for a user. Only account erasure may
// call this; ordinary withdrawal overwrites state instead.
func (s *Service) EraseUser(ctx context.Context, userID string) (int64, error) {
	removed, err := s.store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("erase consent: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "consent cache invalidation failed",
				"user_id", userID,
				"error", err,
			)
		}
	}
	return removed, nil
}
