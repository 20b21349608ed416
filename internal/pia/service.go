package pia

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"custodia/internal/audit"
)

// AuditRecorder is the slice of the audit pipeline the assessment
// service needs.
type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// Service conducts and lists privacy impact assessments.
type Service struct {
	store    Store
	recorder AuditRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, recorder AuditRecorder, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		recorder: recorder,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Conduct records a new assessment. The server assigns the identifier
// and timestamp; a missing status defaults to draft.
func (s *Service) Conduct(ctx context.Context, assessment Assessment) (Assessment, error) {
	if err := assessment.Validate(); err != nil {
		return Assessment{}, fmt.Errorf("validate assessment: %w", err)
	}

	assessment.ID = uuid.New()
	assessment.ConductedAt = s.now().UTC()
	if assessment.Status == "" {
		assessment.Status = StatusDraft
	}

	if err := s.store.Insert(ctx, assessment); err != nil {
		return Assessment{}, fmt.Errorf("conduct assessment: %w", err)
	}

	event := audit.Event{
		UserID:      audit.SystemUserID,
		Kind:        audit.KindModify,
		Sensitivity: audit.SensitivitySensitive,
		Description: fmt.Sprintf("privacy impact assessment conducted for %s", assessment.ProjectName),
		Metadata: map[string]any{
			"assessment_id": assessment.ID.String(),
			"project_name":  assessment.ProjectName,
			"risk_level":    string(assessment.RiskLevel),
		},
	}
	if err := s.recorder.Record(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to record assessment audit event",
			"assessment_id", assessment.ID, "error", err)
	}

	return assessment, nil
}

// List returns all assessments, newest first.
func (s *Service) List(ctx context.Context) ([]Assessment, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return out, nil
}
