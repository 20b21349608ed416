package breach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"custodia/internal/audit"
	"custodia/internal/breach/metrics"
	"custodia/pkg/platform/sentinel"
)

// Notification deadlines in hours. Critical breaches fall under the
// stricter 72 hour regime; everything else gets 60 days.
const (
	criticalDeadlineHours = 72
	defaultDeadlineHours  = 1440

	assessImpactDue  = 4 * time.Hour
	containBreachDue = 8 * time.Hour
)

// AuditRecorder is the slice of the audit pipeline this service needs.
type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// Service orchestrates breach response: persist the incident, leave a
// per-affected-user compliance trail, create the deadline-bound task set,
// and raise the alert.
type Service struct {
	store    Store
	recorder AuditRecorder
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithLogger sets a logger for alert failure reporting.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, recorder AuditRecorder, notifier Notifier, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		recorder: recorder,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NotificationDeadline returns the authority-notification window for a
// severity.
func NotificationDeadline(severity Severity) time.Duration {
	if severity == SeverityCritical {
		return criticalDeadlineHours * time.Hour
	}
	return defaultDeadlineHours * time.Hour
}

// Detect registers a breach. The breach row and its four response tasks
// are persisted atomically, then one breach audit event is written
// synchronously per affected user, then the alert is raised. Audit and
// alert failures after the persist are logged, not surfaced: the incident
// is already durable and discoverable.
func (s *Service) Detect(ctx context.Context, breach Breach) (Breach, error) {
	if err := breach.Validate(); err != nil {
		return Breach{}, err
	}

	breach.ID = uuid.New()
	breach.DetectedAt = s.now().UTC()
	breach.Status = StatusDetected

	tasks := buildResponseTasks(breach)
	if err := s.store.CreateWithTasks(ctx, breach, tasks); err != nil {
		return Breach{}, fmt.Errorf("persist breach: %w", err)
	}
	s.metrics.IncDetected(string(breach.Severity))

	for _, userID := range breach.AffectedUsers {
		err := s.recorder.Record(ctx, audit.Event{
			UserID:      userID,
			Kind:        audit.KindBreach,
			Sensitivity: audit.SensitivityPHI,
			Description: fmt.Sprintf("user data affected by %s breach (%s severity)", breach.Type, breach.Severity),
			Metadata: map[string]any{
				"breach_id":   breach.ID.String(),
				"breach_type": string(breach.Type),
				"severity":    string(breach.Severity),
			},
		})
		if err != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "breach audit event failed",
				"breach_id", breach.ID.String(),
				"user_id", userID,
				"error", err,
			)
		}
	}

	alert := Alert{
		BreachID:          breach.ID,
		Type:              breach.Type,
		Severity:          breach.Severity,
		AffectedUserCount: len(breach.AffectedUsers),
		Description:       breach.Description,
		DetectedAt:        breach.DetectedAt,
		AuthorityDeadline: breach.DetectedAt.Add(NotificationDeadline(breach.Severity)),
	}
	if err := s.notifier.Alert(ctx, alert); err != nil {
		s.metrics.IncAlertFailure()
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "breach alert delivery failed",
				"breach_id", breach.ID.String(),
				"error", err,
			)
		}
	}

	return breach, nil
}

// buildResponseTasks derives the four-task response plan from severity.
func buildResponseTasks(breach Breach) []ResponseTask {
	deadline := NotificationDeadline(breach.Severity)
	due := map[TaskType]time.Duration{
		TaskAssessImpact:      assessImpactDue,
		TaskContainBreach:     containBreachDue,
		TaskNotifyAuthorities: deadline,
		TaskNotifyUsers:       2 * deadline,
	}
	tasks := make([]ResponseTask, 0, len(due))
	for _, taskType := range []TaskType{TaskAssessImpact, TaskContainBreach, TaskNotifyAuthorities, TaskNotifyUsers} {
		tasks = append(tasks, ResponseTask{
			BreachID:  breach.ID,
			Type:      taskType,
			Status:    TaskStatusPending,
			Deadline:  breach.DetectedAt.Add(due[taskType]),
			CreatedAt: breach.DetectedAt,
		})
	}
	return tasks
}

// AdvanceTask records external progress on one response task.
func (s *Service) AdvanceTask(ctx context.Context, breachID uuid.UUID, taskType TaskType, status TaskStatus) error {
	if !validTaskStatuses[status] {
		return fmt.Errorf("invalid task status %q", status)
	}
	if err := s.store.SetTaskStatus(ctx, breachID, taskType, status); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		return fmt.Errorf("advance task: %w", err)
	}
	return nil
}

// Tasks lists the response tasks for a breach.
func (s *Service) Tasks(ctx context.Context, breachID uuid.UUID) ([]ResponseTask, error) {
	return s.store.ListTasks(ctx, breachID)
}

// Overdue lists incomplete tasks past their deadline, for the backstop
// alerting job.
func (s *Service) Overdue(ctx context.Context) ([]ResponseTask, error) {
	return s.store.OverdueTasks(ctx, s.now().UTC())
}
