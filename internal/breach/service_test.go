package breach

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/audit"
)

type capturingNotifier struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (n *capturingNotifier) Alert(_ context.Context, alert Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.alerts = append(n.alerts, alert)
	return nil
}

type breachFixture struct {
	svc      *Service
	store    *InMemoryStore
	events   *audit.InMemoryStore
	notifier *capturingNotifier
	now      time.Time
}

func newBreachFixture(t *testing.T) breachFixture {
	t.Helper()
	events := audit.NewInMemoryStore()
	recorder := audit.NewRecorder(events)
	store := NewInMemoryStore()
	notifier := &capturingNotifier{}
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	svc := NewService(store, recorder, notifier, WithClock(func() time.Time { return now }))
	return breachFixture{svc: svc, store: store, events: events, notifier: notifier, now: now}
}

func validBreach(severity Severity) Breach {
	return Breach{
		Type:          TypeUnauthorizedAccess,
		Severity:      severity,
		AffectedUsers: []string{"user-1", "user-2"},
		Description:   "credential stuffing against member accounts",
	}
}

func TestService_DetectCreatesExactlyFourTasks(t *testing.T) {
	f := newBreachFixture(t)

	breach, err := f.svc.Detect(context.Background(), validBreach(SeverityHigh))
	require.NoError(t, err)

	tasks, err := f.svc.Tasks(context.Background(), breach.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 4)

	byType := make(map[TaskType]ResponseTask, len(tasks))
	for _, task := range tasks {
		byType[task.Type] = task
		assert.Equal(t, TaskStatusPending, task.Status)
		assert.Equal(t, breach.DetectedAt, task.CreatedAt)
	}
	assert.Equal(t, breach.DetectedAt.Add(4*time.Hour), byType[TaskAssessImpact].Deadline)
	assert.Equal(t, breach.DetectedAt.Add(8*time.Hour), byType[TaskContainBreach].Deadline)
}

func TestService_DeadlinesBySeverity(t *testing.T) {
	tests := []struct {
		severity Severity
		deadline time.Duration
	}{
		{SeverityCritical, 72 * time.Hour},
		{SeverityHigh, 1440 * time.Hour},
		{SeverityMedium, 1440 * time.Hour},
		{SeverityLow, 1440 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			f := newBreachFixture(t)

			breach, err := f.svc.Detect(context.Background(), validBreach(tt.severity))
			require.NoError(t, err)

			tasks, err := f.svc.Tasks(context.Background(), breach.ID)
			require.NoError(t, err)

			byType := make(map[TaskType]ResponseTask, len(tasks))
			for _, task := range tasks {
				byType[task.Type] = task
			}
			assert.Equal(t, tt.deadline, byType[TaskNotifyAuthorities].Deadline.Sub(breach.DetectedAt))
			assert.Equal(t, 2*tt.deadline, byType[TaskNotifyUsers].Deadline.Sub(breach.DetectedAt))
		})
	}
}

func TestService_DetectEmitsPerUserAuditEvents(t *testing.T) {
	f := newBreachFixture(t)

	breach, err := f.svc.Detect(context.Background(), validBreach(SeverityCritical))
	require.NoError(t, err)

	// Breach events are critical, so they are durable without a flush.
	for _, userID := range []string{"user-1", "user-2"} {
		trail, err := f.events.ListByUser(context.Background(), userID)
		require.NoError(t, err)
		require.Len(t, trail, 1)
		assert.Equal(t, audit.KindBreach, trail[0].Kind)
		assert.Equal(t, audit.SensitivityPHI, trail[0].Sensitivity)
		assert.Equal(t, breach.ID.String(), trail[0].Metadata["breach_id"])
	}
}

func TestService_DetectRaisesAlert(t *testing.T) {
	f := newBreachFixture(t)

	breach, err := f.svc.Detect(context.Background(), validBreach(SeverityCritical))
	require.NoError(t, err)

	require.Len(t, f.notifier.alerts, 1)
	alert := f.notifier.alerts[0]
	assert.Equal(t, breach.ID, alert.BreachID)
	assert.Equal(t, 2, alert.AffectedUserCount)
	assert.Equal(t, breach.DetectedAt.Add(72*time.Hour), alert.AuthorityDeadline)
}

func TestService_AlertFailureDoesNotFailDetection(t *testing.T) {
	f := newBreachFixture(t)
	f.notifier.err = errors.New("pager unreachable")

	breach, err := f.svc.Detect(context.Background(), validBreach(SeverityHigh))
	require.NoError(t, err, "breach must be durable even when alerting fails")

	stored, err := f.store.FindByID(context.Background(), breach.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDetected, stored.Status)

	tasks, err := f.svc.Tasks(context.Background(), breach.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 4)
}

func TestService_DetectRejectsMalformedBreach(t *testing.T) {
	f := newBreachFixture(t)

	_, err := f.svc.Detect(context.Background(), Breach{
		Type: "squirrels", Severity: SeverityLow, Description: "x",
	})
	require.Error(t, err)

	_, err = f.svc.Detect(context.Background(), Breach{
		Type: TypeDataLeak, Severity: "apocalyptic", Description: "x",
	})
	require.Error(t, err)

	_, err = f.svc.Detect(context.Background(), Breach{
		Type: TypeDataLeak, Severity: SeverityLow,
	})
	require.Error(t, err)
}

func TestService_AdvanceTaskAndOverdue(t *testing.T) {
	f := newBreachFixture(t)

	breach, err := f.svc.Detect(context.Background(), validBreach(SeverityCritical))
	require.NoError(t, err)

	require.NoError(t, f.svc.AdvanceTask(context.Background(), breach.ID, TaskAssessImpact, TaskStatusCompleted))

	// Move past the assess/contain deadlines; only the incomplete
	// contain_breach task shows as overdue in that window.
	overdue, err := f.store.OverdueTasks(context.Background(), f.now.Add(12*time.Hour))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, TaskContainBreach, overdue[0].Type)
}
