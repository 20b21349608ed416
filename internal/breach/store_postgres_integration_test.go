//go:build integration

package breach

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/pkg/platform/sentinel"
	"custodia/pkg/testutil/containers"
)

func seedBreach(severity Severity, detectedAt time.Time) (Breach, []ResponseTask) {
	b := Breach{
		ID:            uuid.New(),
		Type:          TypeUnauthorizedAccess,
		Severity:      severity,
		AffectedUsers: []string{"user-1", "user-2"},
		Description:   "integration seed",
		DetectedAt:    detectedAt,
		Status:        StatusDetected,
		Metadata:      map[string]any{"source": "ids"},
	}
	tasks := make([]ResponseTask, 0, 4)
	for i, typ := range []TaskType{TaskAssessImpact, TaskContainBreach, TaskNotifyAuthorities, TaskNotifyUsers} {
		tasks = append(tasks, ResponseTask{
			BreachID:  b.ID,
			Type:      typ,
			Status:    TaskStatusPending,
			Deadline:  detectedAt.Add(time.Duration(i+1) * time.Hour),
			CreatedAt: detectedAt,
		})
	}
	return b, tasks
}

func TestPostgresStore_CreateWithTasksRoundTrip(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)
	ctx := context.Background()

	detectedAt := time.Now().UTC().Truncate(time.Microsecond)
	b, tasks := seedBreach(SeverityCritical, detectedAt)
	require.NoError(t, store.CreateWithTasks(ctx, b, tasks))

	found, err := store.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Type, found.Type)
	assert.Equal(t, b.Severity, found.Severity)
	assert.Equal(t, []string{"user-1", "user-2"}, found.AffectedUsers)
	assert.Equal(t, "ids", found.Metadata["source"])

	listed, err := store.ListTasks(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, listed, 4)
	for _, task := range listed {
		assert.Equal(t, TaskStatusPending, task.Status)
	}
}

func TestPostgresStore_FindMissingIsNotFound(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)

	_, err := store.FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresStore_SetTaskStatus(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)
	ctx := context.Background()

	b, tasks := seedBreach(SeverityHigh, time.Now().UTC())
	require.NoError(t, store.CreateWithTasks(ctx, b, tasks))

	require.NoError(t, store.SetTaskStatus(ctx, b.ID, TaskContainBreach, TaskStatusCompleted))

	listed, err := store.ListTasks(ctx, b.ID)
	require.NoError(t, err)
	for _, task := range listed {
		if task.Type == TaskContainBreach {
			assert.Equal(t, TaskStatusCompleted, task.Status)
		} else {
			assert.Equal(t, TaskStatusPending, task.Status)
		}
	}

	err = store.SetTaskStatus(ctx, uuid.New(), TaskContainBreach, TaskStatusCompleted)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresStore_OverdueTasks(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)
	ctx := context.Background()

	detectedAt := time.Now().UTC().Add(-48 * time.Hour)
	b, tasks := seedBreach(SeverityMedium, detectedAt)
	require.NoError(t, store.CreateWithTasks(ctx, b, tasks))
	// A completed task is never overdue regardless of deadline.
	require.NoError(t, store.SetTaskStatus(ctx, b.ID, TaskAssessImpact, TaskStatusCompleted))

	overdue, err := store.OverdueTasks(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, overdue, 3)
	for _, task := range overdue {
		assert.NotEqual(t, TaskAssessImpact, task.Type)
	}
}

func TestPostgresStore_CountBySeverity(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, severity := range []Severity{SeverityCritical, SeverityCritical, SeverityLow} {
		b, tasks := seedBreach(severity, now)
		require.NoError(t, store.CreateWithTasks(ctx, b, tasks))
	}
	old, oldTasks := seedBreach(SeverityCritical, now.Add(-60*24*time.Hour))
	require.NoError(t, store.CreateWithTasks(ctx, old, oldTasks))

	counts, err := store.CountBySeverity(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	got := map[SeverityCount]bool{}
	for _, c := range counts {
		got[c] = true
	}
	assert.True(t, got[SeverityCount{Severity: SeverityCritical, Count: 2}])
	assert.True(t, got[SeverityCount{Severity: SeverityLow, Count: 1}])
}
