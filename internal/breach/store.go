package breach

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists breaches and their response tasks. CreateWithTasks must
// be atomic: readers never observe a breach with a partial task set.
type Store interface {
	CreateWithTasks(ctx context.Context, breach Breach, tasks []ResponseTask) error
	FindByID(ctx context.Context, id uuid.UUID) (Breach, error)
	ListTasks(ctx context.Context, breachID uuid.UUID) ([]ResponseTask, error)
	SetTaskStatus(ctx context.Context, breachID uuid.UUID, taskType TaskType, status TaskStatus) error
	// OverdueTasks lists tasks past their deadline and not yet completed,
	// for the external alerting job that backstops fire-and-forget
	// notification.
	OverdueTasks(ctx context.Context, now time.Time) ([]ResponseTask, error)
	CountBySeverity(ctx context.Context, since time.Time) ([]SeverityCount, error)
}
