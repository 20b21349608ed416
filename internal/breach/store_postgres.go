package breach

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"custodia/pkg/platform/sentinel"
)

// PostgresStore persists breaches in data_breaches and their tasks in
// breach_response_tasks. Breach and tasks are written in one transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateWithTasks(ctx context.Context, breach Breach, tasks []ResponseTask) error {
	metadata, err := json.Marshal(breach.Metadata)
	if err != nil {
		return fmt.Errorf("marshal breach metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin breach tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO data_breaches (id, breach_type, severity, affected_users, description, detected_at, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		breach.ID, string(breach.Type), string(breach.Severity),
		pq.Array(breach.AffectedUsers), breach.Description,
		breach.DetectedAt, string(breach.Status), metadata,
	)
	if err != nil {
		return fmt.Errorf("insert breach: %w", err)
	}

	if len(tasks) > 0 {
		placeholders := make([]string, 0, len(tasks))
		args := make([]any, 0, len(tasks)*5)
		for i, task := range tasks {
			base := i * 5
			placeholders = append(placeholders, fmt.Sprintf(
				"($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5,
			))
			args = append(args, task.BreachID, string(task.Type), string(task.Status), task.Deadline, task.CreatedAt)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO breach_response_tasks (breach_id, task_type, status, deadline, created_at)
			VALUES `+strings.Join(placeholders, ", "), args...)
		if err != nil {
			return fmt.Errorf("insert response tasks: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit breach tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (Breach, error) {
	var (
		breach   Breach
		btype    string
		severity string
		status   string
		metadata []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, breach_type, severity, affected_users, description, detected_at, status, metadata
		FROM data_breaches
		WHERE id = $1
	`, id).Scan(
		&breach.ID, &btype, &severity, pq.Array(&breach.AffectedUsers),
		&breach.Description, &breach.DetectedAt, &status, &metadata,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Breach{}, fmt.Errorf("breach %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return Breach{}, fmt.Errorf("find breach: %w", err)
	}
	breach.Type = Type(btype)
	breach.Severity = Severity(severity)
	breach.Status = Status(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &breach.Metadata); err != nil {
			return Breach{}, fmt.Errorf("unmarshal breach metadata: %w", err)
		}
	}
	return breach, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, breachID uuid.UUID) ([]ResponseTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT breach_id, task_type, status, deadline, created_at
		FROM breach_response_tasks
		WHERE breach_id = $1
		ORDER BY deadline
	`, breachID)
	if err != nil {
		return nil, fmt.Errorf("list response tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *PostgresStore) SetTaskStatus(ctx context.Context, breachID uuid.UUID, taskType TaskType, status TaskStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE breach_response_tasks
		SET status = $3
		WHERE breach_id = $1 AND task_type = $2
	`, breachID, string(taskType), string(status))
	if err != nil {
		return fmt.Errorf("set task status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("task %s for breach %s: %w", taskType, breachID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) OverdueTasks(ctx context.Context, now time.Time) ([]ResponseTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT breach_id, task_type, status, deadline, created_at
		FROM breach_response_tasks
		WHERE status <> $1 AND deadline < $2
		ORDER BY deadline
	`, string(TaskStatusCompleted), now)
	if err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]ResponseTask, error) {
	var out []ResponseTask
	for rows.Next() {
		var (
			task   ResponseTask
			ttype  string
			status string
		)
		if err := rows.Scan(&task.BreachID, &ttype, &status, &task.Deadline, &task.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan response task: %w", err)
		}
		task.Type = TaskType(ttype)
		task.Status = TaskStatus(status)
		out = append(out, task)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountBySeverity(ctx context.Context, since time.Time) ([]SeverityCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT severity, COUNT(*)
		FROM data_breaches
		WHERE detected_at >= $1
		GROUP BY severity
	`, since)
	if err != nil {
		return nil, fmt.Errorf("count breaches: %w", err)
	}
	defer rows.Close()

	var out []SeverityCount
	for rows.Next() {
		var (
			severity string
			n        int
		)
		if err := rows.Scan(&severity, &n); err != nil {
			return nil, fmt.Errorf("scan breach count: %w", err)
		}
		out = append(out, SeverityCount{Severity: Severity(severity), Count: n})
	}
	return out, rows.Err()
}
