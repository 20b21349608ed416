package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	txcontext "custodia/pkg/platform/tx"
)

// PostgresStore persists events in the compliance_audit_log table. Inserts
// use ON CONFLICT DO NOTHING on the event id so retried batches from the
// at-least-once flush path are deduplicated at the store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Insert(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	const cols = 9
	placeholders := make([]string, 0, len(events))
	args := make([]any, 0, len(events)*cols)
	for i, e := range events {
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal event metadata: %w", err)
		}
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args,
			e.ID, e.UserID, string(e.Kind), string(e.Sensitivity),
			e.Description, e.IPAddress, e.UserAgent, e.Timestamp, metadata,
		)
	}

	query := `
		INSERT INTO compliance_audit_log (
			id, user_id, event_type, data_type,
			description, ip_address, user_agent, timestamp, metadata
		)
		VALUES ` + strings.Join(placeholders, ", ") + `
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit events: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Event, error) {
	query := `
		SELECT id, user_id, event_type, data_type,
		       description, ip_address, user_agent, timestamp, metadata
		FROM compliance_audit_log
		WHERE user_id = $1
		ORDER BY timestamp
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e        Event
			kind     string
			sens     string
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &kind, &sens,
			&e.Description, &e.IPAddress, &e.UserAgent, &e.Timestamp, &metadata); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Kind = Kind(kind)
		e.Sensitivity = Sensitivity(sens)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByKindAndSensitivity(ctx context.Context, since time.Time) ([]KindSensitivityCount, error) {
	query := `
		SELECT event_type, data_type, COUNT(*)
		FROM compliance_audit_log
		WHERE timestamp >= $1
		GROUP BY event_type, data_type
		ORDER BY event_type, data_type
	`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("count audit events: %w", err)
	}
	defer rows.Close()

	var out []KindSensitivityCount
	for rows.Next() {
		var (
			kind string
			sens string
			n    int
		)
		if err := rows.Scan(&kind, &sens, &n); err != nil {
			return nil, fmt.Errorf("scan audit count: %w", err)
		}
		out = append(out, KindSensitivityCount{Kind: Kind(kind), Sensitivity: Sensitivity(sens), Count: n})
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM compliance_audit_log WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired audit events: %w", err)
	}
	return res.RowsAffected()
}
