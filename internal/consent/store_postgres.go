package consent

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	txcontext "custodia/pkg/platform/tx"
)

// PostgresStore persists consent state in the user_consent table, unique
// on (user_id, consent_type).
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

func (s *PostgresStore) Upsert(ctx context.Context, record Record) error {
	query := `
		INSERT INTO user_consent (user_id, consent_type, granted, timestamp, version, ip_address, withdrawn_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, consent_type) DO UPDATE SET
			granted      = EXCLUDED.granted,
			timestamp    = EXCLUDED.timestamp,
			version      = EXCLUDED.version,
			ip_address   = EXCLUDED.ip_address,
			withdrawn_at = EXCLUDED.withdrawn_at
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		record.UserID, string(record.Type), record.Granted,
		record.Timestamp, record.Version, record.IPAddress, record.WithdrawnAt,
	)
	if err != nil {
		return fmt.Errorf("upsert consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	query := `
		SELECT user_id, consent_type, granted, timestamp, version, ip_address, withdrawn_at
		FROM user_consent
		WHERE user_id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list consent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec   Record
			ctype string
		)
		if err := rows.Scan(&rec.UserID, &ctype, &rec.Granted,
			&rec.Timestamp, &rec.Version, &rec.IPAddress, &rec.WithdrawnAt); err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		rec.Type = Type(ctype)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByTypeAndState(ctx context.Context, since time.Time) ([]TypeStateCount, error) {
	query := `
		SELECT consent_type, granted, COUNT(*)
		FROM user_consent
		WHERE timestamp >= $1
		GROUP BY consent_type, granted
	`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("count consent: %w", err)
	}
	defer rows.Close()

	var out []TypeStateCount
	for rows.Next() {
		var (
			ctype   string
			granted bool
			n       int
		)
		if err := rows.Scan(&ctype, &granted, &n); err != nil {
			return nil, fmt.Errorf("scan consent count: %w", err)
		}
		out = append(out, TypeStateCount{Type: Type(ctype), Granted: granted, Count: n})
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM user_consent WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete consent: %w", err)
	}
	return res.RowsAffected()
}
