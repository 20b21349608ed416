package retention

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// categoryTables maps each retention category to the table and timestamp
// column holding its records.
var categoryTables = map[Category]struct {
	table  string
	column string
}{
	CategoryAuditLogs:       {"compliance_audit_log", "timestamp"},
	CategoryHealthMetrics:   {"health_metrics", "recorded_at"},
	CategorySessionRecords:  {"session_records", "created_at"},
	CategoryAnalyticsEvents: {"analytics_events", "occurred_at"},
}

// PostgresPurger deletes expired rows from the category tables.
type PostgresPurger struct {
	db *sql.DB
}

func NewPostgresPurger(db *sql.DB) *PostgresPurger {
	return &PostgresPurger{db: db}
}

func (p *PostgresPurger) DeleteOlderThan(ctx context.Context, category Category, cutoff time.Time) (int64, error) {
	target, ok := categoryTables[category]
	if !ok {
		return 0, fmt.Errorf("unknown retention category %q", category)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s < $1`, target.table, target.column)
	res, err := p.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", category, err)
	}
	return res.RowsAffected()
}
