package dsr

import (
	"context"
	"database/sql"
	"fmt"
)

// TableSource reads a user's rows from one platform table. The query must
// take the user id as its only parameter; columns are returned as-is so
// the export reflects exactly what the table holds.
type TableSource struct {
	db    *sql.DB
	name  string
	query string
}

func NewTableSource(db *sql.DB, name, query string) *TableSource {
	return &TableSource{db: db, name: name, query: query}
}

// PlatformSources enumerates the tables that make up a user's full data
// footprint: profile, health metrics, transformation photos, mood entries
// and workout entries.
func PlatformSources(db *sql.DB) []FootprintSource {
	return []FootprintSource{
		NewTableSource(db, "profile",
			`SELECT user_id, display_name, created_at, attributes FROM user_profiles WHERE user_id = $1`),
		NewTableSource(db, "health_metrics",
			`SELECT id, recorded_at, payload FROM health_metrics WHERE user_id = $1`),
		NewTableSource(db, "transformation_photos",
			`SELECT id, taken_at, object_key FROM transformation_photos WHERE user_id = $1`),
		NewTableSource(db, "mood_entries",
			`SELECT id, recorded_at, mood, note FROM mood_entries WHERE user_id = $1`),
		NewTableSource(db, "workout_entries",
			`SELECT id, performed_at, activity, duration_seconds FROM workout_entries WHERE user_id = $1`),
	}
}

func (s *TableSource) Name() string { return s.name }

func (s *TableSource) Collect(ctx context.Context, userID string) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, s.query, userID)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", s.name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", s.name, err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", s.name, err)
		}
		record := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
