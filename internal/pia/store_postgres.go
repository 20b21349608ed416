package pia

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists assessments in the privacy_impact_assessments
// table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, assessment Assessment) error {
	query := `
		INSERT INTO privacy_impact_assessments
			(id, project_name, data_types, processing_purpose, legal_basis,
			 risk_level, mitigation_measures, conducted_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		assessment.ID, assessment.ProjectName, pq.Array(assessment.DataTypes),
		assessment.ProcessingPurpose, assessment.LegalBasis, string(assessment.RiskLevel),
		pq.Array(assessment.MitigationMeasures), assessment.ConductedAt, string(assessment.Status),
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Assessment, error) {
	query := `
		SELECT id, project_name, data_types, processing_purpose, legal_basis,
		       risk_level, mitigation_measures, conducted_at, status
		FROM privacy_impact_assessments
		ORDER BY conducted_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	var out []Assessment
	for rows.Next() {
		var (
			a           Assessment
			risk        string
			status      string
			dataTypes   pq.StringArray
			mitigations pq.StringArray
		)
		if err := rows.Scan(&a.ID, &a.ProjectName, &dataTypes, &a.ProcessingPurpose,
			&a.LegalBasis, &risk, &mitigations, &a.ConductedAt, &status); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		a.RiskLevel = RiskLevel(risk)
		a.Status = Status(status)
		a.DataTypes = dataTypes
		a.MitigationMeasures = mitigations
		out = append(out, a)
	}
	return out, rows.Err()
}
