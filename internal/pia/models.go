package pia

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidAssessment marks assessments rejected by validation.
var ErrInvalidAssessment = errors.New("invalid assessment")

// RiskLevel is the assessed privacy risk of a processing activity.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var validRiskLevels = map[RiskLevel]bool{
	RiskLow:    true,
	RiskMedium: true,
	RiskHigh:   true,
}

// Status of an assessment in its review lifecycle.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var validStatuses = map[Status]bool{
	StatusDraft:    true,
	StatusApproved: true,
	StatusRejected: true,
}

// Assessment documents a privacy impact assessment for one processing
// activity. Assessments are append-only: a revised assessment is a new
// record, never an update.
type Assessment struct {
	ID                 uuid.UUID `json:"id"`
	ProjectName        string    `json:"project_name"`
	DataTypes          []string  `json:"data_types"`
	ProcessingPurpose  string    `json:"processing_purpose"`
	LegalBasis         string    `json:"legal_basis"`
	RiskLevel          RiskLevel `json:"risk_level"`
	MitigationMeasures []string  `json:"mitigation_measures"`
	ConductedAt        time.Time `json:"conducted_at"`
	Status             Status    `json:"status"`
}

// Validate checks the caller-supplied fields of a new assessment.
func (a Assessment) Validate() error {
	if strings.TrimSpace(a.ProjectName) == "" {
		return fmt.Errorf("%w: missing project name", ErrInvalidAssessment)
	}
	if len(a.DataTypes) == 0 {
		return fmt.Errorf("%w: no data types", ErrInvalidAssessment)
	}
	if strings.TrimSpace(a.ProcessingPurpose) == "" {
		return fmt.Errorf("%w: missing processing purpose", ErrInvalidAssessment)
	}
	if strings.TrimSpace(a.LegalBasis) == "" {
		return fmt.Errorf("%w: missing legal basis", ErrInvalidAssessment)
	}
	if !validRiskLevels[a.RiskLevel] {
		return fmt.Errorf("%w: unknown risk level %q", ErrInvalidAssessment, a.RiskLevel)
	}
	if a.Status != "" && !validStatuses[a.Status] {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidAssessment, a.Status)
	}
	return nil
}
