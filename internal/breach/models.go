package breach

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type classifies how the breach happened.
type Type string

const (
	TypeUnauthorizedAccess Type = "unauthorized_access"
	TypeDataLeak           Type = "data_leak"
	TypeSystemCompromise   Type = "system_compromise"
	TypeInsiderThreat      Type = "insider_threat"
)

var validTypes = map[Type]bool{
	TypeUnauthorizedAccess: true,
	TypeDataLeak:           true,
	TypeSystemCompromise:   true,
	TypeInsiderThreat:      true,
}

// Severity drives notification urgency. Critical breaches fall under the
// 72 hour regime; everything else gets the 60 day window.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var validSeverities = map[Severity]bool{
	SeverityLow:      true,
	SeverityMedium:   true,
	SeverityHigh:     true,
	SeverityCritical: true,
}

// Status tracks incident response progress. New breaches start detected;
// later transitions are driven externally as response tasks complete.
type Status string

const (
	StatusDetected  Status = "detected"
	StatusContained Status = "contained"
	StatusResolved  Status = "resolved"
)

// Breach is one detected security incident.
type Breach struct {
	ID            uuid.UUID      `json:"id"`
	Type          Type           `json:"breach_type"`
	Severity      Severity       `json:"severity"`
	AffectedUsers []string       `json:"affected_users"`
	Description   string         `json:"description"`
	DetectedAt    time.Time      `json:"detected_at"`
	Status        Status         `json:"status"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ErrInvalidBreach marks detections rejected by validation.
var ErrInvalidBreach = errors.New("invalid breach")

// Validate rejects malformed detections before any store interaction.
func (b Breach) Validate() error {
	if !validTypes[b.Type] {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidBreach, b.Type)
	}
	if !validSeverities[b.Severity] {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidBreach, b.Severity)
	}
	if b.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidBreach)
	}
	return nil
}

// TaskType is one of the four response tasks created per breach.
type TaskType string

const (
	TaskAssessImpact      TaskType = "assess_impact"
	TaskContainBreach     TaskType = "contain_breach"
	TaskNotifyAuthorities TaskType = "notify_authorities"
	TaskNotifyUsers       TaskType = "notify_users"
)

var validTaskTypes = map[TaskType]bool{
	TaskAssessImpact:      true,
	TaskContainBreach:     true,
	TaskNotifyAuthorities: true,
	TaskNotifyUsers:       true,
}

// ParseTaskType constructs a TaskType from external input.
func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(s)
	if !validTaskTypes[t] {
		return "", fmt.Errorf("invalid task type %q", s)
	}
	return t, nil
}

// TaskStatus tracks one response task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

var validTaskStatuses = map[TaskStatus]bool{
	TaskStatusPending:    true,
	TaskStatusInProgress: true,
	TaskStatusCompleted:  true,
}

// ParseTaskStatus constructs a TaskStatus from external input.
func ParseTaskStatus(s string) (TaskStatus, error) {
	st := TaskStatus(s)
	if !validTaskStatuses[st] {
		return "", fmt.Errorf("invalid task status %q", s)
	}
	return st, nil
}

// ResponseTask is one deadline-bound action in a breach response. Four are
// always created together per breach, atomically with the breach row.
type ResponseTask struct {
	BreachID  uuid.UUID  `json:"breach_id"`
	Type      TaskType   `json:"task_type"`
	Status    TaskStatus `json:"status"`
	Deadline  time.Time  `json:"deadline"`
	CreatedAt time.Time  `json:"created_at"`
}

// SeverityCount is one row of the breach aggregate used by reports.
type SeverityCount struct {
	Severity Severity
	Count    int
}
