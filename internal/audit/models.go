package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind classifies what happened to the data subject's records.
type Kind string

const (
	KindAccess  Kind = "access"
	KindModify  Kind = "modify"
	KindDelete  Kind = "delete"
	KindExport  Kind = "export"
	KindConsent Kind = "consent"
	KindBreach  Kind = "breach"
)

// Sensitivity classifies the data touched by an event. PHI carries the
// strictest durability requirements: writes must be synchronous.
type Sensitivity string

const (
	SensitivityPHI       Sensitivity = "phi"
	SensitivityPII       Sensitivity = "pii"
	SensitivitySensitive Sensitivity = "sensitive"
	SensitivityPublic    Sensitivity = "public"
)

// SystemUserID is the sentinel subject for events not tied to a specific
// user, such as retention sweeps.
const SystemUserID = "system"

var validKinds = map[Kind]bool{
	KindAccess:  true,
	KindModify:  true,
	KindDelete:  true,
	KindExport:  true,
	KindConsent: true,
	KindBreach:  true,
}

var validSensitivities = map[Sensitivity]bool{
	SensitivityPHI:       true,
	SensitivityPII:       true,
	SensitivitySensitive: true,
	SensitivityPublic:    true,
}

// Event is an immutable compliance fact. Once persisted it is never
// mutated; the id doubles as the dedup key on at-least-once delivery.
type Event struct {
	ID          uuid.UUID      `json:"id"`
	UserID      string         `json:"user_id"`
	Kind        Kind           `json:"kind"`
	Sensitivity Sensitivity    `json:"sensitivity"`
	Description string         `json:"description"`
	IPAddress   string         `json:"ip_address,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Critical reports whether the event must be durable before Record returns.
func (e Event) Critical() bool {
	return e.Kind == KindBreach || e.Sensitivity == SensitivityPHI
}

// Validate rejects malformed events before any store interaction.
func (e Event) Validate() error {
	if !validKinds[e.Kind] {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	if !validSensitivities[e.Sensitivity] {
		return fmt.Errorf("%w: unknown sensitivity %q", ErrInvalidEvent, e.Sensitivity)
	}
	if e.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidEvent)
	}
	if e.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidEvent)
	}
	return nil
}
