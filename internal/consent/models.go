package consent

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRecord marks consent writes rejected by validation.
var ErrInvalidRecord = errors.New("invalid consent record")

// Type labels what the user consented to. Per-type state allows selective
// withdrawal without affecting other processing.
type Type string

const (
	TypeDataProcessing    Type = "data_processing"
	TypeHealthDataSharing Type = "health_data_sharing"
	TypeMarketing         Type = "marketing"
	TypeAnalytics         Type = "analytics"
	TypeThirdPartySharing Type = "third_party_sharing"
	TypeResearch          Type = "research"
)

var validTypes = map[Type]bool{
	TypeDataProcessing:    true,
	TypeHealthDataSharing: true,
	TypeMarketing:         true,
	TypeAnalytics:         true,
	TypeThirdPartySharing: true,
	TypeResearch:          true,
}

// ParseType constructs a Type from external input, enforcing the allowlist.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !validTypes[t] {
		return "", fmt.Errorf("invalid consent type %q", s)
	}
	return t, nil
}

// Record is the current consent state for one (user, type) pair. A new
// write fully replaces the previous state; the audit trail keeps the
// history of every change.
type Record struct {
	UserID      string     `json:"user_id"`
	Type        Type       `json:"consent_type"`
	Granted     bool       `json:"granted"`
	Timestamp   time.Time  `json:"timestamp"`
	Version     string     `json:"version"`
	IPAddress   string     `json:"ip_address,omitempty"`
	WithdrawnAt *time.Time `json:"withdrawn_at,omitempty"`
}

// TypeStateCount is one row of the consent aggregate used by reports.
type TypeStateCount struct {
	Type    Type
	Granted bool
	Count   int
}
