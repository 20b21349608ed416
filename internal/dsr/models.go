package dsr

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRequest marks requests rejected by validation.
var ErrInvalidRequest = errors.New("invalid data subject request")

// RequestType is the data-subject right being exercised.
type RequestType string

const (
	TypeAccess        RequestType = "access"
	TypeRectification RequestType = "rectification"
	TypeErasure       RequestType = "erasure"
	TypePortability   RequestType = "portability"
	TypeRestriction   RequestType = "restriction"
	TypeObjection     RequestType = "objection"
)

var validTypes = map[RequestType]bool{
	TypeAccess:        true,
	TypeRectification: true,
	TypeErasure:       true,
	TypePortability:   true,
	TypeRestriction:   true,
	TypeObjection:     true,
}

// ParseRequestType constructs a RequestType from external input.
func ParseRequestType(s string) (RequestType, error) {
	t := RequestType(s)
	if !validTypes[t] {
		return "", fmt.Errorf("invalid request type %q", s)
	}
	return t, nil
}

// Status is the lifecycle state of a request. Access requests complete
// synchronously; other types wait on an external reviewer.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
)

var validStatuses = map[Status]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusCompleted:  true,
	StatusRejected:   true,
}

// ParseStatus constructs a Status from external input.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !validStatuses[st] {
		return "", fmt.Errorf("invalid request status %q", s)
	}
	return st, nil
}

// Request tracks one data-subject request through its lifecycle.
type Request struct {
	ID           uuid.UUID       `json:"id"`
	UserID       string          `json:"user_id"`
	Type         RequestType     `json:"request_type"`
	Status       Status          `json:"status"`
	RequestedAt  time.Time       `json:"requested_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	RequestData  map[string]any  `json:"request_data,omitempty"`
	ResponseData json.RawMessage `json:"response_data,omitempty"`
}

// TypeStatusCount is one row of the request aggregate used by reports.
type TypeStatusCount struct {
	Type   RequestType
	Status Status
	Count  int
}
