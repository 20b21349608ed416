package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and sinks return these
// (optionally wrapped) so services can translate them into domain outcomes.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: unique constraint or concurrent-update conflict
// - ErrInvalidState: entity in wrong state for requested transition
// - ErrUnavailable: store or notification sink temporarily unavailable
//
// For validation errors (bad input, missing fields), each domain package
// defines its own typed errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
