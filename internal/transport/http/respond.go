package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"custodia/internal/audit"
	"custodia/internal/breach"
	"custodia/internal/consent"
	"custodia/internal/dsr"
	"custodia/internal/pia"
	"custodia/pkg/platform/sentinel"
)

type errorEnvelope struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates domain errors into the JSON error envelope.
// Unrecognized errors are a 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, audit.ErrInvalidEvent),
		errors.Is(err, consent.ErrInvalidRecord),
		errors.Is(err, dsr.ErrInvalidRequest),
		errors.Is(err, breach.ErrInvalidBreach),
		errors.Is(err, pia.ErrInvalidAssessment):
		status = http.StatusBadRequest
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, dsr.ErrRequestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, sentinel.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, errorEnvelope{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: message})
}
