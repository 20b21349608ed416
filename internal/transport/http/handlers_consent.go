package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/consent"
	"custodia/internal/platform/middleware"
)

type recordConsentRequest struct {
	UserID  string `json:"user_id"`
	Type    string `json:"consent_type"`
	Granted bool   `json:"granted"`
	Version string `json:"version"`
}

func (h *Handler) handleRecordConsent(w http.ResponseWriter, r *http.Request) {
	var req recordConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	record, err := h.consent.RecordConsent(r.Context(), consent.Record{
		UserID:    req.UserID,
		Type:      consent.Type(req.Type),
		Granted:   req.Granted,
		Version:   req.Version,
		IPAddress: clientIP(r),
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to record consent",
			"request_id", middleware.GetRequestID(r.Context()), "user_id", req.UserID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) handleConsentStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	status, err := h.consent.Status(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read consent status",
			"request_id", middleware.GetRequestID(r.Context()), "user_id", userID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "consents": status})
}
