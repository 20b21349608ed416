package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/audit"
	"custodia/internal/platform/middleware"
)

type recordEventRequest struct {
	UserID      string         `json:"user_id"`
	Kind        string         `json:"kind"`
	Sensitivity string         `json:"sensitivity"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func (h *Handler) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	var req recordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	event := audit.Event{
		UserID:      req.UserID,
		Kind:        audit.Kind(req.Kind),
		Sensitivity: audit.Sensitivity(req.Sensitivity),
		Description: req.Description,
		IPAddress:   clientIP(r),
		UserAgent:   r.UserAgent(),
		Metadata:    req.Metadata,
	}
	if err := h.audits.Record(r.Context(), event); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to record audit event",
			"request_id", middleware.GetRequestID(r.Context()), "error", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleEventTrail(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	events, err := h.audits.Trail(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read audit trail",
			"request_id", middleware.GetRequestID(r.Context()), "user_id", userID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "events": events})
}

// clientIP prefers the proxy-set forwarding header over the socket peer.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
