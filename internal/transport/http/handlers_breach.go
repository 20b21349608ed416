package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"custodia/internal/breach"
	"custodia/internal/platform/middleware"
)

type detectBreachRequest struct {
	Type          string         `json:"breach_type"`
	Severity      string         `json:"severity"`
	AffectedUsers []string       `json:"affected_users"`
	Description   string         `json:"description"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type advanceTaskRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleDetectBreach(w http.ResponseWriter, r *http.Request) {
	var req detectBreachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	detected, err := h.breach.Detect(r.Context(), breach.Breach{
		Type:          breach.Type(req.Type),
		Severity:      breach.Severity(req.Severity),
		AffectedUsers: req.AffectedUsers,
		Description:   req.Description,
		Metadata:      req.Metadata,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to register breach",
			"request_id", middleware.GetRequestID(r.Context()), "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, detected)
}

func (h *Handler) handleBreachTasks(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid breach id")
		return
	}
	tasks, err := h.breach.Tasks(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"breach_id": id, "tasks": tasks})
}

func (h *Handler) handleAdvanceTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid breach id")
		return
	}
	taskType, err := breach.ParseTaskType(chi.URLParam(r, "type"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var req advanceTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	status, err := breach.ParseTaskStatus(req.Status)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := h.breach.AdvanceTask(r.Context(), id, taskType, status); err != nil {
		h.logger.WarnContext(r.Context(), "failed to advance response task",
			"request_id", middleware.GetRequestID(r.Context()),
			"breach_id", id, "task_type", taskType, "error", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleOverdueTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.breach.Overdue(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}
