package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"custodia/internal/dsr"
	"custodia/internal/platform/middleware"
)

type createRequestBody struct {
	UserID      string         `json:"user_id"`
	Type        string         `json:"request_type"`
	RequestData map[string]any `json:"request_data,omitempty"`
}

type advanceRequestBody struct {
	Status string `json:"status"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var req createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	rtype, err := dsr.ParseRequestType(req.Type)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	request, err := h.dsr.Create(r.Context(), req.UserID, rtype, req.RequestData)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create data subject request",
			"request_id", middleware.GetRequestID(r.Context()), "user_id", req.UserID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid request id")
		return
	}
	request, err := h.dsr.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (h *Handler) handleAdvanceRequest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid request id")
		return
	}
	var body advanceRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	next, err := dsr.ParseStatus(body.Status)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := h.dsr.Advance(r.Context(), id, next); err != nil {
		h.logger.WarnContext(r.Context(), "failed to advance data subject request",
			"request_id", middleware.GetRequestID(r.Context()), "dsr_id", id, "error", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
