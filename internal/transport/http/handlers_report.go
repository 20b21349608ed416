package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/platform/middleware"
	"custodia/internal/report"
)

func (h *Handler) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	timeframe, err := report.ParseTimeframe(chi.URLParam(r, "timeframe"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	rpt, err := h.reports.Generate(r.Context(), timeframe)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to generate compliance report",
			"request_id", middleware.GetRequestID(r.Context()), "timeframe", timeframe, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rpt)
}
