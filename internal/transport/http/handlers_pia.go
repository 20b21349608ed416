package httptransport

import (
	"encoding/json"
	"net/http"

	"custodia/internal/pia"
	"custodia/internal/platform/middleware"
)

type conductAssessmentRequest struct {
	ProjectName        string   `json:"project_name"`
	DataTypes          []string `json:"data_types"`
	ProcessingPurpose  string   `json:"processing_purpose"`
	LegalBasis         string   `json:"legal_basis"`
	RiskLevel          string   `json:"risk_level"`
	MitigationMeasures []string `json:"mitigation_measures"`
	Status             string   `json:"status,omitempty"`
}

func (h *Handler) handleConductAssessment(w http.ResponseWriter, r *http.Request) {
	var req conductAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	assessment, err := h.pia.Conduct(r.Context(), pia.Assessment{
		ProjectName:        req.ProjectName,
		DataTypes:          req.DataTypes,
		ProcessingPurpose:  req.ProcessingPurpose,
		LegalBasis:         req.LegalBasis,
		RiskLevel:          pia.RiskLevel(req.RiskLevel),
		MitigationMeasures: req.MitigationMeasures,
		Status:             pia.Status(req.Status),
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to conduct assessment",
			"request_id", middleware.GetRequestID(r.Context()), "project", req.ProjectName, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, assessment)
}

func (h *Handler) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	assessments, err := h.pia.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": assessments})
}
