package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custodia/internal/audit"
	"custodia/internal/breach"
	"custodia/internal/consent"
	"custodia/internal/dsr"
	"custodia/internal/pia"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
	"custodia/internal/report"
)

// Service interfaces consumed by the transport layer. The handlers
// depend on exactly the operations they expose.
type AuditService interface {
	Record(ctx context.Context, event audit.Event) error
	Trail(ctx context.Context, userID string) ([]audit.Event, error)
}

type ConsentService interface {
	RecordConsent(ctx context.Context, record consent.Record) (consent.Record, error)
	Status(ctx context.Context, userID string) (map[consent.Type]consent.Record, error)
}

type DSRService interface {
	Create(ctx context.Context, userID string, rtype dsr.RequestType, requestData map[string]any) (dsr.Request, error)
	Get(ctx context.Context, id uuid.UUID) (dsr.Request, error)
	Advance(ctx context.Context, id uuid.UUID, next dsr.Status) error
}

type BreachService interface {
	Detect(ctx context.Context, b breach.Breach) (breach.Breach, error)
	Tasks(ctx context.Context, breachID uuid.UUID) ([]breach.ResponseTask, error)
	AdvanceTask(ctx context.Context, breachID uuid.UUID, taskType breach.TaskType, status breach.TaskStatus) error
	Overdue(ctx context.Context) ([]breach.ResponseTask, error)
}

type ReportService interface {
	Generate(ctx context.Context, timeframe report.Timeframe) (report.Report, error)
}

type PIAService interface {
	Conduct(ctx context.Context, assessment pia.Assessment) (pia.Assessment, error)
	List(ctx context.Context) ([]pia.Assessment, error)
}

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler is the thin HTTP layer over the compliance services.
type Handler struct {
	logger  *slog.Logger
	audits  AuditService
	consent ConsentService
	dsr     DSRService
	breach  BreachService
	reports ReportService
	pia     PIAService
	health  []HealthChecker
}

// HandlerOption configures optional collaborators.
type HandlerOption func(*Handler)

// WithHealthChecks adds dependency probes to /healthz.
func WithHealthChecks(checks ...HealthChecker) HandlerOption {
	return func(h *Handler) { h.health = append(h.health, checks...) }
}

func NewHandler(
	logger *slog.Logger,
	audits AuditService,
	consentSvc ConsentService,
	dsrSvc DSRService,
	breachSvc BreachService,
	reports ReportService,
	piaSvc PIAService,
	opts ...HandlerOption,
) *Handler {
	h := &Handler{
		logger:  logger,
		audits:  audits,
		consent: consentSvc,
		dsr:     dsrSvc,
		breach:  breachSvc,
		reports: reports,
		pia:     piaSvc,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewRouter wires all endpoints. Every /v1 route requires a bearer
// token; /healthz and /metrics stay open for probes and scrapers.
func NewRouter(h *Handler, validator middleware.TokenValidator, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))
	r.Use(m.Middleware)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, h.logger))

		r.Post("/events", h.handleRecordEvent)
		r.Get("/events/{userID}", h.handleEventTrail)

		r.Post("/consents", h.handleRecordConsent)
		r.Get("/consents/{userID}", h.handleConsentStatus)

		r.Post("/dsr", h.handleCreateRequest)
		r.Get("/dsr/{id}", h.handleGetRequest)
		r.Post("/dsr/{id}/advance", h.handleAdvanceRequest)

		r.Post("/breaches", h.handleDetectBreach)
		r.Get("/breaches/{id}/tasks", h.handleBreachTasks)
		r.Post("/breaches/{id}/tasks/{type}/advance", h.handleAdvanceTask)
		r.Get("/breaches/tasks/overdue", h.handleOverdueTasks)

		r.Get("/reports/{timeframe}", h.handleGenerateReport)

		r.Post("/pia", h.handleConductAssessment)
		r.Get("/pia", h.handleListAssessments)
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	for _, check := range h.health {
		if err := check.Health(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
