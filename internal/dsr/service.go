package dsr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"custodia/internal/audit"
	"custodia/pkg/platform/sentinel"
)

// ErrRequestNotFound distinguishes "the request no longer exists" from a
// successful processing pass, so callers racing a deletion can tell an
// idempotent skip from real work.
var ErrRequestNotFound = errors.New("data subject request not found")

const defaultGatherTimeout = 30 * time.Second

// AuditRecorder is the slice of the audit pipeline this service needs.
type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// ConsentEraser removes a user's stored consent state when an erasure
// request is fulfilled.
type ConsentEraser interface {
	EraseUser(ctx context.Context, userID string) (int64, error)
}

// Service tracks data-subject requests through their lifecycle. Access
// requests are fulfilled synchronously by gathering the user's full data
// footprint; other types wait on an external reviewer calling Advance.
type Service struct {
	store         Store
	recorder      AuditRecorder
	sources       []FootprintSource
	eraser        ConsentEraser
	logger        *slog.Logger
	gatherTimeout time.Duration
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithLogger sets a logger for processing diagnostics.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithConsentEraser enables consent cleanup when an erasure request
// completes.
func WithConsentEraser(eraser ConsentEraser) ServiceOption {
	return func(s *Service) { s.eraser = eraser }
}

// WithGatherTimeout bounds the parallel footprint gathering.
func WithGatherTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.gatherTimeout = d
		}
	}
}

func NewService(store Store, recorder AuditRecorder, sources []FootprintSource, opts ...ServiceOption) *Service {
	s := &Service{
		store:         store,
		recorder:      recorder,
		sources:       sources,
		gatherTimeout: defaultGatherTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new request in pending state and, for access requests,
// fulfils it synchronously. The returned request reflects the state after
// any synchronous processing.
func (s *Service) Create(ctx context.Context, userID string, rtype RequestType, requestData map[string]any) (Request, error) {
	if userID == "" {
		return Request{}, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	}
	if !validTypes[rtype] {
		return Request{}, fmt.Errorf("%w: unknown type %q", ErrInvalidRequest, rtype)
	}

	request := Request{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        rtype,
		Status:      StatusPending,
		RequestedAt: time.Now().UTC(),
		RequestData: requestData,
	}
	if err := s.store.Create(ctx, request); err != nil {
		return Request{}, fmt.Errorf("create data subject request: %w", err)
	}

	s.emit(ctx, audit.Event{
		UserID:      userID,
		Kind:        audit.KindAccess,
		Sensitivity: audit.SensitivityPII,
		Description: fmt.Sprintf("data subject request created (%s)", rtype),
		Metadata: map[string]any{
			"request_id":   request.ID.String(),
			"request_type": string(rtype),
		},
	})

	if rtype == TypeAccess {
		if err := s.ProcessAccess(ctx, request.ID); err != nil {
			return request, fmt.Errorf("process access request: %w", err)
		}
		return s.store.FindByID(ctx, request.ID)
	}
	return request, nil
}

// ProcessAccess gathers the user's full data footprint and attaches it as
// the response payload. A missing request returns ErrRequestNotFound; an
// already-completed request is an idempotent no-op.
func (s *Service) ProcessAccess(ctx context.Context, id uuid.UUID) error {
	request, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}
	if request.Status == StatusCompleted {
		return nil
	}

	footprint, err := s.gatherFootprint(ctx, request.UserID)
	if err != nil {
		return fmt.Errorf("gather footprint: %w", err)
	}

	completedAt := time.Now().UTC()
	payload, err := json.Marshal(map[string]any{
		"user_id":      request.UserID,
		"generated_at": completedAt.Format(time.RFC3339),
		"footprint":    footprint,
	})
	if err != nil {
		return fmt.Errorf("marshal footprint: %w", err)
	}

	if err := s.store.Complete(ctx, id, payload, completedAt); err != nil {
		return fmt.Errorf("complete request: %w", err)
	}

	s.emit(ctx, audit.Event{
		UserID:      request.UserID,
		Kind:        audit.KindExport,
		Sensitivity: audit.SensitivityPII,
		Description: "access request fulfilled with full data export",
		Metadata: map[string]any{
			"request_id":    id.String(),
			"payload_bytes": len(payload),
		},
	})
	return nil
}

// gatherFootprint reads all sources in parallel with shared cancellation.
// A source with nothing for the user contributes an empty slice; a source
// failure aborts the gather, leaving the request pending for retry.
func (s *Service) gatherFootprint(ctx context.Context, userID string) (map[string][]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.gatherTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	results := make([][]map[string]any, len(s.sources))
	for i, source := range s.sources {
		g.Go(func() error {
			records, err := source.Collect(ctx, userID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					results[i] = nil
					return nil
				}
				return fmt.Errorf("collect %s: %w", source.Name(), err)
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	footprint := make(map[string][]map[string]any, len(s.sources))
	for i, source := range s.sources {
		records := results[i]
		if records == nil {
			records = []map[string]any{}
		}
		footprint[source.Name()] = records
	}
	return footprint, nil
}

// Advance applies a reviewer-driven status transition. Repeating the
// current status is an idempotent no-op; transitions out of a terminal
// status return sentinel.ErrInvalidState.
func (s *Service) Advance(ctx context.Context, id uuid.UUID, next Status) error {
	if !validStatuses[next] {
		return fmt.Errorf("invalid request status %q", next)
	}
	request, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("load request: %w", err)
	}

	if request.Status == next {
		return nil
	}
	if !transitionAllowed(request.Status, next) {
		return fmt.Errorf("transition %s -> %s: %w", request.Status, next, sentinel.ErrInvalidState)
	}

	if request.Type == TypeErasure && next == StatusCompleted && s.eraser != nil {
		erased, err := s.eraser.EraseUser(ctx, request.UserID)
		if err != nil {
			return fmt.Errorf("erase consent state: %w", err)
		}
		s.emit(ctx, audit.Event{
			UserID:      request.UserID,
			Kind:        audit.KindDelete,
			Sensitivity: audit.SensitivityPII,
			Description: "consent state erased for completed erasure request",
			Metadata: map[string]any{
				"request_id":     id.String(),
				"records_erased": erased,
			},
		})
	}

	var completedAt *time.Time
	if next == StatusCompleted || next == StatusRejected {
		now := time.Now().UTC()
		completedAt = &now
	}
	if err := s.store.SetStatus(ctx, id, next, completedAt); err != nil {
		return fmt.Errorf("set request status: %w", err)
	}

	s.emit(ctx, audit.Event{
		UserID:      request.UserID,
		Kind:        audit.KindModify,
		Sensitivity: audit.SensitivityPII,
		Description: fmt.Sprintf("data subject request advanced to %s", next),
		Metadata: map[string]any{
			"request_id":   id.String(),
			"request_type": string(request.Type),
		},
	})
	return nil
}

func transitionAllowed(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusCompleted || to == StatusRejected
	case StatusProcessing:
		return to == StatusCompleted || to == StatusRejected
	default:
		return false
	}
}

// Get loads a request by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	request, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Request{}, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	return request, err
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if err := s.recorder.Record(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "request audit event rejected",
			"user_id", event.UserID,
			"error", err,
		)
	}
}
