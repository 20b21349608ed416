package report

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"custodia/internal/audit"
	"custodia/internal/breach"
	"custodia/internal/consent"
	"custodia/internal/dsr"
)

// Timeframe selects the reporting window.
type Timeframe string

const (
	TimeframeDaily     Timeframe = "daily"
	TimeframeWeekly    Timeframe = "weekly"
	TimeframeMonthly   Timeframe = "monthly"
	TimeframeQuarterly Timeframe = "quarterly"
)

var timeframeOffsets = map[Timeframe]time.Duration{
	TimeframeDaily:     24 * time.Hour,
	TimeframeWeekly:    7 * 24 * time.Hour,
	TimeframeMonthly:   30 * 24 * time.Hour,
	TimeframeQuarterly: 90 * 24 * time.Hour,
}

// ParseTimeframe constructs a Timeframe from external input.
func ParseTimeframe(s string) (Timeframe, error) {
	t := Timeframe(s)
	if _, ok := timeframeOffsets[t]; !ok {
		return "", fmt.Errorf("invalid timeframe %q", s)
	}
	return t, nil
}

// Report is the aggregated compliance picture for one window. The score
// is a coarse health signal in [0, 100], not a certification metric.
type Report struct {
	Timeframe       Timeframe                    `json:"timeframe"`
	PeriodStart     time.Time                    `json:"period_start"`
	GeneratedAt     time.Time                    `json:"generated_at"`
	AuditEvents     []audit.KindSensitivityCount `json:"audit_events"`
	Consent         []consent.TypeStateCount     `json:"consent"`
	Breaches        []breach.SeverityCount       `json:"breaches"`
	Requests        []dsr.TypeStatusCount        `json:"requests"`
	ComplianceScore int                          `json:"compliance_score"`
}

// Count sources, one per aggregate. Defined here so the reporter depends
// on exactly the queries it runs.
type EventCounter interface {
	CountByKindAndSensitivity(ctx context.Context, since time.Time) ([]audit.KindSensitivityCount, error)
}

type ConsentCounter interface {
	CountByTypeAndState(ctx context.Context, since time.Time) ([]consent.TypeStateCount, error)
}

type BreachCounter interface {
	CountBySeverity(ctx context.Context, since time.Time) ([]breach.SeverityCount, error)
}

type RequestCounter interface {
	CountByTypeAndStatus(ctx context.Context, since time.Time) ([]dsr.TypeStatusCount, error)
}

// Service aggregates compliance statistics from the stores.
type Service struct {
	events   EventCounter
	consents ConsentCounter
	breaches BreachCounter
	requests RequestCounter
	now      func() time.Time
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(events EventCounter, consents ConsentCounter, breaches BreachCounter, requests RequestCounter, opts ...ServiceOption) *Service {
	s := &Service{
		events:   events,
		consents: consents,
		breaches: breaches,
		requests: requests,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate aggregates the four grouped counts in parallel and computes
// the bounded compliance score.
func (s *Service) Generate(ctx context.Context, timeframe Timeframe) (Report, error) {
	offset, ok := timeframeOffsets[timeframe]
	if !ok {
		return Report{}, fmt.Errorf("invalid timeframe %q", timeframe)
	}

	generatedAt := s.now().UTC()
	since := generatedAt.Add(-offset)
	rpt := Report{
		Timeframe:   timeframe,
		PeriodStart: since,
		GeneratedAt: generatedAt,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.events.CountByKindAndSensitivity(ctx, since)
		if err != nil {
			return fmt.Errorf("aggregate audit events: %w", err)
		}
		rpt.AuditEvents = counts
		return nil
	})
	g.Go(func() error {
		counts, err := s.consents.CountByTypeAndState(ctx, since)
		if err != nil {
			return fmt.Errorf("aggregate consent: %w", err)
		}
		rpt.Consent = counts
		return nil
	})
	g.Go(func() error {
		counts, err := s.breaches.CountBySeverity(ctx, since)
		if err != nil {
			return fmt.Errorf("aggregate breaches: %w", err)
		}
		rpt.Breaches = counts
		return nil
	})
	g.Go(func() error {
		counts, err := s.requests.CountByTypeAndStatus(ctx, since)
		if err != nil {
			return fmt.Errorf("aggregate requests: %w", err)
		}
		rpt.Requests = counts
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	rpt.ComplianceScore = score(rpt.Breaches, rpt.Consent)
	return rpt, nil
}

// score is 100 minus 10 per breach and 2 per consent withdrawal in the
// window, clamped to [0, 100].
func score(breaches []breach.SeverityCount, consents []consent.TypeStateCount) int {
	var totalBreaches, withdrawals int
	for _, c := range breaches {
		totalBreaches += c.Count
	}
	for _, c := range consents {
		if !c.Granted {
			withdrawals += c.Count
		}
	}
	s := 100 - 10*totalBreaches - 2*withdrawals
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
