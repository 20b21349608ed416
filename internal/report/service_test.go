package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/audit"
	"custodia/internal/breach"
	"custodia/internal/consent"
	"custodia/internal/dsr"
)

type stubCounts struct {
	events   []audit.KindSensitivityCount
	consents []consent.TypeStateCount
	breaches []breach.SeverityCount
	requests []dsr.TypeStatusCount

	eventsErr error

	eventsSince time.Time
}

func (s *stubCounts) CountByKindAndSensitivity(_ context.Context, since time.Time) ([]audit.KindSensitivityCount, error) {
	s.eventsSince = since
	return s.events, s.eventsErr
}

func (s *stubCounts) CountByTypeAndState(context.Context, time.Time) ([]consent.TypeStateCount, error) {
	return s.consents, nil
}

func (s *stubCounts) CountBySeverity(context.Context, time.Time) ([]breach.SeverityCount, error) {
	return s.breaches, nil
}

func (s *stubCounts) CountByTypeAndStatus(context.Context, time.Time) ([]dsr.TypeStatusCount, error) {
	return s.requests, nil
}

func newReportService(counts *stubCounts, now time.Time) *Service {
	return NewService(counts, counts, counts, counts, WithClock(func() time.Time { return now }))
}

func TestGenerateAggregatesAllSources(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	counts := &stubCounts{
		events: []audit.KindSensitivityCount{
			{Kind: audit.KindAccess, Sensitivity: audit.SensitivityPHI, Count: 12},
		},
		consents: []consent.TypeStateCount{
			{Type: consent.TypeMarketing, Granted: true, Count: 40},
		},
		breaches: []breach.SeverityCount{
			{Severity: breach.SeverityHigh, Count: 1},
		},
		requests: []dsr.TypeStatusCount{
			{Type: dsr.TypeAccess, Status: dsr.StatusCompleted, Count: 3},
		},
	}
	svc := newReportService(counts, now)

	rpt, err := svc.Generate(context.Background(), TimeframeWeekly)
	require.NoError(t, err)

	assert.Equal(t, TimeframeWeekly, rpt.Timeframe)
	assert.Equal(t, now, rpt.GeneratedAt)
	assert.Equal(t, now.Add(-7*24*time.Hour), rpt.PeriodStart)
	assert.Equal(t, rpt.PeriodStart, counts.eventsSince)
	assert.Equal(t, counts.events, rpt.AuditEvents)
	assert.Equal(t, counts.consents, rpt.Consent)
	assert.Equal(t, counts.breaches, rpt.Breaches)
	assert.Equal(t, counts.requests, rpt.Requests)
}

func TestGenerateTimeframeWindows(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		timeframe Timeframe
		offset    time.Duration
	}{
		{TimeframeDaily, 24 * time.Hour},
		{TimeframeWeekly, 7 * 24 * time.Hour},
		{TimeframeMonthly, 30 * 24 * time.Hour},
		{TimeframeQuarterly, 90 * 24 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(string(tc.timeframe), func(t *testing.T) {
			svc := newReportService(&stubCounts{}, now)

			rpt, err := svc.Generate(context.Background(), tc.timeframe)
			require.NoError(t, err)
			assert.Equal(t, now.Add(-tc.offset), rpt.PeriodStart)
		})
	}
}

func TestGenerateComplianceScore(t *testing.T) {
	cases := []struct {
		name      string
		breaches  []breach.SeverityCount
		consents  []consent.TypeStateCount
		wantScore int
	}{
		{
			name:      "clean period scores perfect",
			wantScore: 100,
		},
		{
			name: "each breach costs ten points",
			breaches: []breach.SeverityCount{
				{Severity: breach.SeverityCritical, Count: 2},
				{Severity: breach.SeverityLow, Count: 1},
			},
			wantScore: 70,
		},
		{
			name: "each withdrawal costs two points",
			consents: []consent.TypeStateCount{
				{Type: consent.TypeMarketing, Granted: false, Count: 4},
				{Type: consent.TypeAnalytics, Granted: true, Count: 50},
			},
			wantScore: 92,
		},
		{
			name: "combined deductions",
			breaches: []breach.SeverityCount{
				{Severity: breach.SeverityHigh, Count: 3},
			},
			consents: []consent.TypeStateCount{
				{Type: consent.TypeResearch, Granted: false, Count: 10},
			},
			wantScore: 50,
		},
		{
			name: "score never drops below zero",
			breaches: []breach.SeverityCount{
				{Severity: breach.SeverityCritical, Count: 9},
			},
			consents: []consent.TypeStateCount{
				{Type: consent.TypeMarketing, Granted: false, Count: 20},
			},
			wantScore: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
			svc := newReportService(&stubCounts{breaches: tc.breaches, consents: tc.consents}, now)

			rpt, err := svc.Generate(context.Background(), TimeframeMonthly)
			require.NoError(t, err)
			assert.Equal(t, tc.wantScore, rpt.ComplianceScore)
		})
	}
}

func TestGenerateRejectsUnknownTimeframe(t *testing.T) {
	svc := newReportService(&stubCounts{}, time.Now())

	_, err := svc.Generate(context.Background(), Timeframe("hourly"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeframe")
}

func TestGenerateSurfacesSourceFailure(t *testing.T) {
	counts := &stubCounts{eventsErr: errors.New("db down")}
	svc := newReportService(counts, time.Now())

	_, err := svc.Generate(context.Background(), TimeframeDaily)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregate audit events")
}

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe("quarterly")
	require.NoError(t, err)
	assert.Equal(t, TimeframeQuarterly, tf)

	_, err = ParseTimeframe("yearly")
	require.Error(t, err)
}
