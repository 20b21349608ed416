package pia

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/audit"
)

type piaFixture struct {
	svc      *Service
	recorder *audit.Recorder
	events   *audit.InMemoryStore
	now      time.Time
}

func newPIAFixture(t *testing.T) piaFixture {
	t.Helper()
	events := audit.NewInMemoryStore()
	recorder := audit.NewRecorder(events)
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	svc := NewService(NewInMemoryStore(), recorder,
		WithClock(func() time.Time { return now }))
	return piaFixture{svc: svc, recorder: recorder, events: events, now: now}
}

func validAssessment() Assessment {
	return Assessment{
		ProjectName:        "sleep-insights",
		DataTypes:          []string{"health_metrics", "mood_entries"},
		ProcessingPurpose:  "correlate sleep quality with mood trends",
		LegalBasis:         "consent",
		RiskLevel:          RiskMedium,
		MitigationMeasures: []string{"pseudonymization", "access logging"},
	}
}

func TestService_Conduct_AssignsServerFields(t *testing.T) {
	f := newPIAFixture(t)

	got, err := f.svc.Conduct(context.Background(), validAssessment())
	require.NoError(t, err)

	assert.NotZero(t, got.ID)
	assert.Equal(t, f.now, got.ConductedAt)
	assert.Equal(t, StatusDraft, got.Status)

	listed, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, got, listed[0])
}

func TestService_Conduct_KeepsExplicitStatus(t *testing.T) {
	f := newPIAFixture(t)

	in := validAssessment()
	in.Status = StatusApproved

	got, err := f.svc.Conduct(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
}

func TestService_Conduct_EmitsAuditEvent(t *testing.T) {
	f := newPIAFixture(t)

	got, err := f.svc.Conduct(context.Background(), validAssessment())
	require.NoError(t, err)
	f.recorder.Flush(context.Background())

	trail, err := f.events.ListByUser(context.Background(), audit.SystemUserID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, audit.KindModify, trail[0].Kind)
	assert.Equal(t, audit.SensitivitySensitive, trail[0].Sensitivity)
	assert.Equal(t, got.ID.String(), trail[0].Metadata["assessment_id"])
	assert.Equal(t, "sleep-insights", trail[0].Metadata["project_name"])
}

func TestService_Conduct_RejectsMalformedAssessment(t *testing.T) {
	f := newPIAFixture(t)

	cases := []struct {
		name   string
		mutate func(*Assessment)
	}{
		{"missing project name", func(a *Assessment) { a.ProjectName = "  " }},
		{"no data types", func(a *Assessment) { a.DataTypes = nil }},
		{"missing purpose", func(a *Assessment) { a.ProcessingPurpose = "" }},
		{"missing legal basis", func(a *Assessment) { a.LegalBasis = "" }},
		{"unknown risk level", func(a *Assessment) { a.RiskLevel = "extreme" }},
		{"unknown status", func(a *Assessment) { a.Status = "archived" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validAssessment()
			tc.mutate(&in)

			_, err := f.svc.Conduct(context.Background(), in)
			require.Error(t, err)
		})
	}

	listed, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestService_List_NewestFirst(t *testing.T) {
	events := audit.NewInMemoryStore()
	recorder := audit.NewRecorder(events)
	current := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	svc := NewService(NewInMemoryStore(), recorder,
		WithClock(func() time.Time {
			current = current.Add(time.Hour)
			return current
		}))

	first := validAssessment()
	first.ProjectName = "first"
	second := validAssessment()
	second.ProjectName = "second"

	_, err := svc.Conduct(context.Background(), first)
	require.NoError(t, err)
	_, err = svc.Conduct(context.Background(), second)
	require.NoError(t, err)

	listed, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "second", listed[0].ProjectName)
	assert.Equal(t, "first", listed[1].ProjectName)
}
