//go:build integration

package pia

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/pkg/testutil/containers"
)

func TestPostgresStore_InsertAndList(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	older := Assessment{
		ID:                 uuid.New(),
		ProjectName:        "mood-export",
		DataTypes:          []string{"mood_entries"},
		ProcessingPurpose:  "third-party research export",
		LegalBasis:         "consent",
		RiskLevel:          RiskHigh,
		MitigationMeasures: []string{"aggregation"},
		ConductedAt:        now.Add(-time.Hour),
		Status:             StatusApproved,
	}
	newer := Assessment{
		ID:                uuid.New(),
		ProjectName:       "sleep-insights",
		DataTypes:         []string{"health_metrics", "mood_entries"},
		ProcessingPurpose: "trend analysis",
		LegalBasis:        "consent",
		RiskLevel:         RiskMedium,
		ConductedAt:       now,
		Status:            StatusDraft,
	}
	require.NoError(t, store.Insert(ctx, older))
	require.NoError(t, store.Insert(ctx, newer))

	listed, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "sleep-insights", listed[0].ProjectName)
	assert.Equal(t, "mood-export", listed[1].ProjectName)
	assert.Equal(t, []string{"mood_entries"}, []string(listed[1].DataTypes))
	assert.Equal(t, []string{"aggregation"}, []string(listed[1].MitigationMeasures))
	assert.Equal(t, RiskHigh, listed[1].RiskLevel)
}
