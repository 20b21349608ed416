//go:build integration

package dsr

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/pkg/platform/sentinel"
	"custodia/pkg/testutil/containers"
)

func TestPostgresStore_CreateAndFind(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)
	ctx := context.Background()

	request := Request{
		ID:          uuid.New(),
		UserID:      "user-1",
		Type:        TypeErasure,
		Status:      StatusPending,
		RequestedAt: time.Now().UTC().Truncate(time.Microsecond),
		RequestData: map[string]any{"reason": "account closure"},
	}
	require.NoError(t, store.Create(ctx, request))

	found, err := store.FindByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, request.UserID, found.UserID)
	assert.Equal(t, TypeErasure, found.Type)
	assert.Equal(t, StatusPending, found.Status)
	assert.Equal(t, "account closure", found.RequestData["reason"])
	assert.Nil(t, found.CompletedAt)
}

func TestPostgresStore_FindMissingIsNotFound(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)

	_, err := store.FindByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresStore_CompleteAttachesResponse(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)
	ctx := context.Background()

	request := Request{
		ID:          uuid.New(),
		UserID:      "user-1",
		Type:        TypeAccess,
		Status:      StatusPending,
		RequestedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Create(ctx, request))

	completedAt := time.Now().UTC().Truncate(time.Microsecond)
	payload := json.RawMessage(`{"user_id":"user-1","footprint":{}}`)
	require.NoError(t, store.Complete(ctx, request.ID, payload, completedAt))

	found, err := store.FindByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, found.Status)
	assert.JSONEq(t, string(payload), string(found.ResponseData))
	require.NotNil(t, found.CompletedAt)
	assert.WithinDuration(t, completedAt, *found.CompletedAt, time.Millisecond)
}

func TestPostgresStore_SetStatusOnMissingIsNotFound(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)

	err := store.SetStatus(context.Background(), uuid.New(), StatusProcessing, nil)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresStore_CountByTypeAndStatus(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, typ := range []RequestType{TypeAccess, TypeAccess, TypeErasure} {
		require.NoError(t, store.Create(ctx, Request{
			ID:          uuid.New(),
			UserID:      "user-1",
			Type:        typ,
			Status:      StatusPending,
			RequestedAt: now.Add(-time.Duration(i) * time.Minute),
		}))
	}

	counts, err := store.CountByTypeAndStatus(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	got := map[TypeStatusCount]bool{}
	for _, c := range counts {
		got[c] = true
	}
	assert.True(t, got[TypeStatusCount{Type: TypeAccess, Status: StatusPending, Count: 2}])
	assert.True(t, got[TypeStatusCount{Type: TypeErasure, Status: StatusPending, Count: 1}])
}
