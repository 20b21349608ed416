package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nonCriticalEvent(userID string) Event {
	return Event{
		UserID:      userID,
		Kind:        KindAccess,
		Sensitivity: SensitivityPII,
		Description: "viewed profile",
	}
}

func TestRecorder_CriticalEventDurableOnReturn(t *testing.T) {
	store := NewInMemoryStore()
	rec := NewRecorder(store)

	err := rec.Record(context.Background(), Event{
		UserID:      "user-1",
		Kind:        KindAccess,
		Sensitivity: SensitivityPHI,
		Description: "viewed lab results",
	})
	require.NoError(t, err)

	// No flush has happened, yet the PHI event is already in the store.
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 0, rec.Buffered())
}

func TestRecorder_BreachKindIsCritical(t *testing.T) {
	store := NewInMemoryStore()
	rec := NewRecorder(store)

	err := rec.Record(context.Background(), Event{
		UserID:      "user-1",
		Kind:        KindBreach,
		Sensitivity: SensitivityPublic,
		Description: "breach notification",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestRecorder_NonCriticalEventIsBuffered(t *testing.T) {
	store := NewInMemoryStore()
	rec := NewRecorder(store)

	err := rec.Record(context.Background(), nonCriticalEvent("user-1"))
	require.NoError(t, err)

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 1, rec.Buffered())

	rec.Flush(context.Background())
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 0, rec.Buffered())
}

func TestRecorder_ThresholdTriggersFlush(t *testing.T) {
	store := NewInMemoryStore()
	rec := NewRecorder(store)

	for range DefaultFlushThreshold {
		require.NoError(t, rec.Record(context.Background(), nonCriticalEvent("user-1")))
	}

	// The hundredth event triggers a flush without an external tick.
	assert.Equal(t, DefaultFlushThreshold, store.Len())
	assert.Equal(t, 0, rec.Buffered())
}

func TestRecorder_150EventsFlushInTwoBatches(t *testing.T) {
	store := NewInMemoryStore()
	rec := NewRecorder(store)

	for range 150 {
		require.NoError(t, rec.Record(context.Background(), nonCriticalEvent("user-1")))
	}

	// First batch of 100 flushed on threshold, 50 still buffered.
	assert.Equal(t, 100, store.Len())
	assert.Equal(t, 50, rec.Buffered())

	rec.Flush(context.Background())
	assert.Equal(t, 150, store.Len())
}

func TestRecorder_RejectsMalformedEvents(t *testing.T) {
	store := NewInMemoryStore()
	rec := NewRecorder(store)

	tests := []struct {
		name  string
		event Event
	}{
		{"unknown kind", Event{UserID: "u", Kind: "bogus", Sensitivity: SensitivityPII, Description: "d"}},
		{"unknown sensitivity", Event{UserID: "u", Kind: KindAccess, Sensitivity: "bogus", Description: "d"}},
		{"missing user", Event{Kind: KindAccess, Sensitivity: SensitivityPII, Description: "d"}},
		{"missing description", Event{UserID: "u", Kind: KindAccess, Sensitivity: SensitivityPII}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rec.Record(context.Background(), tt.event)
			require.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, rec.Buffered())
}

// flakyStore fails the first failures inserts, then delegates.
type flakyStore struct {
	*InMemoryStore
	mu       sync.Mutex
	failures int
	attempts int
}

func (s *flakyStore) Insert(ctx context.Context, events []Event) error {
	s.mu.Lock()
	s.attempts++
	fail := s.attempts <= s.failures
	s.mu.Unlock()
	if fail {
		return errors.New("store unavailable")
	}
	return s.InMemoryStore.Insert(ctx, events)
}

func TestRecorder_FailedFlushRequeuesAtFront(t *testing.T) {
	store := &flakyStore{InMemoryStore: NewInMemoryStore(), failures: 1}
	rec := NewRecorder(store)

	require.NoError(t, rec.Record(context.Background(), nonCriticalEvent("first")))

	// Flush fails; the event goes back to the buffer, no error surfaces.
	rec.Flush(context.Background())
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 1, rec.Buffered())

	// A newer event lands behind the re-queued one.
	require.NoError(t, rec.Record(context.Background(), nonCriticalEvent("second")))
	rec.Flush(context.Background())

	assert.Equal(t, 2, store.Len())
	first, err := store.ListByUser(context.Background(), "first")
	require.NoError(t, err)
	second, err := store.ListByUser(context.Background(), "second")
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.False(t, second[0].Timestamp.Before(first[0].Timestamp))
}

func TestRecorder_CriticalWriteFailureSurfaces(t *testing.T) {
	store := &flakyStore{InMemoryStore: NewInMemoryStore(), failures: 1}
	rec := NewRecorder(store)

	err := rec.Record(context.Background(), Event{
		UserID:      "user-1",
		Kind:        KindAccess,
		Sensitivity: SensitivityPHI,
		Description: "viewed lab results",
	})
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestRecorder_DeadLetterAfterRetryBudget(t *testing.T) {
	store := &flakyStore{InMemoryStore: NewInMemoryStore(), failures: 100}

	var spilled []Event
	rec := NewRecorder(store, WithDeadLetter(3, func(batch []Event) {
		spilled = append(spilled, batch...)
	}))

	require.NoError(t, rec.Record(context.Background(), nonCriticalEvent("user-1")))

	rec.Flush(context.Background())
	rec.Flush(context.Background())
	assert.Empty(t, spilled, "budget not yet exhausted")
	assert.Equal(t, 1, rec.Buffered())

	rec.Flush(context.Background())
	assert.Len(t, spilled, 1)
	assert.Equal(t, 0, rec.Buffered())
}

func TestRecorder_ConcurrentRecordAndFlush(t *testing.T) {
	store := NewInMemoryStore()
	rec := NewRecorder(store)

	const producers = 10
	const perProducer = 50

	var wg sync.WaitGroup
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perProducer {
				_ = rec.Record(context.Background(), nonCriticalEvent("user-1"))
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 20 {
			rec.Flush(context.Background())
		}
	}()
	wg.Wait()

	rec.Flush(context.Background())
	assert.Equal(t, producers*perProducer, store.Len(), "no events lost or duplicated")
}

func TestRecorder_CloseDrainsBuffer(t *testing.T) {
	store := NewInMemoryStore()
	rec := NewRecorder(store)

	for range 7 {
		require.NoError(t, rec.Record(context.Background(), nonCriticalEvent("user-1")))
	}
	rec.Close()
	assert.Equal(t, 7, store.Len())
}
