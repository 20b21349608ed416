package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"custodia/internal/audit/metrics"
)

// DefaultFlushThreshold is the buffer size that triggers an in-call flush.
const DefaultFlushThreshold = 100

// Recorder is the audit pipeline. Critical events (breach kind or PHI
// sensitivity) are written synchronously; everything else is buffered and
// flushed in batches, either when the buffer reaches the threshold or on
// the periodic tick driven by Run.
//
// Delivery for buffered events is at-least-once: a flush that fails after
// partially succeeding at the storage layer re-queues the whole batch, and
// the store dedups on event id.
type Recorder struct {
	store       Store
	logger      *slog.Logger
	metrics     *metrics.Metrics
	threshold   int
	retryBudget int
	deadLetter  func([]Event)

	mu       sync.Mutex
	buffer   []Event
	failures int // consecutive failed flush attempts
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLogger sets a logger for flush failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithFlushThreshold overrides the buffer size that triggers a flush.
func WithFlushThreshold(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.threshold = n
		}
	}
}

// WithDeadLetter installs a spill hook invoked with the batch once budget
// consecutive flush attempts have failed. Without a hook the batch stays in
// memory and is retried on the next trigger, indefinitely.
func WithDeadLetter(budget int, fn func([]Event)) Option {
	return func(r *Recorder) {
		r.retryBudget = budget
		r.deadLetter = fn
	}
}

// NewRecorder builds an audit pipeline around the given store. The recorder
// holds its own buffer; construct one per process and inject it everywhere
// an operation needs to leave a compliance trail.
func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:     store,
		threshold: DefaultFlushThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record accepts an event lacking id and timestamp, assigns both, and
// classifies it. Critical events are durable when Record returns; the error
// is the store error, and the caller decides whether to retry. Buffered
// events never surface storage errors to the caller.
func (r *Recorder) Record(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	event.ID = uuid.New()
	event.Timestamp = time.Now().UTC()

	r.metrics.IncRecorded(string(event.Kind), string(event.Sensitivity))

	if event.Critical() {
		if err := r.store.Insert(ctx, []Event{event}); err != nil {
			return fmt.Errorf("persist critical event: %w", err)
		}
		r.metrics.IncCriticalWrite()
		return nil
	}

	r.mu.Lock()
	r.buffer = append(r.buffer, event)
	depth := len(r.buffer)
	r.mu.Unlock()
	r.metrics.SetBufferDepth(depth)

	if depth >= r.threshold {
		r.Flush(ctx)
	}
	return nil
}

// Flush takes ownership of the current buffer contents and attempts one
// batch insert. On failure the batch is re-queued at the front so the next
// trigger retries it ahead of newer events; the error is logged, never
// returned.
func (r *Recorder) Flush(ctx context.Context) {
	r.mu.Lock()
	batch := r.buffer
	r.buffer = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	if err := r.store.Insert(ctx, batch); err != nil {
		r.metrics.IncFlushFailure()

		r.mu.Lock()
		r.failures++
		exhausted := r.deadLetter != nil && r.failures >= r.retryBudget
		if exhausted {
			r.failures = 0
		} else {
			r.buffer = append(batch, r.buffer...)
		}
		depth := len(r.buffer)
		r.mu.Unlock()
		r.metrics.SetBufferDepth(depth)

		if exhausted {
			r.metrics.AddDeadLettered(len(batch))
			if r.logger != nil {
				r.logger.ErrorContext(ctx, "audit flush retry budget exhausted, spilling to dead letter",
					"batch_size", len(batch),
					"error", err,
				)
			}
			r.deadLetter(batch)
			return
		}

		if r.logger != nil {
			r.logger.ErrorContext(ctx, "audit flush failed, batch re-queued",
				"batch_size", len(batch),
				"error", err,
			)
		}
		return
	}

	r.mu.Lock()
	r.failures = 0
	depth := len(r.buffer)
	r.mu.Unlock()

	r.metrics.ObserveFlush(len(batch))
	r.metrics.SetBufferDepth(depth)
}

// Run flushes on every tick until the context is cancelled, then drains the
// buffer one last time. Intended to be started as a goroutine from main.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return ctx.Err()
		case <-ticker.C:
			r.Flush(ctx)
		}
	}
}

// Close drains any buffered events with a background context. Buffered
// events that still fail to persist are reported through the dead-letter
// hook or lost with a log line.
func (r *Recorder) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.Flush(ctx)
}

// Trail returns the persisted audit trail for one user, oldest first.
// Buffered events are flushed first so a trail read reflects every event
// accepted before the call.
func (r *Recorder) Trail(ctx context.Context, userID string) ([]Event, error) {
	r.Flush(ctx)
	events, err := r.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read audit trail: %w", err)
	}
	return events, nil
}

// Buffered returns the number of events currently held in memory.
func (r *Recorder) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffer)
}
