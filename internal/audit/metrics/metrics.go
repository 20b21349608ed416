package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit pipeline.
type Metrics struct {
	// Events accepted by Record, by kind and sensitivity
	EventsRecorded *prometheus.CounterVec

	// Synchronous critical-path writes (breach / PHI)
	CriticalWrites prometheus.Counter

	// Batch sizes of successful flushes
	FlushBatchSize prometheus.Histogram

	// Failed flush attempts (batch re-queued)
	FlushFailures prometheus.Counter

	// Current buffered event count
	BufferDepth prometheus.Gauge

	// Events handed to the dead-letter hook after the retry budget
	DeadLettered prometheus.Counter
}

// New creates a Metrics instance with all audit pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		EventsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_audit_events_recorded_total",
			Help: "Total compliance events accepted by the audit pipeline",
		}, []string{"kind", "sensitivity"}),

		CriticalWrites: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_audit_critical_writes_total",
			Help: "Total synchronous writes for breach/PHI events",
		}),

		FlushBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_audit_flush_batch_size",
			Help:    "Number of events per successful batch flush",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		FlushFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_audit_flush_failures_total",
			Help: "Total failed batch flush attempts",
		}),

		BufferDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "custodia_audit_buffer_depth",
			Help: "Events currently held in the in-memory buffer",
		}),

		DeadLettered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_audit_dead_lettered_total",
			Help: "Events spilled to the dead-letter hook after exhausting the retry budget",
		}),
	}
}

// IncRecorded counts an accepted event.
func (m *Metrics) IncRecorded(kind, sensitivity string) {
	if m != nil {
		m.EventsRecorded.WithLabelValues(kind, sensitivity).Inc()
	}
}

// IncCriticalWrite counts a synchronous critical write.
func (m *Metrics) IncCriticalWrite() {
	if m != nil {
		m.CriticalWrites.Inc()
	}
}

// ObserveFlush records a successful flush of n events.
func (m *Metrics) ObserveFlush(n int) {
	if m != nil {
		m.FlushBatchSize.Observe(float64(n))
	}
}

// IncFlushFailure counts a failed flush attempt.
func (m *Metrics) IncFlushFailure() {
	if m != nil {
		m.FlushFailures.Inc()
	}
}

// SetBufferDepth records the current buffer size.
func (m *Metrics) SetBufferDepth(n int) {
	if m != nil {
		m.BufferDepth.Set(float64(n))
	}
}

// AddDeadLettered counts events handed to the dead-letter hook.
func (m *Metrics) AddDeadLettered(n int) {
	if m != nil {
		m.DeadLettered.Add(float64(n))
	}
}
