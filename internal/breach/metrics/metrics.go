package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the breach orchestrator.
type Metrics struct {
	// Breaches detected, by severity
	BreachesDetected *prometheus.CounterVec

	// Alert sink failures (alerts are fire-and-forget)
	AlertFailures prometheus.Counter
}

// New creates a Metrics instance with all breach metrics registered.
func New() *Metrics {
	return &Metrics{
		BreachesDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_breaches_detected_total",
			Help: "Total data breaches detected, by severity",
		}, []string{"severity"}),

		AlertFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_breach_alert_failures_total",
			Help: "Total breach alerts that failed to reach the notification sink",
		}),
	}
}

// IncDetected counts a detected breach.
func (m *Metrics) IncDetected(severity string) {
	if m != nil {
		m.BreachesDetected.WithLabelValues(severity).Inc()
	}
}

// IncAlertFailure counts a failed alert delivery.
func (m *Metrics) IncAlertFailure() {
	if m != nil {
		m.AlertFailures.Inc()
	}
}
