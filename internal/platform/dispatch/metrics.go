package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for feed subscribers.
type Metrics struct {
	Handled *prometheus.CounterVec
	Retried *prometheus.CounterVec
	Skipped *prometheus.CounterVec
	Halted  *prometheus.CounterVec
}

// NewMetrics registers the subscriber metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Handled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tavola_subscriber_events_handled_total",
			Help: "Events fully handled and checkpointed by subscriber",
		}, []string{"subscriber"}),
		Retried: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tavola_subscriber_event_retries_total",
			Help: "Handler retries by subscriber",
		}, []string{"subscriber"}),
		Skipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tavola_subscriber_events_skipped_total",
			Help: "Events passed over as permanently unprocessable by subscriber",
		}, []string{"subscriber"}),
		Halted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tavola_subscriber_halts_total",
			Help: "Subscribers halted after exhausting retries",
		}, []string{"subscriber"}),
	}
}

func (m *Metrics) IncrementHandled(name string) {
	if m != nil {
		m.Handled.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) IncrementRetry(name string) {
	if m != nil {
		m.Retried.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) IncrementSkipped(name string) {
	if m != nil {
		m.Skipped.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) IncrementHalted(name string) {
	if m != nil {
		m.Halted.WithLabelValues(name).Inc()
	}
}
