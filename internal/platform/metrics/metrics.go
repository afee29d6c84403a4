package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP level Prometheus metrics for the server.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Panics          prometheus.Counter
}

// New creates and registers the HTTP metrics.
func New() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tavola_http_requests_total",
			Help: "Total HTTP requests by route pattern, method and status",
		}, []string{"route", "method", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tavola_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		Panics: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tavola_http_panics_total",
			Help: "Handler panics recovered by middleware",
		}),
	}
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(route, method string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(seconds)
}

// IncrementPanics counts a recovered panic.
func (m *Metrics) IncrementPanics() {
	if m == nil {
		return
	}
	m.Panics.Inc()
}
