package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the order command and process side.
type Metrics struct {
	// Command outcomes by command name and result ("ok" or error kind)
	Commands *prometheus.CounterVec

	// End to end command latency including retries
	CommandLatency *prometheus.HistogramVec

	// Optimistic concurrency retries by command name
	ConflictRetries *prometheus.CounterVec

	// Snapshot cache hits and misses
	SnapshotLookups *prometheus.CounterVec

	// Process manager step outcomes: fired, skipped, failed
	ProcessSteps *prometheus.CounterVec

	// Events published to Kafka by the relay
	RelayedEvents prometheus.Counter
}

// New creates a new Metrics instance with all order metrics registered.
func New() *Metrics {
	return &Metrics{
		Commands: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tavola_order_commands_total",
			Help: "Order commands handled by command and outcome",
		}, []string{"command", "outcome"}),

		CommandLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tavola_order_command_duration_seconds",
			Help:    "Duration of order command handling including conflict retries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"command"}),

		ConflictRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tavola_order_conflict_retries_total",
			Help: "Optimistic concurrency retries by command",
		}, []string{"command"}),

		SnapshotLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tavola_order_snapshot_lookups_total",
			Help: "Aggregate snapshot cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss", "error"

		ProcessSteps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tavola_order_process_steps_total",
			Help: "Process manager step outcomes by step",
		}, []string{"step", "outcome"}),

		RelayedEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tavola_order_relayed_events_total",
			Help: "Order events published to the external event topic",
		}),
	}
}

// ObserveCommand records the outcome and latency of one command.
func (m *Metrics) ObserveCommand(command, outcome string, d time.Duration) {
	if m != nil {
		m.Commands.WithLabelValues(command, outcome).Inc()
		m.CommandLatency.WithLabelValues(command).Observe(d.Seconds())
	}
}

// IncrementConflictRetry records one optimistic concurrency retry.
func (m *Metrics) IncrementConflictRetry(command string) {
	if m != nil {
		m.ConflictRetries.WithLabelValues(command).Inc()
	}
}

// IncrementSnapshotLookup records a snapshot cache lookup.
func (m *Metrics) IncrementSnapshotLookup(result string) {
	if m != nil {
		m.SnapshotLookups.WithLabelValues(result).Inc()
	}
}

// IncrementProcessStep records a process manager step outcome.
func (m *Metrics) IncrementProcessStep(step, outcome string) {
	if m != nil {
		m.ProcessSteps.WithLabelValues(step, outcome).Inc()
	}
}

// AddRelayedEvents records events published by the relay.
func (m *Metrics) AddRelayedEvents(n int) {
	if m != nil {
		m.RelayedEvents.Add(float64(n))
	}
}
