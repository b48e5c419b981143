package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Ledger node RPC metrics
	ledgerRPCCallsTotal   *prometheus.CounterVec
	ledgerRPCCallDuration *prometheus.HistogramVec

	// Confirmation metrics
	confirmationsTotal       *prometheus.CounterVec
	confirmationRoundsWaited *prometheus.HistogramVec

	// Custody service metrics
	custodyCallsTotal   *prometheus.CounterVec
	custodyCallDuration *prometheus.HistogramVec

	// Workflow metrics
	transferWorkflowDuration *prometheus.HistogramVec

	// NATS metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		ledgerRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_rpc_calls_total",
				Help: "Total number of ledger node RPC calls by method and status",
			},
			[]string{"method", "status", "network"},
		),
		ledgerRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_rpc_call_duration_seconds",
				Help:    "Duration of ledger node RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "network"},
		),

		confirmationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confirmations_total",
				Help: "Total number of confirmation waits by outcome",
			},
			[]string{"network", "outcome"},
		),
		confirmationRoundsWaited: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "confirmation_rounds_waited",
				Help:    "Number of ledger rounds waited before a confirmation wait ended",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"network", "outcome"},
		),

		custodyCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "custody_calls_total",
				Help: "Total number of custody service calls by method and status",
			},
			[]string{"method", "status"},
		),
		custodyCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "custody_call_duration_seconds",
				Help:    "Duration of custody service calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"method"},
		),

		transferWorkflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transfer_workflow_duration_seconds",
				Help:    "Duration of asset transfer workflow activities in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"activity", "status"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Ledger RPC metric helpers

// RecordRPCCall records a ledger node RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, network string, duration float64) {
	m.ledgerRPCCallsTotal.WithLabelValues(method, status, network).Inc()
	m.ledgerRPCCallDuration.WithLabelValues(method, network).Observe(duration)
}

// Confirmation metric helpers

// RecordConfirmation records the end of a confirmation wait.
func (m *Metrics) RecordConfirmation(network, outcome string, roundsWaited float64) {
	m.confirmationsTotal.WithLabelValues(network, outcome).Inc()
	m.confirmationRoundsWaited.WithLabelValues(network, outcome).Observe(roundsWaited)
}

// Custody metric helpers

// RecordCustodyCall records a custody service call with duration.
func (m *Metrics) RecordCustodyCall(method string, err error, duration float64) {
	m.custodyCallsTotal.WithLabelValues(method, statusFromError(err)).Inc()
	m.custodyCallDuration.WithLabelValues(method).Observe(duration)
}

// Workflow metric helpers

// RecordActivityDuration records a transfer workflow activity execution.
func (m *Metrics) RecordActivityDuration(activity string, err error, duration float64) {
	m.transferWorkflowDuration.WithLabelValues(activity, statusFromError(err)).Observe(duration)
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Timer is a helper for timing operations.
// Usage:
//
//	defer metrics.Timer(time.Now(), func(duration float64) {
//	    m.RecordSomething(duration)
//	})()
func Timer(start time.Time, recordFunc func(float64)) func() {
	return func() {
		recordFunc(time.Since(start).Seconds())
	}
}

func statusFromError(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
