package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the broker.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	CarrierErrors     *prometheus.CounterVec
	RateLimitWaits    *prometheus.CounterVec
	SagaCompensations *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics. It must be called at
// most once per process since promauto registers globally.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broker_requests_total",
				Help: "Total number of requests by operation, carrier, and status",
			},
			[]string{"operation", "carrier", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "broker_request_duration_seconds",
				Help:    "Request duration in seconds by operation and carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "carrier"},
		),
		CarrierErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broker_carrier_errors_total",
				Help: "Total carrier API errors by carrier and operation",
			},
			[]string{"carrier", "operation"},
		),
		RateLimitWaits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broker_rate_limit_waits_total",
				Help: "Outbound calls that had to wait for a rate-limit slot",
			},
			[]string{"carrier"},
		),
		SagaCompensations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "broker_order_compensations_total",
				Help: "Order-creation compensations by failed stage and result",
			},
			[]string{"stage", "result"},
		),
	}
}

// RecordRequest records a request metric.
func (m *Metrics) RecordRequest(operation, carrier, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, carrier, status).Inc()
	m.RequestDuration.WithLabelValues(operation, carrier).Observe(duration)
}

// RecordError records a carrier error metric.
func (m *Metrics) RecordError(carrier, operation string) {
	m.CarrierErrors.WithLabelValues(carrier, operation).Inc()
}

// RecordRateLimitWait records an outbound call that waited for a slot.
func (m *Metrics) RecordRateLimitWait(carrier string) {
	m.RateLimitWaits.WithLabelValues(carrier).Inc()
}

// RecordCompensation records a saga compensation attempt.
func (m *Metrics) RecordCompensation(stage, result string) {
	m.SagaCompensations.WithLabelValues(stage, result).Inc()
}
