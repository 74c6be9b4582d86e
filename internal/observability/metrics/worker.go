package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics tracks review warm-up jobs consumed from the event queue.
type WorkerMetrics struct {
	registry *prometheus.Registry

	warmTotal    *prometheus.CounterVec
	warmDuration *prometheus.HistogramVec
	warmInFlight prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	warmTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "review_warm_total",
			Help:      "Total review warm-up jobs by status.",
		},
		[]string{"service", "status"},
	)
	warmDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "review_warm_duration_seconds",
			Help:      "Review warm-up duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	warmInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "review_warm_in_flight",
			Help:      "Number of in-flight review warm-up jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(warmTotal, warmDuration, warmInFlight)

	return &WorkerMetrics{
		registry:     registry,
		warmTotal:    warmTotal,
		warmDuration: warmDuration,
		warmInFlight: warmInFlight,
	}
}

func (m *WorkerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartWarm() {
	m.warmInFlight.Inc()
}

func (m *WorkerMetrics) FinishWarm(service string, duration time.Duration, err error) {
	m.warmInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.warmTotal.WithLabelValues(service, status).Inc()
	m.warmDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}
