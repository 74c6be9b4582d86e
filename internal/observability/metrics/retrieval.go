package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

// RetrievalMetrics implements ports.RetrievalObserver.
type RetrievalMetrics struct {
	service string

	queriesTotal     *prometheus.CounterVec
	queryDuration    *prometheus.HistogramVec
	reviewsReturned  *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	geoDegradedTotal *prometheus.CounterVec
}

func NewRetrievalMetrics(service string, registerer prometheus.Registerer) *RetrievalMetrics {
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "queries_total",
			Help:      "Resolved queries by classified type and status.",
		},
		[]string{"service", "query_type", "status"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query resolution duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"service", "query_type"},
	)
	reviewsReturned := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "reviews_returned",
			Help:      "Distribution of reviews per successful query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 50},
		},
		[]string{"service", "query_type"},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding_cache",
			Name:      "lookups_total",
			Help:      "Embedding cache lookups by result.",
		},
		[]string{"service", "result"},
	)
	geoDegradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "geo_degraded_total",
			Help:      "Queries whose geo dimension was dropped, by reason.",
		},
		[]string{"service", "reason"},
	)

	registerer.MustRegister(queriesTotal, queryDuration, reviewsReturned, cacheLookups, geoDegradedTotal)

	return &RetrievalMetrics{
		service:          service,
		queriesTotal:     queriesTotal,
		queryDuration:    queryDuration,
		reviewsReturned:  reviewsReturned,
		cacheLookups:     cacheLookups,
		geoDegradedTotal: geoDegradedTotal,
	}
}

func (m *RetrievalMetrics) ObserveQuery(queryType domain.QueryType, status string, seconds float64, reviews int) {
	qt := string(queryType)
	if qt == "" {
		qt = "unclassified"
	}
	if status == "" {
		status = "unknown"
	}
	m.queriesTotal.WithLabelValues(m.service, qt, status).Inc()
	m.queryDuration.WithLabelValues(m.service, qt).Observe(seconds)
	if status == "ok" {
		m.reviewsReturned.WithLabelValues(m.service, qt).Observe(float64(reviews))
	}
}

func (m *RetrievalMetrics) ObserveEmbeddingCache(hits, misses int) {
	if hits > 0 {
		m.cacheLookups.WithLabelValues(m.service, "hit").Add(float64(hits))
	}
	if misses > 0 {
		m.cacheLookups.WithLabelValues(m.service, "miss").Add(float64(misses))
	}
}

func (m *RetrievalMetrics) ObserveGeoDegraded(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.geoDegradedTotal.WithLabelValues(m.service, reason).Inc()
}
