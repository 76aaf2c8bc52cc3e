// metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insights_query_duration_seconds",
			Help:    "Duration of a single query attempt in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stmt"},
	)

	QueryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_query_attempts_total",
			Help: "Query attempts by statement name and outcome (ok, retryable, fatal, canceled)",
		},
		[]string{"stmt", "outcome"},
	)

	SlowQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_slow_queries_total",
			Help: "Query attempts that exceeded the slow query threshold",
		},
		[]string{"stmt"},
	)

	PoolResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "insights_pool_resets_total",
			Help: "Times the pooled connection was discarded after a connection failure",
		},
	)

	PoolState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "insights_pool_state",
			Help: "Connection manager state (0 disconnected, 1 connected, 2 error, 3 reconnecting, 4 closed)",
		},
	)

	// Circuit breaker
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "insights_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	// Cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_cache_hits_total",
			Help: "Cache hits by read-model name",
		},
		[]string{"name"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_cache_misses_total",
			Help: "Cache misses by read-model name",
		},
		[]string{"name"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_cache_invalidated_entries_total",
			Help: "Entries removed by tag invalidation",
		},
		[]string{"tag"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_cache_store_errors_total",
			Help: "Store errors by operation (get, set, invalidate, decode)",
		},
		[]string{"op"},
	)
)
