package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_translations_total",
			Help: "Total number of translation requests by outcome.",
		},
		[]string{"outcome"},
	)
	translationCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_translation_cache_hits_total",
			Help: "Total number of translations served from cache.",
		},
	)
	translationLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_translation_latency_ms",
			Help:    "End-to-end translation latency in milliseconds, cache hits included.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)
	queriesExecutedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_queries_executed_total",
			Help: "Total number of SQL statements executed against the target database.",
		},
	)
	queryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_query_rows_returned",
			Help:    "Rows returned per executed query.",
			Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000},
		},
	)
	unsafeRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_unsafe_rejections_total",
			Help: "Total number of queries rejected by the safety gate.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		translationsTotal,
		translationCacheHitsTotal,
		translationLatencyMs,
		queriesExecutedTotal,
		queryRowsReturned,
		unsafeRejectionsTotal,
	)
}

// Translation outcomes recorded by ObserveTranslation.
const (
	TranslationOutcomeGenerated = "generated"
	TranslationOutcomeCached    = "cached"
	TranslationOutcomeRejected  = "rejected"
	TranslationOutcomeFailed    = "failed"
)

func ObserveTranslation(outcome string, elapsed time.Duration) {
	translationsTotal.WithLabelValues(outcome).Inc()
	if outcome == TranslationOutcomeCached {
		translationCacheHitsTotal.Inc()
	}
	translationLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveQueryExecution(rows int) {
	queriesExecutedTotal.Inc()
	queryRowsReturned.Observe(float64(rows))
}

func IncrementUnsafeRejection() {
	unsafeRejectionsTotal.Inc()
}
