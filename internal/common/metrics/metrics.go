// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CategoryFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_category_fetches_total",
			Help: "Total number of upstream category fetches",
		},
		[]string{"category"},
	)

	CategoryFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_category_fetch_errors_total",
			Help: "Total number of failed upstream category fetches",
		},
		[]string{"category", "error_code"},
	)

	CategoryFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "insights_category_fetch_duration_seconds",
			Help: "Duration of upstream category fetches in seconds",
		},
		[]string{"category"},
	)

	RowsNormalizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_rows_normalized_total",
			Help: "Total number of issue rows produced by the normalizers",
		},
		[]string{"category"},
	)

	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_cache_hits_total",
			Help: "Category cache hits by freshness",
		},
		[]string{"category", "freshness"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_cache_misses_total",
			Help: "Category cache misses",
		},
		[]string{"category"},
	)

	FetchesInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "insights_fetches_in_flight",
			Help: "Number of in-flight upstream fetches per category",
		},
		[]string{"category"},
	)
)
