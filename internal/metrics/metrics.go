package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	QueriesTotal   *prometheus.CounterVec
	QueryRetries   prometheus.Counter
	QuerySeconds   *prometheus.HistogramVec
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheFallbacks prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		QueriesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "aed_storage_queries_total",
			Help: "Total number of storage queries by outcome.",
		}, []string{"op", "outcome"}),
		QueryRetries: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "aed_storage_query_retries_total",
			Help: "Total number of retried storage attempts.",
		}),
		QuerySeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aed_storage_query_duration_seconds",
			Help:    "Duration of storage queries including retries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		CacheHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "aed_cache_hits_total",
			Help: "Total number of query cache hits.",
		}),
		CacheMisses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "aed_cache_misses_total",
			Help: "Total number of query cache misses.",
		}),
		CacheFallbacks: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "aed_cache_fallbacks_total",
			Help: "Total number of times a cache failure degraded to direct computation.",
		}),
	}
}
