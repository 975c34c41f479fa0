package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search engine Prometheus metrics.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"strategy", "outcome"},
	)
	SearchCandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_candidates_total",
			Help:      "Candidate strings evaluated, by path (exact, similarity, skipped)",
		},
		[]string{"path"},
	)
	SearchScorerFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_scorer_failures_total",
			Help:      "Per-candidate similarity scoring failures, by kind",
		},
		[]string{"kind"},
	)
	SearchResultsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results_returned",
			Help:      "Number of results returned per search",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

var registerSearchOnce sync.Once

// RegisterSearchMetrics registers search engine metrics. Safe to call more than once.
func RegisterSearchMetrics() {
	registerSearchOnce.Do(func() {
		prometheus.MustRegister(
			SearchDuration,
			SearchCandidatesTotal,
			SearchScorerFailuresTotal,
			SearchResultsReturned,
		)
	})
}
