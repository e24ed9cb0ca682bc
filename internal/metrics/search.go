package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and backfill Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search requests by mode and the path that produced the answer",
		},
		[]string{"mode", "path"}, // path: primary / fallback / empty
	)

	SearchDegradationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_degradations_total",
			Help:      "Primary search failures that triggered the keyword fallback",
		},
		[]string{"mode", "reason"},
	)

	BackfillJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backfill_jobs_total",
			Help:      "Backfill candidates by outcome",
		},
		[]string{"outcome"}, // embedded / failed
	)

	BackfillRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backfill_runs_total",
			Help:      "Backfill runs by terminal status",
		},
		[]string{"status"}, // completed / canceled / failed / rejected
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search and backfill metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDegradationsTotal)
	prometheus.MustRegister(BackfillJobsTotal)
	prometheus.MustRegister(BackfillRunsTotal)
	searchMetricsRegistered = true
}
