// Package metrics exposes Prometheus instrumentation for discovery runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts discovery runs by outcome ("completed" or "failed").
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_runs_total",
		Help: "Total number of discovery runs by outcome.",
	}, []string{"outcome"})

	// OpportunitiesDiscovered counts newly inserted opportunities.
	OpportunitiesDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_opportunities_discovered_total",
		Help: "Total number of opportunities inserted by discovery runs.",
	})

	// SourceErrors counts source-scoped failures (fetch or extract).
	SourceErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_source_errors_total",
		Help: "Total number of sources skipped due to fetch or extraction failures.",
	})

	// DuplicatesSkipped counts candidates suppressed by deduplication.
	DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_duplicates_skipped_total",
		Help: "Total number of candidates skipped because they were already recorded.",
	})

	// RunDuration observes how long a full discovery run takes.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "discovery_run_duration_seconds",
		Help:    "Duration of discovery runs.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)
