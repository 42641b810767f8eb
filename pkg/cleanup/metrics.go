package cleanup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for cleanup runs.
var (
	cleanupPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workflow_cleanup_pages_total",
		Help: "Total number of listing requests issued",
	})

	cleanupDeletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_cleanup_deletes_total",
		Help: "Total delete attempts by outcome",
	}, []string{"outcome"}) // "deleted", "failed"

	cleanupWindowDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "workflow_cleanup_window_duration_seconds",
		Help:    "Time until every delete of a window settled",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	cleanupProcessed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workflow_cleanup_processed",
		Help: "Items processed by the current run at the last page boundary",
	})

	cleanupCeilingHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workflow_cleanup_ceiling_reached_total",
		Help: "Number of runs that stopped at the ceiling",
	})
)
