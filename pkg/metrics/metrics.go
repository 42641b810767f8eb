// Package metrics exposes the Prometheus gatherer used by the cleanup tool
// and pushes it to a Pushgateway when a run finishes.
// All metrics are defined in their respective packages (cleanup, github,
// ratelimit) and registered via promauto.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Gatherer collects everything promauto registered on the default registry.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Push sends all gathered metrics to the Pushgateway at url, grouped by job
// and repository. Batch jobs exit before a scraper could see them.
func Push(ctx context.Context, url, job, repository string) error {
	err := push.New(url, job).
		Gatherer(Gatherer).
		Grouping("repository", repository).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Cleanup Metrics (pkg/cleanup):
//   - workflow_cleanup_pages_total (Counter): Listing requests issued
//   - workflow_cleanup_deletes_total{outcome} (Counter): Delete attempts by outcome
//   - workflow_cleanup_window_duration_seconds (Histogram): Time for a window to settle
//   - workflow_cleanup_processed (Gauge): Items processed at the last page boundary
//   - workflow_cleanup_ceiling_reached_total (Counter): Runs stopped by the ceiling
//
// Request Metrics (pkg/github):
//   - github_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - github_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - github_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - github_rate_limit_remaining{resource} (Gauge): Requests remaining in the window
//   - github_rate_limit_limit{resource} (Gauge): Window size
//   - github_rate_limit_low_total{resource, severity} (Counter): Low/critical quota observations
//
// Example Prometheus Queries:
//
//   # Delete failure ratio
//   sum(rate(workflow_cleanup_deletes_total{outcome="failed"}[1h])) /
//   sum(rate(workflow_cleanup_deletes_total[1h]))
//
//   # Runs that keep hitting the ceiling (backlog growing)
//   increase(workflow_cleanup_ceiling_reached_total[1d]) > 3
//
//   # P95 delete latency
//   histogram_quantile(0.95, rate(github_request_duration_seconds_bucket{endpoint="delete_workflow_run"}[1h]))
