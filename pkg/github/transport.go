package github

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/workflow-cleanup/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for GitHub API requests.
var (
	githubRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_requests_total",
		Help: "Total GitHub API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	githubRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "github_request_duration_seconds",
		Help:    "GitHub API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	githubErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_errors_total",
		Help: "Total GitHub API errors by class",
	}, []string{"class"})
)

// instrumentedTransport records request metrics and feeds rate limit
// headers of every response to the tracker.
type instrumentedTransport struct {
	base    http.RoundTripper
	tracker *ratelimit.Tracker
	logger  zerolog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	endpoint := endpointLabel(req)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	githubRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		t.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		githubErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		githubRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, err
	}

	if t.tracker != nil {
		if err := t.tracker.UpdateFromHeaders(req.Context(), resp.Header); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	githubRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode >= 400 {
		class := classifyError(resp.StatusCode, nil)
		if resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" {
			class = ErrorClassRateLimit
		}
		githubErrorsTotal.WithLabelValues(string(class)).Inc()

		t.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("GitHub request error")
	}

	return resp, nil
}

// endpointLabel maps a request to a bounded metric label.
func endpointLabel(req *http.Request) string {
	path := strings.TrimSuffix(req.URL.Path, "/")
	switch {
	case strings.HasSuffix(path, "/actions/runs") && req.Method == http.MethodGet:
		return "list_workflow_runs"
	case strings.Contains(path, "/actions/runs/") && req.Method == http.MethodDelete:
		return "delete_workflow_run"
	default:
		return "other"
	}
}
