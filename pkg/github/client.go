// Package github provides the GitHub Actions workflow run client used by the
// cleanup controller, with request metrics and rate limit tracking.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/workflow-cleanup/pkg/cleanup"
	"github.com/Sternrassler/workflow-cleanup/pkg/ratelimit"
	gh "github.com/google/go-github/v68/github"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var _ cleanup.Remote = (*Client)(nil)

// Client lists and deletes the workflow runs of one repository.
type Client struct {
	api    *gh.Client
	owner  string
	repo   string
	logger zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Owner and Repo select the repository.
	Owner string
	Repo  string

	// Token is passed through to the API as a bearer token.
	Token string

	// BaseURL overrides https://api.github.com/ (GitHub Enterprise, tests).
	BaseURL string

	// Timeout bounds every request. Zero means no timeout.
	Timeout time.Duration

	// Tracker receives rate limit headers. Optional.
	Tracker *ratelimit.Tracker

	// Transport is the underlying round tripper (default http.DefaultTransport).
	Transport http.RoundTripper
}

// New creates a new workflow run client.
func New(cfg Config) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, ErrInvalidRepository
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}

	logger := log.With().
		Str("component", "github-client").
		Str("owner", cfg.Owner).
		Str("repo", cfg.Repo).
		Logger()

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &instrumentedTransport{
			base:    base,
			tracker: cfg.Tracker,
			logger:  logger,
		},
	}

	client := gh.NewClient(httpClient).WithAuthToken(cfg.Token)

	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		client.BaseURL = u
	}

	return &Client{
		api:    client,
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		logger: logger,
	}, nil
}

// ListPage returns at most pageSize workflow runs created before the filter date.
func (c *Client) ListPage(ctx context.Context, filter cleanup.Filter, pageSize int) (cleanup.Page, error) {
	opts := &gh.ListWorkflowRunsOptions{
		Created:     filter.Query(),
		ListOptions: gh.ListOptions{PerPage: pageSize},
	}

	runs, resp, err := c.api.Actions.ListRepositoryWorkflowRuns(ctx, c.owner, c.repo, opts)
	if err != nil {
		return nil, newAPIError("list workflow runs", resp, err)
	}
	if runs == nil {
		return nil, cleanup.ErrInvalidPage
	}

	page := make(cleanup.Page, 0, len(runs.WorkflowRuns))
	for _, run := range runs.WorkflowRuns {
		if run == nil || run.ID == nil {
			c.logger.Warn().Msg("Skipping workflow run without ID")
			continue
		}
		page = append(page, cleanup.CandidateItem{
			ID:    run.GetID(),
			Label: runLabel(run),
		})
	}

	c.logger.Debug().
		Str("created", opts.Created).
		Int("per_page", pageSize).
		Int("returned", len(page)).
		Int("total_count", runs.GetTotalCount()).
		Msg("Listed workflow runs")

	return page, nil
}

// DeleteItem deletes one workflow run and returns the response status.
func (c *Client) DeleteItem(ctx context.Context, id int64) (int, error) {
	resp, err := c.api.Actions.DeleteWorkflowRun(ctx, c.owner, c.repo, id)
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	if err != nil {
		return status, newAPIError("delete workflow run", resp, err)
	}
	return status, nil
}

// runLabel picks the most descriptive name a run carries.
func runLabel(run *gh.WorkflowRun) string {
	if msg := run.GetHeadCommit().GetMessage(); msg != "" {
		return msg
	}
	if title := run.GetDisplayTitle(); title != "" {
		return title
	}
	return run.GetName()
}
