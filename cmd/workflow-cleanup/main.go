package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/workflow-cleanup/pkg/cleanup"
	"github.com/Sternrassler/workflow-cleanup/pkg/config"
	"github.com/Sternrassler/workflow-cleanup/pkg/github"
	"github.com/Sternrassler/workflow-cleanup/pkg/logging"
	"github.com/Sternrassler/workflow-cleanup/pkg/metrics"
	"github.com/Sternrassler/workflow-cleanup/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// source is attached to the final notice.
const source = "cmd/workflow-cleanup/main.go"

// rateLimitMaxAge hides quota state left in Redis by an earlier run.
const rateLimitMaxAge = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup(logging.DefaultConfig())
		log.Error().Err(err).Msg("Configuration error")
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	// Interrupts stop the run between requests; no per-request deadline is
	// set unless REQUEST_TIMEOUT is configured.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var commands io.Writer
	if cfg.GitHubActions {
		commands = os.Stdout
	}

	_, err = run(ctx, cfg, commands)

	if cfg.PushgatewayURL != "" {
		if pushErr := metrics.Push(context.Background(), cfg.PushgatewayURL, "workflow_cleanup", cfg.Owner+"/"+cfg.Repo); pushErr != nil {
			log.Warn().Err(pushErr).Msg("Failed to push metrics")
		}
	}

	if err != nil {
		log.Error().Err(err).Msg("Cleanup failed")
		os.Exit(1)
	}
}

// run wires the collaborators and executes one cleanup run.
func run(ctx context.Context, cfg config.Config, commands io.Writer) (cleanup.Result, error) {
	logger := logging.NewLogger("workflow-cleanup")

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return cleanup.Result{}, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return cleanup.Result{}, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	}

	tracker := ratelimit.NewTracker(redisClient, logging.NewLogger("ratelimit"))

	client, err := github.New(github.Config{
		Owner:   cfg.Owner,
		Repo:    cfg.Repo,
		Token:   cfg.Token,
		BaseURL: cfg.APIURL,
		Timeout: cfg.RequestTimeout,
		Tracker: tracker,
	})
	if err != nil {
		return cleanup.Result{}, fmt.Errorf("create github client: %w", err)
	}

	reporter := logging.NewReporter(logger, commands)
	ctrl := cleanup.NewController(client, reporter, cfg.Cleanup(source))

	logger.Info().
		Str("owner", cfg.Owner).
		Str("repo", cfg.Repo).
		Str("before", cfg.BeforeDate).
		Int("batch_size", cfg.BatchSize).
		Int("batch_limit", cfg.Ceiling).
		Int("window_size", cfg.WindowSize).
		Msg("Starting workflow run cleanup")

	result, runErr := ctrl.Run(ctx, cleanup.Filter{CreatedBefore: cfg.BeforeDate})

	if state, err := tracker.GetState(ctx, ratelimit.DefaultResource); err == nil && !state.IsStale(rateLimitMaxAge) {
		logger.Info().
			Int("remaining", state.Remaining).
			Int("limit", state.Limit).
			Time("reset_at", state.ResetAt).
			Msg("GitHub rate limit after cleanup")
	}

	return result, runErr
}
