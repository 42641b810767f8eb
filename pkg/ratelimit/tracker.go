package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	githubRateLimitRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "github_rate_limit_remaining",
		Help: "Requests remaining in the current GitHub rate limit window",
	}, []string{"resource"})

	githubRateLimitLimit = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "github_rate_limit_limit",
		Help: "Size of the current GitHub rate limit window",
	}, []string{"resource"})

	githubRateLimitLowTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_rate_limit_low_total",
		Help: "Responses observed with a low or critical remaining quota",
	}, []string{"resource", "severity"})
)

// Tracker records the GitHub rate limit quota observed on responses.
// With a Redis client the state is shared between jobs using the same
// token; without one it is kept in memory.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	mu    sync.RWMutex
	local map[string]State
}

// NewTracker creates a new rate limit tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		local:  make(map[string]State),
	}
}

// GetState returns the last observed state for resource.
// Returns a default healthy state if nothing was observed yet.
func (t *Tracker) GetState(ctx context.Context, resource string) (*State, error) {
	if resource == "" {
		resource = DefaultResource
	}

	if t.redis == nil {
		t.mu.RLock()
		state, ok := t.local[resource]
		t.mu.RUnlock()
		if !ok {
			return defaultState(resource), nil
		}
		return &state, nil
	}

	fields, err := t.redis.HGetAll(ctx, RedisKeyPrefix+resource).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}
	if len(fields) == 0 {
		t.logger.Debug().Str("resource", resource).Msg("No rate limit state in Redis, returning default healthy state")
		return defaultState(resource), nil
	}

	state := &State{Resource: resource}
	if state.Limit, err = strconv.Atoi(fields[fieldLimit]); err != nil {
		return nil, fmt.Errorf("parse limit: %w", err)
	}
	if state.Remaining, err = strconv.Atoi(fields[fieldRemaining]); err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	reset, err := strconv.ParseInt(fields[fieldReset], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse reset: %w", err)
	}
	state.ResetAt = time.Unix(reset, 0)
	if state.LastUpdate, err = time.Parse(time.RFC3339Nano, fields[fieldLastUpdate]); err != nil {
		return nil, fmt.Errorf("parse last update: %w", err)
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders parses GitHub rate limit headers and stores the state.
// Responses without rate limit headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get("X-RateLimit-Remaining")
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
	}

	limitStr := headers.Get("X-RateLimit-Limit")
	if limitStr == "" {
		return fmt.Errorf("X-RateLimit-Limit header missing")
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Limit header: %w", err)
	}

	resetStr := headers.Get("X-RateLimit-Reset")
	if resetStr == "" {
		return fmt.Errorf("X-RateLimit-Reset header missing")
	}
	reset, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
	}

	resource := headers.Get("X-RateLimit-Resource")
	if resource == "" {
		resource = DefaultResource
	}

	state := State{
		Resource:   resource,
		Limit:      limit,
		Remaining:  remain,
		ResetAt:    time.Unix(reset, 0),
		LastUpdate: time.Now(),
	}
	state.UpdateHealth()

	if err := t.store(ctx, state); err != nil {
		return err
	}

	githubRateLimitRemaining.WithLabelValues(resource).Set(float64(remain))
	githubRateLimitLimit.WithLabelValues(resource).Set(float64(limit))

	switch {
	case state.IsCritical():
		githubRateLimitLowTotal.WithLabelValues(resource, "critical").Inc()
		t.logger.Error().
			Str("resource", resource).
			Int("remaining", remain).
			Dur("reset_in", state.TimeUntilReset()).
			Msg("GitHub rate limit nearly exhausted")
	case state.IsLow():
		githubRateLimitLowTotal.WithLabelValues(resource, "warning").Inc()
		t.logger.Warn().
			Str("resource", resource).
			Int("remaining", remain).
			Msg("GitHub rate limit running low")
	default:
		t.logger.Debug().
			Str("resource", resource).
			Int("remaining", remain).
			Bool("is_healthy", state.IsHealthy).
			Msg("GitHub rate limit state updated")
	}

	return nil
}

func (t *Tracker) store(ctx context.Context, state State) error {
	if t.redis == nil {
		t.mu.Lock()
		t.local[state.Resource] = state
		t.mu.Unlock()
		return nil
	}

	key := RedisKeyPrefix + state.Resource
	pipe := t.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		fieldLimit:      state.Limit,
		fieldRemaining:  state.Remaining,
		fieldReset:      state.ResetAt.Unix(),
		fieldLastUpdate: state.LastUpdate.Format(time.RFC3339Nano),
	})
	pipe.ExpireAt(ctx, key, expiry(state.ResetAt, time.Now()))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

func defaultState(resource string) *State {
	return &State{
		Resource:   resource,
		Limit:      0,
		Remaining:  0,
		ResetAt:    time.Now().Add(time.Hour),
		LastUpdate: time.Now(),
		IsHealthy:  true,
	}
}

// expiry returns when a stored state should vanish. A reset time that has
// already passed would delete the key on write, so it is pushed out to
// MinStateTTL from now.
func expiry(resetAt, now time.Time) time.Time {
	if floor := now.Add(MinStateTTL); resetAt.Before(floor) {
		return floor
	}
	return resetAt
}
