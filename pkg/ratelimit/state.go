// Package ratelimit tracks the GitHub API rate limit quota observed on
// responses. It monitors the X-RateLimit-* headers so operators can see how
// much of a token's budget a cleanup run consumed. It never delays requests.
package ratelimit

import (
	"time"
)

// Redis key prefix for rate limit state storage. The resource name
// (core, search, ...) is appended.
const RedisKeyPrefix = "workflow_cleanup:rate_limit:"

// Field names inside the per-resource Redis hash.
const (
	fieldLimit      = "limit"
	fieldRemaining  = "remaining"
	fieldReset      = "reset"
	fieldLastUpdate = "last_update"
)

// DefaultResource is assumed when the response carries no X-RateLimit-Resource.
const DefaultResource = "core"

// MinStateTTL keeps a stored state around when its reset time has passed.
const MinStateTTL = time.Minute

// Thresholds as a fraction of the quota limit.
const (
	// ThresholdCritical marks the quota as nearly exhausted.
	ThresholdCritical = 0.05

	// ThresholdWarning marks the quota as running low.
	ThresholdWarning = 0.20

	// ThresholdHealthy indicates normal operation.
	ThresholdHealthy = 0.50
)

// State represents the current quota for one rate limit resource.
type State struct {
	// Resource is the GitHub rate limit bucket, from X-RateLimit-Resource.
	Resource string `json:"resource"`

	// Limit is the quota size, from X-RateLimit-Limit.
	Limit int `json:"limit"`

	// Remaining is the number of requests left, from X-RateLimit-Remaining.
	Remaining int `json:"remaining"`

	// ResetAt is when the quota window resets, from X-RateLimit-Reset.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last observed.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when at least ThresholdHealthy of the quota remains.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// fraction returns the remaining share of the quota.
func (s *State) fraction() float64 {
	if s.Limit <= 0 {
		return 1
	}
	return float64(s.Remaining) / float64(s.Limit)
}

// IsCritical returns true if the quota is nearly exhausted.
func (s *State) IsCritical() bool {
	return s.fraction() < ThresholdCritical
}

// IsLow returns true if the quota is below the warning threshold but not critical.
func (s *State) IsLow() bool {
	return s.fraction() < ThresholdWarning && !s.IsCritical()
}

// TimeUntilReset returns the duration until the quota resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on the remaining share.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.fraction() >= ThresholdHealthy
}
