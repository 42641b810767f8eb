package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func rateLimitHeaders(limit, remaining int, reset time.Time, resource string) http.Header {
	h := http.Header{}
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
	if resource != "" {
		h.Set("X-RateLimit-Resource", resource)
	}
	return h
}

func TestTracker_DefaultState(t *testing.T) {
	tracker := NewTracker(nil, zerolog.Nop())

	state, err := tracker.GetState(context.Background(), "")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Resource != DefaultResource {
		t.Errorf("Resource = %q, want %q", state.Resource, DefaultResource)
	}
	if !state.IsHealthy {
		t.Error("Default state should be healthy")
	}
}

func TestTracker_UpdateFromHeaders(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute).Truncate(time.Second)

	tests := []struct {
		name            string
		headers         http.Header
		resource        string
		expectedRemain  int
		expectedHealthy bool
	}{
		{
			name:            "healthy core",
			headers:         rateLimitHeaders(5000, 4990, reset, "core"),
			resource:        "core",
			expectedRemain:  4990,
			expectedHealthy: true,
		},
		{
			name:            "low quota",
			headers:         rateLimitHeaders(1000, 120, reset, "core"),
			resource:        "core",
			expectedRemain:  120,
			expectedHealthy: false,
		},
		{
			name:            "critical quota",
			headers:         rateLimitHeaders(1000, 3, reset, "core"),
			resource:        "core",
			expectedRemain:  3,
			expectedHealthy: false,
		},
		{
			name:            "missing resource header",
			headers:         rateLimitHeaders(5000, 4000, reset, ""),
			resource:        DefaultResource,
			expectedRemain:  4000,
			expectedHealthy: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(nil, zerolog.Nop())
			ctx := context.Background()

			if err := tracker.UpdateFromHeaders(ctx, tt.headers); err != nil {
				t.Fatalf("UpdateFromHeaders() error = %v", err)
			}

			state, err := tracker.GetState(ctx, tt.resource)
			if err != nil {
				t.Fatalf("GetState() error = %v", err)
			}
			if state.Remaining != tt.expectedRemain {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.expectedRemain)
			}
			if state.IsHealthy != tt.expectedHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.expectedHealthy)
			}
			if !state.ResetAt.Equal(reset) {
				t.Errorf("ResetAt = %v, want %v", state.ResetAt, reset)
			}
		})
	}
}

func TestTracker_UpdateFromHeaders_Errors(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		wantErr bool
	}{
		{
			name:    "no headers is ignored",
			headers: map[string]string{},
			wantErr: false,
		},
		{
			name:    "invalid remaining",
			headers: map[string]string{"X-RateLimit-Remaining": "many", "X-RateLimit-Limit": "5000", "X-RateLimit-Reset": "1700000000"},
			wantErr: true,
		},
		{
			name:    "missing limit",
			headers: map[string]string{"X-RateLimit-Remaining": "10", "X-RateLimit-Reset": "1700000000"},
			wantErr: true,
		},
		{
			name:    "missing reset",
			headers: map[string]string{"X-RateLimit-Remaining": "10", "X-RateLimit-Limit": "5000"},
			wantErr: true,
		},
		{
			name:    "invalid reset",
			headers: map[string]string{"X-RateLimit-Remaining": "10", "X-RateLimit-Limit": "5000", "X-RateLimit-Reset": "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}

			err := NewTracker(nil, zerolog.Nop()).UpdateFromHeaders(context.Background(), h)
			if (err != nil) != tt.wantErr {
				t.Errorf("UpdateFromHeaders() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTracker_ResourcesAreIndependent(t *testing.T) {
	tracker := NewTracker(nil, zerolog.Nop())
	ctx := context.Background()
	reset := time.Now().Add(time.Hour)

	if err := tracker.UpdateFromHeaders(ctx, rateLimitHeaders(5000, 100, reset, "core")); err != nil {
		t.Fatal(err)
	}
	if err := tracker.UpdateFromHeaders(ctx, rateLimitHeaders(30, 29, reset, "search")); err != nil {
		t.Fatal(err)
	}

	core, _ := tracker.GetState(ctx, "core")
	search, _ := tracker.GetState(ctx, "search")
	if core.Remaining != 100 || search.Remaining != 29 {
		t.Errorf("core=%d search=%d, want 100 and 29", core.Remaining, search.Remaining)
	}
}

func TestExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		resetAt  time.Time
		expected time.Time
	}{
		{"future reset", now.Add(30 * time.Minute), now.Add(30 * time.Minute)},
		{"reset already passed", now.Add(-10 * time.Second), now.Add(MinStateTTL)},
		{"zero reset", time.Time{}, now.Add(MinStateTTL)},
		{"reset inside floor", now.Add(5 * time.Second), now.Add(MinStateTTL)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expiry(tt.resetAt, now); !got.Equal(tt.expected) {
				t.Errorf("expiry() = %v, want %v", got, tt.expected)
			}
		})
	}
}
