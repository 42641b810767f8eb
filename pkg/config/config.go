// Package config resolves cleanup settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/workflow-cleanup/pkg/cleanup"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// MaxBatchSize is the largest page GitHub serves.
const MaxBatchSize = 100

// Config holds the resolved settings of one cleanup run.
type Config struct {
	// Repository target, split from REPOSITORY ("{owner}/{repo}").
	Owner string
	Repo  string

	// BeforeDate is used verbatim in the "<{date}" created filter.
	BeforeDate string

	// Token authenticates against the GitHub API.
	Token string

	// Limits
	BatchSize  int
	Ceiling    int
	WindowSize int

	// APIURL overrides the GitHub API base URL.
	APIURL string

	// RequestTimeout bounds every API request. Zero means none.
	RequestTimeout time.Duration

	// Optional infrastructure
	RedisURL       string
	PushgatewayURL string

	// Logging
	LogLevel  string
	LogPretty bool

	// GitHubActions enables workflow command output.
	GitHubActions bool
}

// Load reads the configuration from environment variables. Inputs of a
// GitHub Action (INPUT_*) are accepted as fallbacks for the required keys.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	_ = v.BindEnv("repository", "REPOSITORY", "INPUT_REPOSITORY")
	_ = v.BindEnv("before_date", "BEFORE_DATE", "INPUT_BEFORE_DATE")
	_ = v.BindEnv("github_token", "GITHUB_TOKEN", "INPUT_GITHUB_TOKEN")

	v.SetDefault("batch_size", strconv.Itoa(cleanup.DefaultBatchSize))
	v.SetDefault("batch_limit", strconv.Itoa(cleanup.DefaultCeiling))
	v.SetDefault("window_size", strconv.Itoa(cleanup.DefaultWindowSize))
	v.SetDefault("request_timeout", "0s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("github_actions", false)

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	owner, repo, err := ParseRepository(v.GetString("repository"))
	if err != nil {
		return Config{}, err
	}

	beforeDate := strings.TrimSpace(v.GetString("before_date"))
	if beforeDate == "" {
		return Config{}, fmt.Errorf("%w: the before date input parameter '%s' is invalid", ErrInvalidConfig, v.GetString("before_date"))
	}

	token := v.GetString("github_token")
	if token == "" {
		return Config{}, fmt.Errorf("%w: GITHUB_TOKEN is required", ErrInvalidConfig)
	}

	cfg := Config{
		Owner:          owner,
		Repo:           repo,
		BeforeDate:     beforeDate,
		Token:          token,
		APIURL:         v.GetString("github_api_url"),
		RedisURL:       v.GetString("redis_url"),
		PushgatewayURL: v.GetString("pushgateway_url"),
		LogLevel:       v.GetString("log_level"),
		LogPretty:      v.GetBool("log_pretty"),
		GitHubActions:  v.GetBool("github_actions"),
	}

	if cfg.BatchSize, err = intSetting(v, "batch_size"); err != nil {
		return Config{}, err
	}
	if cfg.Ceiling, err = intSetting(v, "batch_limit"); err != nil {
		return Config{}, err
	}
	if cfg.WindowSize, err = intSetting(v, "window_size"); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = time.ParseDuration(v.GetString("request_timeout")); err != nil {
		return Config{}, fmt.Errorf("%w: REQUEST_TIMEOUT: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks limits and required fields.
func (c Config) Validate() error {
	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		return fmt.Errorf("%w: BATCH_SIZE must be between 1 and %d (got %d)", ErrInvalidConfig, MaxBatchSize, c.BatchSize)
	}
	if c.Ceiling < 0 {
		return fmt.Errorf("%w: BATCH_LIMIT must be >= 0 (got %d)", ErrInvalidConfig, c.Ceiling)
	}
	if c.WindowSize < 1 {
		return fmt.Errorf("%w: WINDOW_SIZE must be >= 1 (got %d)", ErrInvalidConfig, c.WindowSize)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%w: REQUEST_TIMEOUT must be >= 0 (got %s)", ErrInvalidConfig, c.RequestTimeout)
	}
	return nil
}

// Cleanup returns the controller configuration.
func (c Config) Cleanup(source string) cleanup.Config {
	return cleanup.Config{
		BatchSize:  c.BatchSize,
		Ceiling:    c.Ceiling,
		WindowSize: c.WindowSize,
		Source:     source,
	}
}

// ParseRepository splits "{owner}/{repo}" into exactly two non-empty parts.
func ParseRepository(repository string) (owner, repo string, err error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: the repository input parameter '%s' is not in the format {owner}/{repo}", ErrInvalidConfig, repository)
	}
	return parts[0], parts[1], nil
}

func intSetting(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer (got %q)", ErrInvalidConfig, strings.ToUpper(key), raw)
	}
	return n, nil
}
