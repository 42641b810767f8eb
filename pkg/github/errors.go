package github

import (
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v68/github"
)

// Common errors returned by the client.
var (
	// ErrInvalidRepository is returned when owner or repo is missing.
	ErrInvalidRepository = errors.New("repository must be in the format {owner}/{repo}")
)

// ErrorClass represents a classification of GitHub API errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents primary and secondary rate limit errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError represents a GitHub API error with additional context.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("GitHub %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("GitHub %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// newAPIError wraps an error returned by go-github.
func newAPIError(op string, resp *gh.Response, err error) *APIError {
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	return &APIError{
		StatusCode: status,
		ErrorClass: classifyError(status, err),
		Message:    op,
		Err:        err,
	}
}

// classifyError categorizes an error for observability.
func classifyError(status int, err error) ErrorClass {
	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return ErrorClassRateLimit
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status == 0:
		return ErrorClassNetwork
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
