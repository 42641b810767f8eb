package cleanup

import (
	"context"
	"fmt"
	"net/http"
)

// Defaults mirror the limits the maintenance job has always run with.
const (
	DefaultBatchSize  = 50
	DefaultCeiling    = 400
	DefaultWindowSize = 2

	// StatusDeleted is the only status the remote returns for a successful delete.
	StatusDeleted = http.StatusNoContent
)

// CandidateItem identifies one deletable remote record.
type CandidateItem struct {
	// ID is the stable remote identifier.
	ID int64

	// Label is a human-readable descriptor used in failure messages.
	// It may be empty.
	Label string
}

// DisplayLabel returns the label, falling back to the ID when none was fetched.
func (c CandidateItem) DisplayLabel() string {
	if c.Label == "" {
		return fmt.Sprintf("run %d", c.ID)
	}
	return c.Label
}

// Page is one bounded listing result. An empty page ends pagination.
type Page []CandidateItem

// Filter is the predicate applied identically to every page request.
type Filter struct {
	// CreatedBefore is an opaque date-comparable string, used verbatim.
	CreatedBefore string
}

// Query renders the filter as the remote's created-date expression.
func (f Filter) Query() string {
	return "<" + f.CreatedBefore
}

// Outcome is the settled result of a single delete attempt.
type Outcome struct {
	Item   CandidateItem
	Status int
	Err    error
}

// Deleted reports whether the item was removed.
func (o Outcome) Deleted() bool {
	return o.Err == nil
}

// Result summarizes a finished (or aborted) run.
type Result struct {
	// Processed counts items submitted for deletion at the last completed
	// page boundary.
	Processed int

	// Pages counts listing requests issued.
	Pages int

	// CeilingReached is true when the run stopped because of the ceiling.
	CeilingReached bool
}

// Remote is the listing/delete capability the controller drives.
type Remote interface {
	// ListPage returns at most pageSize candidates matching filter. A
	// successful call returns a non-nil page, empty when nothing matches.
	ListPage(ctx context.Context, filter Filter, pageSize int) (Page, error)

	// DeleteItem deletes one record and returns the observed status code.
	DeleteItem(ctx context.Context, id int64) (int, error)
}

// Reporter receives progress messages at the levels the maintenance job
// exposes to its operators.
type Reporter interface {
	Debug(msg string)
	Info(msg string)
	Notice(msg, source string)
	Warning(msg string)
	Error(msg string)
}

// Config holds controller configuration.
type Config struct {
	// BatchSize is the page size requested from the remote.
	BatchSize int

	// Ceiling is the hard maximum of items processed in one run.
	Ceiling int

	// WindowSize is the maximum number of deletes in flight.
	WindowSize int

	// Source is attached to the final notice for attribution.
	Source string
}

// DefaultConfig returns the standard limits.
func DefaultConfig() Config {
	return Config{
		BatchSize:  DefaultBatchSize,
		Ceiling:    DefaultCeiling,
		WindowSize: DefaultWindowSize,
		Source:     "cmd/workflow-cleanup/main.go",
	}
}

// Validate checks the configured limits.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be > 0 (got %d)", ErrInvalidConfig, c.BatchSize)
	}
	if c.Ceiling < 0 {
		return fmt.Errorf("%w: ceiling must be >= 0 (got %d)", ErrInvalidConfig, c.Ceiling)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window size must be > 0 (got %d)", ErrInvalidConfig, c.WindowSize)
	}
	return nil
}
