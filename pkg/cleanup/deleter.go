package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Deleter drains pages through fixed-width windows of concurrent deletes.
type Deleter struct {
	remote   Remote
	reporter Reporter
	width    int
	logger   zerolog.Logger
}

// NewDeleter creates a deleter with at most width deletes in flight.
func NewDeleter(remote Remote, reporter Reporter, width int, logger zerolog.Logger) *Deleter {
	if width <= 0 {
		width = DefaultWindowSize
	}
	return &Deleter{
		remote:   remote,
		reporter: reporter,
		width:    width,
		logger:   logger,
	}
}

// Drain issues exactly one delete per item of page, window by window.
// All deletes of a window settle before the window's outcomes are inspected;
// the first failed outcome (in page order) aborts the drain before the next
// window starts.
func (d *Deleter) Drain(ctx context.Context, page Page) error {
	for i, window := range Windows(page, d.width) {
		outcomes := d.settle(ctx, window)

		d.logger.Debug().
			Int("window", i).
			Int("size", len(window)).
			Msg("Window settled")

		for _, outcome := range outcomes {
			if !outcome.Deleted() {
				return outcome.Err
			}
		}
	}
	return nil
}

// settle runs one delete per window item concurrently and waits for all of
// them. Failures are recorded per item and never cancel siblings.
func (d *Deleter) settle(ctx context.Context, window Page) []Outcome {
	start := time.Now()
	defer func() {
		cleanupWindowDuration.Observe(time.Since(start).Seconds())
	}()

	outcomes := make([]Outcome, len(window))

	// A plain Group (no WithContext) so one failure leaves siblings running.
	var g errgroup.Group
	for i, item := range window {
		g.Go(func() error {
			outcomes[i] = d.deleteOne(ctx, item)
			return outcomes[i].Err
		})
	}
	_ = g.Wait() // outcomes carry every error, in window order

	return outcomes
}

// deleteOne deletes a single item and reports the result.
func (d *Deleter) deleteOne(ctx context.Context, item CandidateItem) Outcome {
	status, err := d.remote.DeleteItem(ctx, item.ID)
	if err == nil && status == StatusDeleted {
		cleanupDeletesTotal.WithLabelValues("deleted").Inc()
		d.reporter.Debug(fmt.Sprintf("Deleted workflow run %d.", item.ID))
		return Outcome{Item: item, Status: status}
	}

	cleanupDeletesTotal.WithLabelValues("failed").Inc()
	delErr := &DeleteError{Item: item, Status: status, Err: err}
	d.reporter.Error(delErr.Error())
	return Outcome{Item: item, Status: status, Err: delErr}
}
