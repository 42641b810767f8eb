package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Controller drives pagination, enforces the per-run ceiling and hands each
// page to the Deleter.
type Controller struct {
	remote   Remote
	reporter Reporter
	deleter  *Deleter
	config   Config
	logger   zerolog.Logger
}

// NewController creates a controller. The limits are checked by Run.
func NewController(remote Remote, reporter Reporter, config Config) *Controller {
	logger := log.With().Str("component", "cleanup").Logger()

	return &Controller{
		remote:   remote,
		reporter: reporter,
		deleter:  NewDeleter(remote, reporter, config.WindowSize, logger),
		config:   config,
		logger:   logger,
	}
}

// Run deletes candidates matching filter until a page comes back empty or
// the ceiling is reached. On error, the returned Result holds the progress
// at the last completed page boundary.
func (c *Controller) Run(ctx context.Context, filter Filter) (Result, error) {
	start := time.Now()
	var result Result

	if err := c.config.Validate(); err != nil {
		return result, err
	}

	page, err := c.nextPage(ctx, filter, &result, "initial")
	if err != nil {
		return result, err
	}

	for len(page) > 0 {
		if result.Processed+len(page) >= c.config.Ceiling {
			remainder := c.config.Ceiling - result.Processed
			if remainder > 0 {
				if err := c.deleter.Drain(ctx, page[:remainder]); err != nil {
					return result, fmt.Errorf("drain final page: %w", err)
				}
			}
			result.Processed += remainder
			result.CeilingReached = true
			cleanupProcessed.Set(float64(result.Processed))
			cleanupCeilingHitsTotal.Inc()

			c.reporter.Notice(fmt.Sprintf("Processed %d total workflow runs.", result.Processed), c.config.Source)
			c.reporter.Warning(fmt.Sprintf("We currently limit batch cleanup to %d at a time - and we've hit it.", c.config.Ceiling))
			c.logDone(result, start)
			return result, nil
		}

		if err := c.deleter.Drain(ctx, page); err != nil {
			return result, fmt.Errorf("drain page %d: %w", result.Pages, err)
		}
		result.Processed += len(page)
		cleanupProcessed.Set(float64(result.Processed))

		page, err = c.nextPage(ctx, filter, &result, "more")
		if err != nil {
			return result, err
		}
	}

	c.reporter.Notice(fmt.Sprintf("Processed %d total workflow runs.", result.Processed), c.config.Source)
	c.logDone(result, start)
	return result, nil
}

// nextPage issues one listing request with the unchanged filter.
func (c *Controller) nextPage(ctx context.Context, filter Filter, result *Result, which string) (Page, error) {
	c.reporter.Info(fmt.Sprintf("Requesting %d %s workflow runs.", c.config.BatchSize, which))

	page, err := c.remote.ListPage(ctx, filter, c.config.BatchSize)
	result.Pages++
	cleanupPagesTotal.Inc()
	if err != nil {
		return nil, fmt.Errorf("list page %d: %w", result.Pages, err)
	}
	if page == nil {
		return nil, fmt.Errorf("list page %d: %w", result.Pages, ErrInvalidPage)
	}
	if len(page) > c.config.BatchSize {
		c.logger.Warn().
			Int("returned", len(page)).
			Int("batch_size", c.config.BatchSize).
			Msg("Remote returned more runs than requested, truncating page")
		page = page[:c.config.BatchSize]
	}

	c.reporter.Info(fmt.Sprintf("Found %d %s workflow runs.", len(page), which))
	return page, nil
}

func (c *Controller) logDone(result Result, start time.Time) {
	c.logger.Info().
		Int("processed", result.Processed).
		Int("pages", result.Pages).
		Bool("ceiling_reached", result.CeilingReached).
		Dur("duration", time.Since(start)).
		Msg("Cleanup complete")
}
