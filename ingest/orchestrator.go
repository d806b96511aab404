package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sig-0/bnarates/storage"
	"github.com/sig-0/bnarates/storage/types"
)

const (
	// DefaultPacing is the pause between consecutive day requests of a range scrape
	DefaultPacing = 500 * time.Millisecond

	// MinPacing is the shortest pause a configured range scrape may use
	MinPacing = 500 * time.Millisecond

	// DefaultTimezone is where "yesterday" is computed
	DefaultTimezone = "America/Argentina/Buenos_Aires"
)

var (
	ErrAllSourcesFailed = errors.New("all sources failed")

	errInvalidRange = errors.New("invalid date range")
	errPanic        = errors.New("source panicked")
	errEmptyRecord  = errors.New("source returned no record")
)

// CurrentSource yields the latest published rate
type CurrentSource interface {
	Fetch(ctx context.Context) (*types.RateRecord, error)
}

// HistoricalSource yields the rate published for a given date
type HistoricalSource interface {
	FetchDate(ctx context.Context, date time.Time) (*types.RateRecord, error)
}

// RangeResult is the outcome of a best-effort range scrape
type RangeResult struct {
	Records []*types.RateRecord // successful days, in date order
	Missed  []string            // failed days, YYYY-MM-DD
}

// Orchestrator composes the sources: the current value page first,
// with the historical lookup as fallback and for date ranges
type Orchestrator struct {
	current    CurrentSource
	historical HistoricalSource
	logger     *slog.Logger

	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	location *time.Location

	pacing time.Duration
}

// NewOrchestrator creates a new scrape Orchestrator instance
func NewOrchestrator(
	current CurrentSource,
	historical HistoricalSource,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		current:    current,
		historical: historical,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
		sleep:      sleepContext,
		location:   defaultLocation(),
		pacing:     DefaultPacing,
	}

	// Apply the options
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Yesterday returns yesterday's calendar date in the orchestrator's timezone
func (o *Orchestrator) Yesterday() time.Time {
	y := o.now().In(o.location).AddDate(0, 0, -1)

	return civilDate(y)
}

// ScrapeYesterday scrapes the current value page. On failure, and if fallback
// is set, the historical page is queried once for yesterday.
// The current page's record keeps whatever date the page reports
func (o *Orchestrator) ScrapeYesterday(ctx context.Context, fallback bool) (*types.RateRecord, error) {
	yesterday := o.Yesterday()

	o.logger.Info(
		"scraping yesterday's rate",
		"date", types.FormatDate(yesterday),
		"fallback", fallback,
	)

	record, currentErr := o.current.Fetch(ctx)
	if currentErr == nil && record == nil {
		currentErr = errEmptyRecord
	}

	if currentErr == nil {
		return record, nil
	}

	o.logger.Warn(
		"current value source failed",
		"err", currentErr,
	)

	if !fallback || ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, currentErr)
	}

	o.logger.Info(
		"falling back to historical source",
		"date", types.FormatDate(yesterday),
	)

	record, historicalErr := o.historical.FetchDate(ctx, yesterday)
	if historicalErr == nil && record == nil {
		historicalErr = errEmptyRecord
	}

	if historicalErr == nil {
		return record, nil
	}

	o.logger.Error(
		"every source failed",
		"date", types.FormatDate(yesterday),
		"err", historicalErr,
	)

	return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(currentErr, historicalErr))
}

// ScrapeRange scrapes every calendar day in [start, end] from the historical page,
// in ascending order, pausing between consecutive requests.
// Per-day failures are logged and skipped. A cancelled context stops the loop,
// returning what was collected along with the context error
func (o *Orchestrator) ScrapeRange(ctx context.Context, start, end time.Time) (*RangeResult, error) {
	start, end = civilDate(start), civilDate(end)

	if start.After(end) {
		return nil, fmt.Errorf(
			"%w: start %s is after end %s",
			errInvalidRange,
			types.FormatDate(start),
			types.FormatDate(end),
		)
	}

	o.logger.Info(
		"scraping date range",
		"start", types.FormatDate(start),
		"end", types.FormatDate(end),
	)

	result := &RangeResult{}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if day.After(start) {
			if err := o.sleep(ctx, o.pacing); err != nil {
				return result, err
			}
		}

		date := types.FormatDate(day)

		record, err := o.fetchDay(ctx, day)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}

			o.logger.Warn(
				"unable to scrape day",
				"date", date,
				"err", err,
			)

			result.Missed = append(result.Missed, date)

			continue
		}

		result.Records = append(result.Records, record)
	}

	o.logger.Info(
		"date range scraped",
		"succeeded", len(result.Records),
		"missed", len(result.Missed),
	)

	return result, nil
}

// fetchDay queries the historical source, turning a panic into an error
func (o *Orchestrator) fetchDay(ctx context.Context, day time.Time) (record *types.RateRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			record = nil
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	record, err = o.historical.FetchDate(ctx, day)
	if err == nil && record == nil {
		err = errEmptyRecord
	}

	return record, err
}

// Save upserts the records into the storage, returning how many were accepted.
// Rejected records are logged and skipped
func (o *Orchestrator) Save(ctx context.Context, s storage.Storage, records []*types.RateRecord) int {
	saved := 0

	for _, record := range records {
		if err := s.Upsert(ctx, record); err != nil {
			o.logger.Error(
				"unable to save rate",
				"date", record.Date,
				"source", record.Source,
				"rate", record.RateSell,
				"err", err,
			)

			continue
		}

		o.logger.Info(
			"saved rate",
			"date", record.Date,
			"source", record.Source,
			"rate", record.RateSell,
		)

		saved++
	}

	return saved
}

// civilDate drops the clock and zone, keeping the calendar date
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func defaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		// Argentina keeps UTC-3 all year
		return time.FixedZone("ART", -3*60*60)
	}

	return loc
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
