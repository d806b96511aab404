package ingest

import (
	"context"
	"log/slog"
	"time"
)

type Option func(o *Orchestrator)

// WithLogger specifies the logger for the orchestrator
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithPacing specifies the pause between consecutive day requests
// of a range scrape. Defaults to 500ms
func WithPacing(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.pacing = d
	}
}

// WithClock overrides the wall clock used to compute "yesterday"
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithLocation specifies the timezone "yesterday" is computed in
func WithLocation(loc *time.Location) Option {
	return func(o *Orchestrator) {
		o.location = loc
	}
}

// WithSleep overrides how the orchestrator pauses between range requests
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

type SchedulerOption func(s *Scheduler)

// WithSchedulerLogger specifies the logger for the scheduler
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithQueryInterval specifies query interval for the scheduler's jobs.
// Defaults to 1s.
// This should only be modified if the registered providers with the scheduler
// have sparse runs (once every hour / 24hrs)
func WithQueryInterval(q time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.queryInterval = q
	}
}

// WithRetryDelay specifies how soon a failed provider job is retried.
// Defaults to 1m
func WithRetryDelay(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.retryDelay = d
	}
}
