package ingest

import (
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

// WithQueryInterval specifies query interval for the orchestrator's jobs.
// Defaults to 1s.
// This should only be modified if the registered jobs with the orchestrator
// have sparse runs (once every hour / 24hrs)
func WithQueryInterval(q time.Duration) Option {
	return func(o *Orchestrator) {
		o.queryInterval = q
	}
}

// WithRetryDelay specifies the delay before a failed job is retried.
// Defaults to 10s
func WithRetryDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.retryDelay = d
	}
}

// WithImmediateRun makes registered jobs run on registration,
// instead of at their first scheduled time
func WithImmediateRun() Option {
	return func(o *Orchestrator) {
		o.immediate = true
	}
}

// WithRunTimeout bounds the duration of a single job run.
// Defaults to 30m, 0 disables the limit
func WithRunTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.runTimeout = d
	}
}
