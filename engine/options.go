package engine

import (
	"log/slog"
	"time"
)

type Option func(e *Engine)

// WithLogger specifies the logger for the engine
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithTables specifies the business tables.
// Defaults to DefaultTables
func WithTables(t *Tables) Option {
	return func(e *Engine) {
		e.tables = t
	}
}

// WithMetrics specifies the run metrics.
// Defaults to unregistered metrics
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithConcurrency specifies the number of markets of one side
// processed at the same time. Defaults to 1
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = max(n, 1)
	}
}

// WithClock specifies the source of the run timestamps.
// Defaults to Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithPageRows specifies the order book page size
func WithPageRows(rows int) Option {
	return func(e *Engine) {
		e.rows = rows
	}
}
