package p2p

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

type Option func(c *Client)

// WithLogger specifies the logger for the client
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithURL overrides the order book search endpoint
func WithURL(url string) Option {
	return func(c *Client) {
		c.url = url
	}
}

// WithTimeout specifies the per-request timeout.
// Defaults to 20s
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

// WithHTTPClient specifies the underlying HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithRateLimit specifies the request pacing.
// Defaults to one request every 200ms
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

type CollectorOption func(c *Collector)

// WithCollectorLogger specifies the logger for the collector
func WithCollectorLogger(l *slog.Logger) CollectorOption {
	return func(c *Collector) {
		c.logger = l
	}
}

// WithRows specifies the page size used by the collector.
// Defaults to 20
func WithRows(rows int) CollectorOption {
	return func(c *Collector) {
		c.rows = rows
	}
}
