package reference

import (
	"log/slog"
	"net/http"
	"time"
)

type Option func(b *BCV)

// WithLogger specifies the logger for the scraper
func WithLogger(l *slog.Logger) Option {
	return func(b *BCV) {
		b.logger = l
	}
}

// WithURL overrides the BCV website URL
func WithURL(url string) Option {
	return func(b *BCV) {
		b.url = url
	}
}

// WithTimeout specifies the request timeout.
// Defaults to 30s
func WithTimeout(timeout time.Duration) Option {
	return func(b *BCV) {
		b.client.Timeout = timeout
	}
}

// WithHTTPClient specifies the underlying HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(b *BCV) {
		b.client = client
	}
}
