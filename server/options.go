package server

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sig-0/p2prates/server/config"
)

type Option func(s *Server)

// WithLogger specifies the logger for the server
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithConfig specifies the config for the server
func WithConfig(c *config.Config) Option {
	return func(s *Server) {
		s.config = c
	}
}

// WithGatherer specifies the metrics source exposed on /metrics.
// Defaults to the prometheus default gatherer
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}
