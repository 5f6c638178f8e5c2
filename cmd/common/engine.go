package common

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sig-0/p2prates/engine"
	"github.com/sig-0/p2prates/p2p"
	"github.com/sig-0/p2prates/storage"
)

// NewEngine wires the engine on top of the live P2P client
func NewEngine(
	s storage.Storage,
	tables *engine.Tables,
	concurrency int,
	logger *slog.Logger,
	reg prometheus.Registerer,
) *engine.Engine {
	client := p2p.NewClient(
		p2p.WithLogger(logger.With("module", "p2p")),
	)

	return engine.New(
		client,
		s,
		engine.WithLogger(logger.With("module", "engine")),
		engine.WithTables(tables),
		engine.WithMetrics(engine.NewMetrics(reg)),
		engine.WithConcurrency(concurrency),
	)
}
