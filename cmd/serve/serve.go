package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/sig-0/p2prates/bot"
	"github.com/sig-0/p2prates/cmd/common"
	"github.com/sig-0/p2prates/cmd/env"
	"github.com/sig-0/p2prates/engine"
	"github.com/sig-0/p2prates/ingest"
	"github.com/sig-0/p2prates/quote"
	"github.com/sig-0/p2prates/reference"
	"github.com/sig-0/p2prates/server"
	"github.com/sig-0/p2prates/server/config"
	"github.com/sig-0/p2prates/storage"
)

// serveCfg wraps the serve configuration
type serveCfg struct {
	common.Flags

	config *config.Config

	configPath string
	forceRun   bool
}

// NewServeCmd creates the serve subcommand
func NewServeCmd() *ffcli.Command {
	cfg := &serveCfg{
		config: config.DefaultConfig(),
	}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg.registerFlags(fs)

	cmd := &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve <subcommand> [flags]",
		LongHelp:   "Serves the p2prates backend",
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}

	cmd.Subcommands = []*ffcli.Command{
		newServeSQLCmd(cfg),
		newServeMemoryCmd(cfg),
	}

	return cmd
}

func (c *serveCfg) registerFlags(fs *flag.FlagSet) {
	c.Register(fs)

	fs.StringVar(
		&c.config.ListenAddress,
		"listen",
		config.DefaultListenAddress,
		"the IP:PORT URL for the server",
	)

	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the server TOML configuration, if any",
	)

	fs.BoolVar(
		&c.forceRun,
		"force-run",
		false,
		"flag indicating if the scheduled jobs should run once at boot",
	)
}

// serve wires the scheduler, the HTTP API and the optional Telegram bot
// on top of the given storage, and blocks until they shut down
func (c *serveCfg) serve(ctx context.Context, store storage.Storage, logger *slog.Logger) error {
	// Read the server configuration, if any
	if c.configPath != "" {
		serverCfg, err := config.Read(c.configPath)
		if err != nil {
			return fmt.Errorf("unable to read server config, %w", err)
		}

		c.config = serverCfg
	}

	tables, err := c.Tables()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Create the scheduled jobs
	var (
		e   = common.NewEngine(store, tables, c.Concurrency, logger, registry)
		bcv = reference.NewBCV(store, reference.WithLogger(logger.With("module", "bcv")))

		orchestratorOpts = []ingest.Option{
			ingest.WithLogger(logger.With("module", "ingest")),
		}
	)

	if c.forceRun {
		orchestratorOpts = append(orchestratorOpts, ingest.WithImmediateRun())
	}

	orchestrator := ingest.New(orchestratorOpts...)

	for _, job := range []ingest.Job{
		e.Job(engine.DefaultSchedule()),
		bcv.Job(),
	} {
		if err = orchestrator.Register(job); err != nil {
			return fmt.Errorf("unable to register job: %w", err)
		}
	}

	quotes := quote.NewService(store, tables)

	// Create the server instance
	s, err := server.New(
		quotes,
		server.WithLogger(logger),
		server.WithConfig(c.config),
		server.WithGatherer(registry),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
	}

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancelFn()

	group, gCtx := errgroup.WithContext(runCtx)

	// Start the HTTP server
	group.Go(func() error {
		return s.Serve(gCtx)
	})

	// Start the job orchestrator
	group.Go(func() error {
		return orchestrator.Start(gCtx)
	})

	// Start the Telegram bot, if configured
	token := os.Getenv(env.Prefix + env.BotTokenSuffix)
	if token == "" {
		logger.Info("no bot token set, Telegram bot disabled")

		return group.Wait()
	}

	b, err := bot.New(
		token,
		bot.NewResponder(quotes, tables, engine.DefaultSchedule().Location),
		bot.WithLogger(logger.With("module", "bot")),
	)
	if err != nil {
		cancelFn()

		_ = group.Wait()

		return fmt.Errorf("unable to create bot, %w", err)
	}

	group.Go(func() error {
		return b.Start(gCtx)
	})

	return group.Wait()
}
