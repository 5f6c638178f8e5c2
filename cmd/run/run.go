package run

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

	"github.com/sig-0/p2prates/cmd/common"
	"github.com/sig-0/p2prates/cmd/env"
	"github.com/sig-0/p2prates/reference"
	"github.com/sig-0/p2prates/storage"
)

// runCfg wraps the run configuration
type runCfg struct {
	common.Flags

	reference bool
}

// NewRunCmd creates the run subcommand
func NewRunCmd() *ffcli.Command {
	cfg := &runCfg{}

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfg.registerFlags(fs)

	cmd := &ffcli.Command{
		Name:       "run",
		ShortUsage: "run <subcommand> [flags]",
		LongHelp:   "Executes a single engine run",
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
		cfg.newStorageCmd(
			"memory",
			"Executes a single engine run, using an in-memory datastore",
			func(context.Context, *slog.Logger) (storage.Storage, func(), error) {
				s, closeFn := common.MemoryStorage()

				return s, closeFn, nil
			},
		),
		cfg.newStorageCmd(
			"sql",
			"Executes a single engine run, using an SQL datastore",
			common.SQLStorage,
		),
	}

	return cmd
}

func (c *runCfg) registerFlags(fs *flag.FlagSet) {
	c.Register(fs)

	fs.BoolVar(
		&c.reference,
		"reference",
		false,
		"flag indicating if the official BCV rates should be fetched as well",
	)
}

type openStorageFn func(context.Context, *slog.Logger) (storage.Storage, func(), error)

func (c *runCfg) newStorageCmd(name, help string, open openStorageFn) *ffcli.Command {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c.registerFlags(fs)

	return &ffcli.Command{
		Name:       name,
		ShortUsage: fmt.Sprintf("run %s [flags]", name),
		LongHelp:   help,
		FlagSet:    fs,
		Exec: func(ctx context.Context, _ []string) error {
			return c.exec(ctx, open)
		},
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *runCfg) exec(ctx context.Context, open openStorageFn) error {
	logger, err := c.Logger()
	if err != nil {
		return err
	}

	common.LoadEnv(logger)

	tables, err := c.Tables()
	if err != nil {
		return err
	}

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancelFn()

	store, closeFn, err := open(runCtx, logger)
	if err != nil {
		return err
	}

	defer closeFn()

	e := common.NewEngine(store, tables, c.Concurrency, logger, nil)

	report, err := e.Run(runCtx)
	if err != nil {
		return fmt.Errorf("engine run failed: %w", err)
	}

	if c.reference {
		bcv := reference.NewBCV(store, reference.WithLogger(logger.With("module", "bcv")))

		if err := bcv.Run(runCtx); err != nil {
			logger.Error("unable to fetch the official rates", "err", err)
		}
	}

	logger.Info(
		"run summary",
		"run", report.RunID,
		"bases", len(report.Bases),
		"missing", report.Missing,
		"pairs", len(report.Pairs),
		"averages", report.Averages,
		"saved", report.Saved,
		"failed", report.Failed,
		"page_calls", report.PageCalls,
		"page_hits", report.PageHits,
	)

	return nil
}
