package common

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/sig-0/p2prates/engine"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
	LogFormatTint = "tint"
)

var errInvalidLogFormat = errors.New("invalid log format")

// Flags are the flags shared by the engine commands
type Flags struct {
	LogFormat   string
	LogLevel    string
	TablesPath  string
	Concurrency int
}

// Register registers the shared flags on the flag set
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(
		&f.LogFormat,
		"log-format",
		LogFormatTint,
		"the log output format (text, json or tint)",
	)

	fs.StringVar(
		&f.LogLevel,
		"log-level",
		slog.LevelInfo.String(),
		"the minimum log level (DEBUG, INFO, WARN or ERROR)",
	)

	fs.StringVar(
		&f.TablesPath,
		"tables",
		"",
		"the path to the engine tables TOML override, if any",
	)

	fs.IntVar(
		&f.Concurrency,
		"concurrency",
		1,
		"the number of markets collected in parallel",
	)
}

// Logger builds the process logger out of the log flags
func (f *Flags) Logger() (*slog.Logger, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(f.LogLevel)); err != nil {
		return nil, fmt.Errorf("unable to parse log level: %w", err)
	}

	switch f.LogFormat {
	case LogFormatText:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})), nil
	case LogFormatJSON:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})), nil
	case LogFormatTint:
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
		})), nil
	default:
		return nil, fmt.Errorf("%w: %q", errInvalidLogFormat, f.LogFormat)
	}
}

// Tables loads the engine tables, the defaults unless an override is given
func (f *Flags) Tables() (*engine.Tables, error) {
	if f.TablesPath == "" {
		return engine.DefaultTables(), nil
	}

	tables, err := engine.ReadTables(f.TablesPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read engine tables: %w", err)
	}

	return tables, nil
}
