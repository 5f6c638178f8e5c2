package common

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlags_Logger(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		var f Flags

		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		f.Register(fs)
		require.NoError(t, fs.Parse(nil))

		assert.Equal(t, LogFormatTint, f.LogFormat)
		assert.Equal(t, 1, f.Concurrency)

		logger, err := f.Logger()
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("formats", func(t *testing.T) {
		t.Parallel()

		for _, format := range []string{LogFormatText, LogFormatJSON, LogFormatTint} {
			f := Flags{LogFormat: format, LogLevel: "debug"}

			_, err := f.Logger()
			assert.NoError(t, err, format)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		t.Parallel()

		f := Flags{LogFormat: "xml", LogLevel: "info"}

		_, err := f.Logger()

		assert.ErrorIs(t, err, errInvalidLogFormat)
	})

	t.Run("invalid level", func(t *testing.T) {
		t.Parallel()

		f := Flags{LogFormat: LogFormatText, LogLevel: "loud"}

		_, err := f.Logger()

		assert.Error(t, err)
	})
}

func TestFlags_Tables(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		tables, err := (&Flags{}).Tables()
		require.NoError(t, err)

		assert.NotEmpty(t, tables.Markets)
	})

	t.Run("override", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "tables.toml")
		require.NoError(t, os.WriteFile(path, []byte("early_stop = 30\n"), 0o600))

		tables, err := (&Flags{TablesPath: path}).Tables()
		require.NoError(t, err)

		assert.Equal(t, 30, tables.EarlyStop)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := (&Flags{TablesPath: filepath.Join(t.TempDir(), "missing.toml")}).Tables()

		assert.Error(t, err)
	})
}
