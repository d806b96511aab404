package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/bnarates/config"
)

func TestLogging_ParseLevel(t *testing.T) {
	t.Parallel()

	testTable := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"empty defaults to info", "", slog.LevelInfo},
		{"upper case", "WARN", slog.LevelWarn},
		{"warning alias", "warning", slog.LevelWarn},
		{"error", " error ", slog.LevelError},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			level, err := ParseLevel(testCase.input)
			require.NoError(t, err)

			assert.Equal(t, testCase.expected, level)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()

		_, err := ParseLevel("trace")
		assert.ErrorIs(t, err, errUnknownLevel)
	})
}

func TestLogging_New(t *testing.T) {
	t.Parallel()

	t.Run("json output honours level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		logger, closer, err := New(config.Log{
			Level:  "warn",
			Format: config.FormatJSON,
		}, &buf)
		require.NoError(t, err)
		t.Cleanup(func() { _ = closer.Close() })

		logger.Info("dropped")
		logger.Warn("kept", "date", "2024-12-15")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

		assert.Equal(t, "kept", entry["msg"])
		assert.Equal(t, "2024-12-15", entry["date"])
	})

	t.Run("text output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		logger, _, err := New(config.Log{Level: "info", Format: config.FormatText}, &buf)
		require.NoError(t, err)

		logger.Info("scraped", "rate", 1292.5)

		assert.Contains(t, buf.String(), "msg=scraped")
		assert.Contains(t, buf.String(), "rate=1292.5")
	})

	t.Run("file output", func(t *testing.T) {
		t.Parallel()

		var (
			buf  bytes.Buffer
			path = filepath.Join(t.TempDir(), "logs", "bnarates.log")
		)

		logger, closer, err := New(config.Log{
			Level:     "info",
			Format:    config.FormatText,
			File:      path,
			MaxSizeMB: 1,
		}, &buf)
		require.NoError(t, err)

		logger.Info("written twice")
		require.NoError(t, closer.Close())

		content, err := os.ReadFile(path)
		require.NoError(t, err)

		assert.Contains(t, string(content), "written twice")
		assert.Contains(t, buf.String(), "written twice")
	})

	t.Run("invalid level", func(t *testing.T) {
		t.Parallel()

		_, _, err := New(config.Log{Level: "loud"}, &bytes.Buffer{})
		assert.Error(t, err)
	})
}
