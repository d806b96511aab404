package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/bnarates/fetch"
	"github.com/sig-0/bnarates/ingest"
	"github.com/sig-0/bnarates/provider/ars"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, fetch.DefaultConfig(), cfg.Fetch.FetchConfig())
	assert.Equal(t, ars.DefaultCurrentURL, cfg.Sources.CurrentURL)
	assert.Equal(t, ars.DefaultHistoricalURL, cfg.Sources.HistoricalURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Scrape.Pacing())
	assert.Equal(t, 24*time.Hour, cfg.Scrape.Interval())
	assert.Equal(t, time.Minute, cfg.Scrape.RetryDelay())
	assert.Equal(t, DriverCSV, cfg.Storage.Driver)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	testTable := []struct {
		modify func(c *Config)
		err    error
		name   string
	}{
		{
			name:   "zero timeout",
			modify: func(c *Config) { c.Fetch.TimeoutMS = 0 },
			err:    ErrInvalidTimeout,
		},
		{
			name:   "no attempts",
			modify: func(c *Config) { c.Fetch.MaxRetries = 0 },
			err:    ErrInvalidRetries,
		},
		{
			name:   "zero delay base",
			modify: func(c *Config) { c.Fetch.RetryDelayBase = 0 },
			err:    ErrInvalidDelayBase,
		},
		{
			name:   "missing url",
			modify: func(c *Config) { c.Sources.HistoricalURL = "" },
			err:    ErrInvalidURL,
		},
		{
			name:   "missing label",
			modify: func(c *Config) { c.Sources.Label = "" },
			err:    ErrInvalidLabel,
		},
		{
			name:   "negative pacing",
			modify: func(c *Config) { c.Scrape.PacingMS = -1 },
			err:    ErrInvalidPacing,
		},
		{
			name:   "zero pacing",
			modify: func(c *Config) { c.Scrape.PacingMS = 0 },
			err:    ErrInvalidPacing,
		},
		{
			name:   "pacing below the minimum",
			modify: func(c *Config) { c.Scrape.PacingMS = 499 },
			err:    ErrInvalidPacing,
		},
		{
			name:   "zero interval",
			modify: func(c *Config) { c.Scrape.IntervalS = 0 },
			err:    ErrInvalidInterval,
		},
		{
			name:   "zero retry delay",
			modify: func(c *Config) { c.Scrape.RetryDelayS = 0 },
			err:    ErrInvalidRetryDelay,
		},
		{
			name:   "unknown timezone",
			modify: func(c *Config) { c.Scrape.Timezone = "Mars/Olympus_Mons" },
			err:    ErrInvalidTimezone,
		},
		{
			name:   "unknown driver",
			modify: func(c *Config) { c.Storage.Driver = "mongo" },
			err:    ErrInvalidDriver,
		},
		{
			name:   "csv without path",
			modify: func(c *Config) { c.Storage.Path = "" },
			err:    ErrMissingPath,
		},
		{
			name:   "negative min rate",
			modify: func(c *Config) { c.Storage.MinRate = -1 },
			err:    ErrInvalidMinRate,
		},
		{
			name:   "unknown level",
			modify: func(c *Config) { c.Log.Level = "trace" },
			err:    ErrInvalidLevel,
		},
		{
			name:   "unknown format",
			modify: func(c *Config) { c.Log.Format = "xml" },
			err:    ErrInvalidFormat,
		},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			testCase.modify(cfg)

			assert.ErrorIs(t, cfg.Validate(), testCase.err)
		})
	}

	t.Run("minimum pacing accepted", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Scrape.PacingMS = int(ingest.MinPacing / time.Millisecond)

		assert.NoError(t, cfg.Validate())
	})

	t.Run("memory needs no path", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.Storage.Driver = DriverMemory
		cfg.Storage.Path = ""

		assert.NoError(t, cfg.Validate())
	})
}

func TestConfig_Read(t *testing.T) {
	t.Parallel()

	t.Run("yaml overrides defaults", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "config.yaml", `
fetch:
  max_retries: 5
  headers:
    Referer: https://www.bna.com.ar/
scrape:
  pacing_ms: 1500
  fallback: false
storage:
  driver: sqlite
  path: data/rates.db
log:
  format: json
`)

		cfg, err := Read(path)
		require.NoError(t, err)

		assert.Equal(t, 5, cfg.Fetch.MaxRetries)
		assert.Equal(t, "https://www.bna.com.ar/", cfg.Fetch.Headers["Referer"])
		assert.Equal(t, 1500*time.Millisecond, cfg.Scrape.Pacing())
		assert.False(t, cfg.Scrape.Fallback)
		assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
		assert.Equal(t, "data/rates.db", cfg.Storage.Path)
		assert.Equal(t, FormatJSON, cfg.Log.Format)

		// Untouched values keep their defaults
		assert.Equal(t, fetch.DefaultTimeout, cfg.Fetch.Timeout())
		assert.Equal(t, ars.DefaultLabel, cfg.Sources.Label)
		assert.Equal(t, ingest.DefaultTimezone, cfg.Scrape.Timezone)
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("toml", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "config.toml", `
[fetch]
user_agent = "bnarates-test"
accept_language = "es-AR"
accept = "text/html"
timeout_ms = 2500
backoff_unit_ms = 1000
max_retries = 2
retry_delay_base = 3

[sources]
current_url = "https://example.com/current"
historical_url = "https://example.com/historical"
label = "Dolar U.S.A"

[scrape]
timezone = "UTC"
pacing_ms = 750
interval_s = 3600
retry_delay_s = 30
fallback = true

[storage]
driver = "memory"
min_rate = 100.0

[server]
listen_address = "127.0.0.1:9000"

[log]
level = "debug"
format = "text"
`)

		cfg, err := Read(path)
		require.NoError(t, err)

		assert.Equal(t, "bnarates-test", cfg.Fetch.UserAgent)
		assert.Equal(t, 2500*time.Millisecond, cfg.Fetch.Timeout())
		assert.Equal(t, 3, cfg.Fetch.RetryDelayBase)
		assert.Equal(t, "https://example.com/current", cfg.Sources.CurrentURL)
		assert.Equal(t, time.Hour, cfg.Scrape.Interval())
		assert.Equal(t, DriverMemory, cfg.Storage.Driver)
		assert.InDelta(t, 100.0, cfg.Storage.MinRate, 0.0001)
		assert.Equal(t, "127.0.0.1:9000", cfg.Server.ListenAddress)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "config.yml", "storage:\n  driver: mongo\n")

		_, err := Read(path)
		assert.ErrorIs(t, err, ErrInvalidDriver)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()

		path := writeFile(t, "config.json", "{}")

		_, err := Read(path)
		assert.ErrorIs(t, err, errUnsupportedFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := Read(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})
}
