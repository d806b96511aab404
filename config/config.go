package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/sig-0/bnarates/fetch"
	"github.com/sig-0/bnarates/ingest"
	"github.com/sig-0/bnarates/provider/ars"
	serverconfig "github.com/sig-0/bnarates/server/config"
)

// Storage drivers
const (
	DriverCSV      = "csv"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Log formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

const DefaultDataPath = "data/rates.csv"

var (
	ErrInvalidTimeout    = errors.New("fetch timeout must be positive")
	ErrInvalidRetries    = errors.New("fetch max retries must be at least 1")
	ErrInvalidDelayBase  = errors.New("fetch retry delay base must be at least 1")
	ErrInvalidPacing     = errors.New("scrape pacing must be at least 500ms")
	ErrInvalidInterval   = errors.New("scrape interval must be positive")
	ErrInvalidDriver     = errors.New("unknown storage driver")
	ErrMissingPath       = errors.New("storage path is required")
	ErrInvalidMinRate    = errors.New("storage min rate must not be negative")
	ErrInvalidLevel      = errors.New("unknown log level")
	ErrInvalidFormat     = errors.New("unknown log format")
	ErrInvalidURL        = errors.New("source URLs are required")
	ErrInvalidLabel      = errors.New("source label is required")
	ErrInvalidTimezone   = errors.New("unknown timezone")
	ErrInvalidRetryDelay = errors.New("scrape retry delay must be positive")
)

// Fetch configures the HTTP fetcher
type Fetch struct {
	Headers map[string]string `toml:"headers" yaml:"headers"`

	UserAgent      string `toml:"user_agent" yaml:"user_agent"`
	AcceptLanguage string `toml:"accept_language" yaml:"accept_language"`
	Accept         string `toml:"accept" yaml:"accept"`

	TimeoutMS      int `toml:"timeout_ms" yaml:"timeout_ms"`
	BackoffUnitMS  int `toml:"backoff_unit_ms" yaml:"backoff_unit_ms"`
	MaxRetries     int `toml:"max_retries" yaml:"max_retries"`
	RetryDelayBase int `toml:"retry_delay_base" yaml:"retry_delay_base"`

	InsecureSkipVerify bool `toml:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// Timeout returns the per-attempt timeout
func (f Fetch) Timeout() time.Duration {
	return time.Duration(f.TimeoutMS) * time.Millisecond
}

// BackoffUnit returns the unit the retry delay is counted in
func (f Fetch) BackoffUnit() time.Duration {
	return time.Duration(f.BackoffUnitMS) * time.Millisecond
}

// FetchConfig converts the section into the fetcher configuration
func (f Fetch) FetchConfig() fetch.Config {
	return fetch.Config{
		Headers:            f.Headers,
		UserAgent:          f.UserAgent,
		AcceptLanguage:     f.AcceptLanguage,
		Accept:             f.Accept,
		Timeout:            f.Timeout(),
		BackoffUnit:        f.BackoffUnit(),
		MaxRetries:         f.MaxRetries,
		RetryDelayBase:     f.RetryDelayBase,
		InsecureSkipVerify: f.InsecureSkipVerify,
	}
}

// Sources configures the scraped pages
type Sources struct {
	CurrentURL    string `toml:"current_url" yaml:"current_url"`
	HistoricalURL string `toml:"historical_url" yaml:"historical_url"`
	Label         string `toml:"label" yaml:"label"`
}

// Scrape configures the orchestrator and the scheduler
type Scrape struct {
	Timezone    string `toml:"timezone" yaml:"timezone"`
	PacingMS    int    `toml:"pacing_ms" yaml:"pacing_ms"`
	IntervalS   int    `toml:"interval_s" yaml:"interval_s"`
	RetryDelayS int    `toml:"retry_delay_s" yaml:"retry_delay_s"`
	Fallback    bool   `toml:"fallback" yaml:"fallback"`
}

// Pacing returns the delay between consecutive range requests
func (s Scrape) Pacing() time.Duration {
	return time.Duration(s.PacingMS) * time.Millisecond
}

// Interval returns how often the scheduler scrapes
func (s Scrape) Interval() time.Duration {
	return time.Duration(s.IntervalS) * time.Second
}

// RetryDelay returns how soon the scheduler retries a failed scrape
func (s Scrape) RetryDelay() time.Duration {
	return time.Duration(s.RetryDelayS) * time.Second
}

// Location loads the configured timezone
func (s Scrape) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, s.Timezone)
	}

	return loc, nil
}

// Storage configures the rate store
type Storage struct {
	Driver  string  `toml:"driver" yaml:"driver"`
	Path    string  `toml:"path" yaml:"path"` // csv file or sqlite database
	DSN     string  `toml:"dsn" yaml:"dsn"`   // postgres
	MinRate float64 `toml:"min_rate" yaml:"min_rate"`
}

// Log configures the process logger
type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`

	// Rotated log file, stdout when empty
	File       string `toml:"file" yaml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `toml:"compress" yaml:"compress"`
}

// Config is the complete service configuration
type Config struct {
	Fetch   Fetch               `toml:"fetch" yaml:"fetch"`
	Sources Sources             `toml:"sources" yaml:"sources"`
	Scrape  Scrape              `toml:"scrape" yaml:"scrape"`
	Storage Storage             `toml:"storage" yaml:"storage"`
	Server  serverconfig.Config `toml:"server" yaml:"server"`
	Log     Log                 `toml:"log" yaml:"log"`
}

// DefaultConfig returns the default service configuration
func DefaultConfig() *Config {
	fetchCfg := fetch.DefaultConfig()

	return &Config{
		Fetch: Fetch{
			UserAgent:      fetchCfg.UserAgent,
			AcceptLanguage: fetchCfg.AcceptLanguage,
			Accept:         fetchCfg.Accept,
			TimeoutMS:      int(fetchCfg.Timeout / time.Millisecond),
			BackoffUnitMS:  int(fetchCfg.BackoffUnit / time.Millisecond),
			MaxRetries:     fetchCfg.MaxRetries,
			RetryDelayBase: fetchCfg.RetryDelayBase,
		},
		Sources: Sources{
			CurrentURL:    ars.DefaultCurrentURL,
			HistoricalURL: ars.DefaultHistoricalURL,
			Label:         ars.DefaultLabel,
		},
		Scrape: Scrape{
			Timezone:    ingest.DefaultTimezone,
			PacingMS:    int(ingest.DefaultPacing / time.Millisecond),
			IntervalS:   int((24 * time.Hour).Seconds()),
			RetryDelayS: 60,
			Fallback:    true,
		},
		Storage: Storage{
			Driver: DriverCSV,
			Path:   DefaultDataPath,
		},
		Server: *serverconfig.DefaultConfig(),
		Log: Log{
			Level:      "info",
			Format:     FormatText,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Validate validates the service configuration
func (c *Config) Validate() error {
	switch {
	case c.Fetch.TimeoutMS <= 0:
		return ErrInvalidTimeout
	case c.Fetch.MaxRetries < 1:
		return ErrInvalidRetries
	case c.Fetch.RetryDelayBase < 1:
		return ErrInvalidDelayBase
	case c.Sources.CurrentURL == "" || c.Sources.HistoricalURL == "":
		return ErrInvalidURL
	case c.Sources.Label == "":
		return ErrInvalidLabel
	case c.Scrape.Pacing() < ingest.MinPacing:
		return ErrInvalidPacing
	case c.Scrape.IntervalS <= 0:
		return ErrInvalidInterval
	case c.Scrape.RetryDelayS <= 0:
		return ErrInvalidRetryDelay
	case c.Storage.MinRate < 0:
		return ErrInvalidMinRate
	}

	if _, err := c.Scrape.Location(); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case DriverCSV, DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w for driver %q", ErrMissingPath, c.Storage.Driver)
		}
	case DriverMemory, DriverPostgres:
		// the postgres DSN may come from the environment
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.Storage.Driver)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLevel, c.Log.Level)
	}

	switch c.Log.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Log.Format)
	}

	if err := serverconfig.ValidateConfig(&c.Server); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	return nil
}
