package common

import (
	"flag"
	"fmt"
	"os"

	"github.com/sig-0/bnarates/cmd/env"
	"github.com/sig-0/bnarates/config"
)

// Flags are the flags shared by every command
type Flags struct {
	ConfigPath string
	Storage    string
	DataPath   string
	LogFile    string
	Debug      bool
}

// RegisterFlags registers the shared flags on the given set
func (f *Flags) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&f.ConfigPath,
		"config",
		"",
		"the path to the TOML or YAML configuration, if any",
	)

	fs.StringVar(
		&f.Storage,
		"storage",
		"",
		"the storage driver (csv, memory, sqlite, postgres)",
	)

	fs.StringVar(
		&f.DataPath,
		"data",
		"",
		"the CSV file or SQLite database path",
	)

	fs.StringVar(
		&f.LogFile,
		"log-file",
		"",
		"the rotated log file, if any",
	)

	fs.BoolVar(
		&f.Debug,
		"debug",
		false,
		"enable debug logging",
	)
}

// Load reads the configuration, if any, and applies the flag overrides
func (f *Flags) Load() (*config.Config, error) {
	cfg := config.DefaultConfig()

	if f.ConfigPath != "" {
		fileCfg, err := config.Read(f.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read config, %w", err)
		}

		cfg = fileCfg
	}

	if f.Storage != "" {
		cfg.Storage.Driver = f.Storage
	}

	if f.DataPath != "" {
		cfg.Storage.Path = f.DataPath
	}

	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}

	if f.Debug {
		cfg.Log.Level = "debug"
	}

	if cfg.Storage.Driver == config.DriverPostgres && cfg.Storage.DSN == "" {
		cfg.Storage.DSN = os.Getenv(env.Prefix + env.DBURLSuffix)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration, %w", err)
	}

	return cfg, nil
}
