package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

var errUnsupportedFormat = errors.New("unsupported config format")

// Read reads the configuration from the given path, over the defaults.
// The format is picked by extension: .toml, .yaml or .yml
func Read(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config: %w", err)
	}

	cfg := DefaultConfig()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(content, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedFormat, ext)
	}

	if err != nil {
		return nil, fmt.Errorf("unable to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
