package config

import (
	"errors"
	"net/http"
	"regexp"
)

const DefaultListenAddress = "0.0.0.0:8545"

var ErrInvalidListenAddress = errors.New("invalid listen address")

var listenAddressRegex = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}:\d+$`)

// CORS defines the cross-origin settings of the server
type CORS struct {
	AllowedOrigins []string `toml:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods []string `toml:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders []string `toml:"allowed_headers" yaml:"allowed_headers"`
}

// DefaultCORSConfig returns the default CORS configuration.
// The API is read-only, so every origin is allowed
func DefaultCORSConfig() *CORS {
	return &CORS{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}
}

// Config defines the base-level server configuration
type Config struct {
	// The associated CORS config, if any
	CORSConfig *CORS `toml:"cors_config" yaml:"cors_config"`

	// The address at which the server will be served.
	// Format should be: <IP>:<PORT>
	ListenAddress string `toml:"listen_address" yaml:"listen_address"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		CORSConfig:    DefaultCORSConfig(),
	}
}

// ValidateConfig validates the server configuration
func ValidateConfig(config *Config) error {
	// Validate the listen address
	if !listenAddressRegex.MatchString(config.ListenAddress) {
		return ErrInvalidListenAddress
	}

	return nil
}
