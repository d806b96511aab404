package config

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_ValidateConfig(t *testing.T) {
	t.Parallel()

	t.Run("invalid listen address", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.ListenAddress = "rando-address" // doesn't follow the format

		assert.ErrorIs(t, ValidateConfig(cfg), ErrInvalidListenAddress)
	})

	t.Run("missing port", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.ListenAddress = "127.0.0.1"

		assert.ErrorIs(t, ValidateConfig(cfg), ErrInvalidListenAddress)
	})

	t.Run("valid configuration", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, ValidateConfig(DefaultConfig()))
	})
}

func TestConfig_DefaultCORSConfig(t *testing.T) {
	t.Parallel()

	cors := DefaultCORSConfig()

	assert.Equal(t, []string{"*"}, cors.AllowedOrigins)
	assert.Contains(t, cors.AllowedMethods, http.MethodGet)
	assert.NotContains(t, cors.AllowedMethods, http.MethodPost)
}
