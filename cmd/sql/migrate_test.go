package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_MigrationNames(t *testing.T) {
	t.Parallel()

	t.Run("explicit migrations", func(t *testing.T) {
		t.Parallel()

		names, err := migrationNames([]string{"002_extra.sql"})
		require.NoError(t, err)

		assert.Equal(t, []string{"002_extra.sql"}, names)
	})

	t.Run("every embedded migration", func(t *testing.T) {
		t.Parallel()

		names, err := migrationNames(nil)
		require.NoError(t, err)

		assert.Contains(t, names, "001_rates.sql")
	})
}
