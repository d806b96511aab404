package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/bnarates/storage/types"
)

func TestBackfill_ParseRange(t *testing.T) {
	t.Parallel()

	t.Run("valid range", func(t *testing.T) {
		t.Parallel()

		start, end, err := parseRange([]string{"2024-12-01", "2024-12-15"})
		require.NoError(t, err)

		assert.Equal(t, "2024-12-01", types.FormatDate(start))
		assert.Equal(t, "2024-12-15", types.FormatDate(end))
	})

	t.Run("single day", func(t *testing.T) {
		t.Parallel()

		start, end, err := parseRange([]string{"2024-12-15", "2024-12-15"})
		require.NoError(t, err)

		assert.Equal(t, start, end)
	})

	t.Run("wrong argument count", func(t *testing.T) {
		t.Parallel()

		_, _, err := parseRange([]string{"2024-12-01"})
		assert.ErrorIs(t, err, errInvalidArgs)
	})

	t.Run("malformed date", func(t *testing.T) {
		t.Parallel()

		_, _, err := parseRange([]string{"01/12/2024", "2024-12-15"})
		assert.ErrorIs(t, err, types.ErrInvalidDate)
	})

	t.Run("reversed range", func(t *testing.T) {
		t.Parallel()

		_, _, err := parseRange([]string{"2024-12-15", "2024-12-01"})
		assert.ErrorIs(t, err, errInvalidRange)
	})
}
