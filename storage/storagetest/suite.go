// Package storagetest holds the behavior every storage.Storage adapter must share
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/bnarates/storage"
	"github.com/sig-0/bnarates/storage/types"
)

// Clock is a manually advanced clock handed to the adapter under test
type Clock struct {
	now time.Time
	mu  sync.Mutex
}

// NewClock creates a clock starting at a fixed instant
func NewClock() *Clock {
	return &Clock{
		now: time.Date(2024, time.December, 16, 9, 0, 0, 0, time.UTC),
	}
}

// Now returns the current instant and advances the clock by a second
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now
	c.now = c.now.Add(time.Second)

	return now
}

// Factory creates a fresh, empty adapter using the given clock
type Factory func(t *testing.T, clock *Clock) storage.Storage

// Run runs the shared adapter behavior against the factory
func Run(t *testing.T, newStorage Factory) {
	t.Helper()

	ctx := context.Background()

	t.Run("upsert is idempotent per date", func(t *testing.T) {
		var (
			clock = NewClock()
			s     = newStorage(t, clock)
		)

		first := &types.RateRecord{Date: "2024-12-15", RateSell: 1292.5, Source: types.SourceCurrent}
		require.NoError(t, s.Upsert(ctx, first))

		second := &types.RateRecord{Date: "2024-12-15", RateSell: 1292.5, Source: types.SourceCurrent}
		require.NoError(t, s.Upsert(ctx, second))

		all, err := s.All(ctx)
		require.NoError(t, err)

		require.Len(t, all, 1)
		assert.Equal(t, "2024-12-15", all[0].Date)
		assert.InDelta(t, 1292.5, all[0].RateSell, 1e-9)
		assert.True(t, all[0].FetchedAt.Equal(second.FetchedAt))
		assert.True(t, all[0].FetchedAt.After(first.FetchedAt))
	})

	t.Run("later write replaces regardless of source", func(t *testing.T) {
		s := newStorage(t, NewClock())

		require.NoError(t, s.Upsert(ctx, &types.RateRecord{
			Date: "2024-12-15", RateSell: 1290, Source: types.SourceCurrent,
		}))
		require.NoError(t, s.Upsert(ctx, &types.RateRecord{
			Date: "2024-12-14", RateSell: 1289, Source: types.SourceHistorical,
		}))
		require.NoError(t, s.Upsert(ctx, &types.RateRecord{
			Date: "2024-12-15", RateSell: 1295.25, Source: types.SourceHistorical,
		}))

		all, err := s.All(ctx)
		require.NoError(t, err)

		require.Len(t, all, 2)
		assert.Equal(t, "2024-12-15", all[0].Date)
		assert.Equal(t, types.SourceHistorical, all[0].Source)
		assert.InDelta(t, 1295.25, all[0].RateSell, 1e-9)
		assert.Equal(t, "2024-12-14", all[1].Date)
	})

	t.Run("rejected records leave the store unchanged", func(t *testing.T) {
		s := newStorage(t, NewClock())

		require.NoError(t, s.Upsert(ctx, &types.RateRecord{
			Date: "2024-12-15", RateSell: 1292.5, Source: types.SourceCurrent,
		}))

		err := s.Upsert(ctx, &types.RateRecord{
			Date: "2024-12-15", RateSell: 0.0, Source: types.SourceCurrent,
		})
		assert.ErrorIs(t, err, types.ErrInvalidRate)

		err = s.Upsert(ctx, &types.RateRecord{
			Date: "not-a-date", RateSell: 1.0, Source: types.SourceCurrent,
		})
		assert.ErrorIs(t, err, types.ErrInvalidDate)

		assert.ErrorIs(t, s.Upsert(ctx, nil), types.ErrInvalidRate)

		all, err := s.All(ctx)
		require.NoError(t, err)

		require.Len(t, all, 1)
		assert.InDelta(t, 1292.5, all[0].RateSell, 1e-9)
	})

	t.Run("queries", func(t *testing.T) {
		s := newStorage(t, NewClock())

		// Inserted out of date order, so fetched_at and date orders differ
		for _, r := range []*types.RateRecord{
			{Date: "2024-01-03", RateSell: 810.5, Source: types.SourceHistorical},
			{Date: "2024-01-01", RateSell: 808.5, Source: types.SourceHistorical},
			{Date: "2024-01-04", RateSell: 811.25, Source: types.SourceCurrent},
			{Date: "2024-01-02", RateSell: 809, Source: types.SourceHistorical},
		} {
			require.NoError(t, s.Upsert(ctx, r))
		}

		all, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "2024-01-04", all[0].Date)
		assert.Equal(t, "2024-01-01", all[3].Date)

		recent, err := s.Recent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "2024-01-02", recent[0].Date)
		assert.Equal(t, "2024-01-04", recent[1].Date)

		from, _ := types.ParseDate("2024-01-02")
		to, _ := types.ParseDate("2024-01-03")

		inRange, err := s.InRange(ctx, from, to)
		require.NoError(t, err)
		require.Len(t, inRange, 2)
		assert.Equal(t, "2024-01-02", inRange[0].Date)
		assert.Equal(t, "2024-01-03", inRange[1].Date)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, stats.Total)
		assert.Equal(t, "2024-01-01", stats.FirstDate)
		assert.Equal(t, "2024-01-04", stats.LastDate)
		assert.Equal(t, 3, stats.Sources[types.SourceHistorical])
		assert.Equal(t, 1, stats.Sources[types.SourceCurrent])
	})

	t.Run("empty store", func(t *testing.T) {
		s := newStorage(t, NewClock())

		all, err := s.All(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Total)
	})
}
