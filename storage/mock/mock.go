package mock

import (
	"context"
	"time"

	"github.com/sig-0/bnarates/storage/types"
)

type (
	UpsertDelegate  func(context.Context, *types.RateRecord) error
	RecentDelegate  func(context.Context, int) ([]*types.RateRecord, error)
	AllDelegate     func(context.Context) ([]*types.RateRecord, error)
	InRangeDelegate func(context.Context, time.Time, time.Time) ([]*types.RateRecord, error)
	StatsDelegate   func(context.Context) (*types.Stats, error)
)

type Storage struct {
	UpsertFn  UpsertDelegate
	RecentFn  RecentDelegate
	AllFn     AllDelegate
	InRangeFn InRangeDelegate
	StatsFn   StatsDelegate
}

func (m *Storage) Upsert(ctx context.Context, record *types.RateRecord) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, record)
	}

	return nil
}

func (m *Storage) Recent(ctx context.Context, limit int) ([]*types.RateRecord, error) {
	if m.RecentFn != nil {
		return m.RecentFn(ctx, limit)
	}

	return nil, nil
}

func (m *Storage) All(ctx context.Context) ([]*types.RateRecord, error) {
	if m.AllFn != nil {
		return m.AllFn(ctx)
	}

	return nil, nil
}

func (m *Storage) InRange(ctx context.Context, from, to time.Time) ([]*types.RateRecord, error) {
	if m.InRangeFn != nil {
		return m.InRangeFn(ctx, from, to)
	}

	return nil, nil
}

func (m *Storage) Stats(ctx context.Context) (*types.Stats, error) {
	if m.StatsFn != nil {
		return m.StatsFn(ctx)
	}

	return &types.Stats{Sources: map[types.Source]int{}}, nil
}
