package ingest

import (
	"context"
	"time"

	"github.com/sig-0/bnarates/storage/types"
)

type (
	nameDelegate      func() string
	intervalDelegate  func() time.Duration
	fetchDelegate     func(context.Context) ([]*types.RateRecord, error)
	currentDelegate   func(context.Context) (*types.RateRecord, error)
	fetchDateDelegate func(context.Context, time.Time) (*types.RateRecord, error)
)

type mockProvider struct {
	nameFn     nameDelegate
	intervalFn intervalDelegate
	fetchFn    fetchDelegate
}

func (m *mockProvider) Name() string {
	if m.nameFn != nil {
		return m.nameFn()
	}

	return ""
}

func (m *mockProvider) Interval() time.Duration {
	if m.intervalFn != nil {
		return m.intervalFn()
	}

	return 0
}

func (m *mockProvider) Fetch(ctx context.Context) ([]*types.RateRecord, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}

	return nil, nil
}

type mockCurrentSource struct {
	fetchFn currentDelegate
}

func (m *mockCurrentSource) Fetch(ctx context.Context) (*types.RateRecord, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}

	return nil, nil
}

type mockHistoricalSource struct {
	fetchDateFn fetchDateDelegate
}

func (m *mockHistoricalSource) FetchDate(ctx context.Context, date time.Time) (*types.RateRecord, error) {
	if m.fetchDateFn != nil {
		return m.fetchDateFn(ctx, date)
	}

	return nil, nil
}
