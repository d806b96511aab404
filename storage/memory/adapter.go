package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sig-0/bnarates/storage/types"
)

type Option func(s *Storage)

// WithMinRate sets the exclusive lower bound for accepted rates
func WithMinRate(minRate float64) Option {
	return func(s *Storage) {
		s.minRate = minRate
	}
}

// WithClock overrides the clock used to stamp fetched_at
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

type Storage struct {
	data map[string]types.RateRecord // date -> record
	now  func() time.Time

	minRate float64

	mu sync.RWMutex
}

func NewStorage(opts ...Option) *Storage {
	s := &Storage{
		data: make(map[string]types.RateRecord),
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Storage) Upsert(_ context.Context, r *types.RateRecord) error {
	if err := types.Validate(r, s.minRate); err != nil {
		return err
	}

	elem := *r
	elem.FetchedAt = s.now().UTC()

	s.mu.Lock()
	s.data[elem.Date] = elem // key is unique
	s.mu.Unlock()

	r.FetchedAt = elem.FetchedAt

	return nil
}

func (s *Storage) Recent(_ context.Context, limit int) ([]*types.RateRecord, error) {
	out := s.snapshot()
	types.SortByFetchedDesc(out)

	return types.Limit(out, limit), nil
}

func (s *Storage) All(_ context.Context) ([]*types.RateRecord, error) {
	out := s.snapshot()
	types.SortByDateDesc(out)

	return out, nil
}

func (s *Storage) InRange(_ context.Context, from, to time.Time) ([]*types.RateRecord, error) {
	return types.FilterRange(s.snapshot(), from, to), nil
}

func (s *Storage) Stats(_ context.Context) (*types.Stats, error) {
	return types.NewStats(s.snapshot()), nil
}

// snapshot copies the stored records out from under the lock
func (s *Storage) snapshot() []*types.RateRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.RateRecord, 0, len(s.data))

	for _, v := range s.data {
		cp := v
		out = append(out, &cp)
	}

	return out
}
