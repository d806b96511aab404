package ingest

import (
	"context"
	"time"

	"github.com/sig-0/bnarates/storage/types"
)

// Provider is a single scheduled rate provider
type Provider interface {
	// Name returns the human-readable name of the provider
	Name() string

	// Interval returns the interval at which the provider should be called
	Interval() time.Duration

	// Fetch is the provider's main fetch job, yielding rate records
	Fetch(context.Context) ([]*types.RateRecord, error)
}

// YesterdayProvider runs the daily "yesterday" scrape on a schedule
type YesterdayProvider struct {
	orchestrator *Orchestrator
	interval     time.Duration
	fallback     bool
}

// NewYesterdayProvider creates a new scheduled "yesterday" scrape
func NewYesterdayProvider(o *Orchestrator, interval time.Duration, fallback bool) *YesterdayProvider {
	return &YesterdayProvider{
		orchestrator: o,
		interval:     interval,
		fallback:     fallback,
	}
}

func (p *YesterdayProvider) Name() string {
	return "bna-yesterday"
}

func (p *YesterdayProvider) Interval() time.Duration {
	return p.interval
}

func (p *YesterdayProvider) Fetch(ctx context.Context) ([]*types.RateRecord, error) {
	record, err := p.orchestrator.ScrapeYesterday(ctx, p.fallback)
	if err != nil {
		return nil, err
	}

	return []*types.RateRecord{record}, nil
}
