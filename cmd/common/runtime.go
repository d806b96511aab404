package common

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sig-0/bnarates/config"
	"github.com/sig-0/bnarates/fetch"
	"github.com/sig-0/bnarates/ingest"
	"github.com/sig-0/bnarates/logging"
	"github.com/sig-0/bnarates/provider/ars"
	"github.com/sig-0/bnarates/storage"
)

// Runtime holds the components a command runs with
type Runtime struct {
	Config       *config.Config
	Logger       *slog.Logger
	Storage      storage.Storage
	Orchestrator *ingest.Orchestrator

	closers []func()
}

// Setup loads the configuration and wires the logger,
// the rate store and the scrape orchestrator
func Setup(ctx context.Context, flags *Flags) (*Runtime, error) {
	cfg, err := flags.Load()
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.Stdout(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("unable to create logger, %w", err)
	}

	rt := &Runtime{
		Config: cfg,
		Logger: logger,
		closers: []func(){
			func() { _ = logCloser.Close() },
		},
	}

	store, closeStore, err := OpenStorage(ctx, cfg.Storage, logger)
	if err != nil {
		rt.Close()

		return nil, err
	}

	rt.Storage = store
	rt.closers = append(rt.closers, closeStore)

	orchestrator, err := NewOrchestrator(cfg, logger)
	if err != nil {
		rt.Close()

		return nil, err
	}

	rt.Orchestrator = orchestrator

	return rt, nil
}

// Close releases the runtime resources, in reverse order
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}

	r.closers = nil
}

// NewOrchestrator wires the fetcher and both BNA sources
func NewOrchestrator(cfg *config.Config, logger *slog.Logger) (*ingest.Orchestrator, error) {
	loc, err := cfg.Scrape.Location()
	if err != nil {
		return nil, err
	}

	fetcher := fetch.New(
		cfg.Fetch.FetchConfig(),
		fetch.WithLogger(logger),
	)

	var (
		current = ars.NewCurrentSource(
			fetcher,
			ars.WithLogger(logger),
			ars.WithURL(cfg.Sources.CurrentURL),
			ars.WithLabel(cfg.Sources.Label),
		)

		historical = ars.NewHistoricalSource(
			fetcher,
			ars.WithLogger(logger),
			ars.WithURL(cfg.Sources.HistoricalURL),
			ars.WithLabel(cfg.Sources.Label),
		)
	)

	return ingest.NewOrchestrator(
		current,
		historical,
		ingest.WithLogger(logger),
		ingest.WithPacing(cfg.Scrape.Pacing()),
		ingest.WithLocation(loc),
	), nil
}
