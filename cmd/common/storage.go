package common

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sig-0/bnarates/cmd/env"
	"github.com/sig-0/bnarates/config"
	"github.com/sig-0/bnarates/storage"
	"github.com/sig-0/bnarates/storage/csv"
	"github.com/sig-0/bnarates/storage/memory"
	"github.com/sig-0/bnarates/storage/sql"
	"github.com/sig-0/bnarates/storage/sqlite"
)

var errMissingDSN = fmt.Errorf("missing %s", env.Prefix+env.DBURLSuffix)

// OpenStorage opens the configured rate store.
// The returned function releases it
func OpenStorage(
	ctx context.Context,
	cfg config.Storage,
	logger *slog.Logger,
) (storage.Storage, func(), error) {
	noop := func() {}

	switch cfg.Driver {
	case config.DriverMemory:
		return memory.NewStorage(memory.WithMinRate(cfg.MinRate)), noop, nil
	case config.DriverCSV:
		store, err := csv.NewStorage(
			cfg.Path,
			csv.WithMinRate(cfg.MinRate),
			csv.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open CSV storage: %w", err)
		}

		return store, noop, nil
	case config.DriverSQLite:
		store, err := sqlite.NewStorage(cfg.Path, sqlite.WithMinRate(cfg.MinRate))
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open SQLite storage: %w", err)
		}

		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error(
					"unable to gracefully close SQLite storage",
					"err", err,
				)
			}
		}, nil
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidDriver, cfg.Driver)
	}
}

func openPostgres(
	ctx context.Context,
	cfg config.Storage,
	logger *slog.Logger,
) (storage.Storage, func(), error) {
	if cfg.DSN == "" {
		return nil, nil, errMissingDSN
	}

	// Open DB connection pool
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open DB connection: %w", err)
	}

	// Check DB reachability
	pingCtx, cancelPing := context.WithTimeout(ctx, time.Second*5)
	defer cancelPing()

	if err = pool.Ping(pingCtx); err != nil {
		pool.Close()

		return nil, nil, fmt.Errorf("unable to reach DB (ping): %w", err)
	}

	logger.Info("DB ping success")

	return sql.NewStorage(pool, sql.WithMinRate(cfg.MinRate)), pool.Close, nil
}
