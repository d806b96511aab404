package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Register sqlite driver

	"github.com/sig-0/bnarates/storage/types"
)

// MemoryDSN opens a private in-memory database
const MemoryDSN = ":memory:"

// timeLayout is fixed-width so fetched_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

//go:embed migrations/001_rates.sql
var migration string

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
	db  *sql.DB
	now func() time.Time

	minRate float64

	mu sync.Mutex
}

// NewStorage opens the SQLite database at dsn and applies the schema
func NewStorage(dsn string, opts ...Option) (*Storage, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Every connection to :memory: is its own database
	if dsn == MemoryDSN {
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("unable to exec %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(migration); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("unable to migrate database: %w", err)
	}

	s := &Storage{
		db:  db,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Close releases the underlying database
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Upsert(ctx context.Context, r *types.RateRecord) error {
	if err := types.Validate(r, s.minRate); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fetchedAt := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM rates WHERE date = ?`, r.Date); err != nil {
		return fmt.Errorf("unable to delete rate: %w", err)
	}

	if _, err = tx.ExecContext(
		ctx,
		`INSERT INTO rates (date, rate_sell, source, fetched_at) VALUES (?, ?, ?, ?)`,
		r.Date,
		r.RateSell,
		r.Source.String(),
		fetchedAt.Format(timeLayout),
	); err != nil {
		return fmt.Errorf("unable to insert rate: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit rate: %w", err)
	}

	r.FetchedAt = fetchedAt

	return nil
}

func (s *Storage) Recent(ctx context.Context, limit int) ([]*types.RateRecord, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}

	return s.query(
		ctx,
		`SELECT date, rate_sell, source, fetched_at FROM rates ORDER BY fetched_at DESC LIMIT ?`,
		limit,
	)
}

func (s *Storage) All(ctx context.Context) ([]*types.RateRecord, error) {
	return s.query(
		ctx,
		`SELECT date, rate_sell, source, fetched_at FROM rates ORDER BY date DESC`,
	)
}

func (s *Storage) InRange(ctx context.Context, from, to time.Time) ([]*types.RateRecord, error) {
	return s.query(
		ctx,
		`SELECT date, rate_sell, source, fetched_at FROM rates
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC`,
		types.FormatDate(from),
		types.FormatDate(to),
	)
}

func (s *Storage) Stats(ctx context.Context) (*types.Stats, error) {
	stats := &types.Stats{
		Sources: make(map[types.Source]int),
	}

	var first, last sql.NullString

	if err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*), MIN(date), MAX(date) FROM rates`,
	).Scan(&stats.Total, &first, &last); err != nil {
		return nil, fmt.Errorf("unable to fetch stats: %w", err)
	}

	stats.FirstDate = first.String
	stats.LastDate = last.String

	rows, err := s.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM rates GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch source stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			source string
			count  int
		)

		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("unable to scan source stats: %w", err)
		}

		stats.Sources[types.Source(source)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to iterate source stats: %w", err)
	}

	return stats, nil
}

func (s *Storage) query(ctx context.Context, query string, args ...any) ([]*types.RateRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // valid case
		}

		return nil, fmt.Errorf("unable to fetch rates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*types.RateRecord

	for rows.Next() {
		var (
			r         types.RateRecord
			source    string
			fetchedAt string
		)

		if err := rows.Scan(&r.Date, &r.RateSell, &source, &fetchedAt); err != nil {
			return nil, fmt.Errorf("unable to scan rate: %w", err)
		}

		r.Source = types.Source(source)

		if r.FetchedAt, err = time.Parse(timeLayout, fetchedAt); err != nil {
			return nil, fmt.Errorf("unable to parse fetched_at %q: %w", fetchedAt, err)
		}

		out = append(out, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to iterate rates: %w", err)
	}

	return out, nil
}
