package sql

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sig-0/bnarates/storage/types"
)

// DB is the subset of the pgx API the storage uses.
// Both *pgx.Conn and *pgxpool.Pool satisfy it
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	deleteRate = `DELETE FROM rates WHERE date = $1`

	insertRate = `INSERT INTO rates (date, rate_sell, source, fetched_at)
VALUES ($1, $2, $3, $4)`

	selectRecent = `SELECT date, rate_sell, source, fetched_at
FROM rates
ORDER BY fetched_at DESC
LIMIT $1`

	selectAll = `SELECT date, rate_sell, source, fetched_at
FROM rates
ORDER BY date DESC`

	selectInRange = `SELECT date, rate_sell, source, fetched_at
FROM rates
WHERE date >= $1
  AND date <= $2
ORDER BY date ASC`

	selectStats = `SELECT COUNT(*), MIN(date), MAX(date) FROM rates`

	selectSourceStats = `SELECT source, COUNT(*) FROM rates GROUP BY source`
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
	db  DB
	now func() time.Time

	minRate float64
}

func NewStorage(db DB, opts ...Option) *Storage {
	s := &Storage{
		db:  db,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Upsert replaces the record for the date inside a single transaction
func (s *Storage) Upsert(ctx context.Context, r *types.RateRecord) error {
	if err := types.Validate(r, s.minRate); err != nil {
		return err
	}

	date, err := types.ParseDate(r.Date)
	if err != nil {
		return err
	}

	// the column keeps 4 decimal places, the stored value must still be valid
	rate := floatToNumeric(r.RateSell)
	if stored := numericToFloat(rate); stored <= 0 || stored <= s.minRate {
		return fmt.Errorf(
			"%w: %v is stored as %v at %d decimal places",
			types.ErrInvalidRate,
			r.RateSell,
			stored,
			rateScale,
		)
	}

	fetchedAt := s.now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err = tx.Exec(ctx, deleteRate, dateToPg(date)); err != nil {
		return fmt.Errorf("unable to delete rate: %w", err)
	}

	if _, err = tx.Exec(
		ctx,
		insertRate,
		dateToPg(date),
		rate,
		r.Source.String(),
		timeToTimestampz(fetchedAt),
	); err != nil {
		return fmt.Errorf("unable to save rate: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("unable to commit rate: %w", err)
	}

	r.RateSell = numericToFloat(rate)
	r.FetchedAt = fetchedAt

	return nil
}

func (s *Storage) Recent(ctx context.Context, limit int) ([]*types.RateRecord, error) {
	var arg pgtype.Int8 // NULL means no limit

	if limit > 0 {
		arg = pgtype.Int8{Int64: int64(limit), Valid: true}
	}

	return s.query(ctx, selectRecent, arg)
}

func (s *Storage) All(ctx context.Context) ([]*types.RateRecord, error) {
	return s.query(ctx, selectAll)
}

func (s *Storage) InRange(ctx context.Context, from, to time.Time) ([]*types.RateRecord, error) {
	return s.query(ctx, selectInRange, dateToPg(from), dateToPg(to))
}

func (s *Storage) Stats(ctx context.Context) (*types.Stats, error) {
	var (
		stats = &types.Stats{
			Sources: make(map[types.Source]int),
		}

		total       int64
		first, last pgtype.Date
	)

	if err := s.db.QueryRow(ctx, selectStats).Scan(&total, &first, &last); err != nil {
		return nil, fmt.Errorf("unable to fetch stats: %w", err)
	}

	stats.Total = int(total)
	stats.FirstDate = pgToDate(first)
	stats.LastDate = pgToDate(last)

	rows, err := s.db.Query(ctx, selectSourceStats)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch source stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			source string
			count  int64
		)

		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("unable to scan source stats: %w", err)
		}

		stats.Sources[types.Source(source)] = int(count)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to iterate source stats: %w", err)
	}

	return stats, nil
}

func (s *Storage) query(ctx context.Context, query string, args ...any) ([]*types.RateRecord, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // valid case
		}

		return nil, fmt.Errorf("unable to fetch rates: %w", err)
	}
	defer rows.Close()

	var out []*types.RateRecord

	for rows.Next() {
		var (
			date      pgtype.Date
			rate      pgtype.Numeric
			source    string
			fetchedAt pgtype.Timestamptz
		)

		if err := rows.Scan(&date, &rate, &source, &fetchedAt); err != nil {
			return nil, fmt.Errorf("unable to scan rate: %w", err)
		}

		out = append(out, parseRateRecord(date, rate, source, fetchedAt))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to iterate rates: %w", err)
	}

	return out, nil
}

// parseRateRecord parses the postgres row to the common Go type
func parseRateRecord(
	date pgtype.Date,
	rate pgtype.Numeric,
	source string,
	fetchedAt pgtype.Timestamptz,
) *types.RateRecord {
	return &types.RateRecord{
		Date:      pgToDate(date),
		RateSell:  numericToFloat(rate),
		Source:    types.Source(source),
		FetchedAt: timestampzToTime(fetchedAt),
	}
}

// rateScale matches the NUMERIC(18,4) rate_sell column
const rateScale = 4

// floatToNumeric converts the float value to postgres numeric.
// The conversion is lossy: digits past rateScale are rounded half away from zero
func floatToNumeric(value float64) pgtype.Numeric {
	i := int64(math.Round(value * math.Pow10(rateScale)))

	return pgtype.Numeric{
		Int:   big.NewInt(i),
		Exp:   -rateScale,
		Valid: true,
	}
}

// numericToFloat converts the postgres value to float
func numericToFloat(value pgtype.Numeric) float64 {
	if !value.Valid || value.Int == nil {
		return 0
	}

	f, _ := new(big.Rat).SetInt(value.Int).Float64()

	if value.Exp > 0 {
		f *= math.Pow10(int(value.Exp))
	} else if value.Exp < 0 {
		f /= math.Pow10(int(-value.Exp))
	}

	return f
}

// dateToPg converts the calendar date of t to a postgres date
func dateToPg(t time.Time) pgtype.Date {
	return pgtype.Date{
		Time:  time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Valid: true,
	}
}

// pgToDate formats the postgres date as YYYY-MM-DD, or empty if NULL
func pgToDate(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}

	return types.FormatDate(d.Time)
}

// timeToTimestampz converts the time value to postgres timestamp
func timeToTimestampz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  t.UTC(),
		Valid: true,
	}
}

// timestampzToTime converts the postgres timestamp value to time
func timestampzToTime(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}

	return ts.Time
}
