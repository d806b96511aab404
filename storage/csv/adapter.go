package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sig-0/bnarates/storage/types"
)

// header is the fixed column layout of the rates file
var header = []string{"date", "rate_sell", "source", "fetched_at"}

// localTimestampLayout is an ISO timestamp without an offset
const localTimestampLayout = "2006-01-02T15:04:05.999999999"

var errInvalidHeader = errors.New("invalid csv header")

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

// WithLogger specifies the logger for the storage
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) {
		s.logger = l
	}
}

// Storage is a flat-file store: one CSV row per date,
// appended on insert and rewritten when a date is replaced
type Storage struct {
	logger *slog.Logger
	now    func() time.Time

	path    string
	minRate float64

	mu sync.Mutex
}

// NewStorage opens (creating if needed) the CSV file at path
func NewStorage(path string, opts ...Option) (*Storage, error) {
	s := &Storage{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		path:   path,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.ensureFile(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Storage) Upsert(_ context.Context, r *types.RateRecord) error {
	if err := types.Validate(r, s.minRate); err != nil {
		s.logger.Warn(
			"rejected rate record",
			"err", err,
		)

		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRows()
	if err != nil {
		return err
	}

	// Drop the existing row for the date by rewriting everything else verbatim,
	// including rows that do not decode
	kept := make([][]string, 0, len(rows))

	for _, row := range rows {
		if len(row) == 0 || row[0] != r.Date {
			kept = append(kept, row)
		}
	}

	if len(kept) != len(rows) {
		s.logger.Info(
			"replacing existing rate record",
			"date", r.Date,
		)

		if err := s.rewrite(kept); err != nil {
			return err
		}
	}

	elem := *r
	elem.FetchedAt = s.now().UTC()

	if err := s.append(&elem); err != nil {
		return err
	}

	r.FetchedAt = elem.FetchedAt

	return nil
}

func (s *Storage) Recent(_ context.Context, limit int) ([]*types.RateRecord, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}

	types.SortByFetchedDesc(records)

	return types.Limit(records, limit), nil
}

func (s *Storage) All(_ context.Context) ([]*types.RateRecord, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}

	types.SortByDateDesc(records)

	return records, nil
}

func (s *Storage) InRange(_ context.Context, from, to time.Time) ([]*types.RateRecord, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}

	return types.FilterRange(records, from, to), nil
}

func (s *Storage) Stats(_ context.Context) (*types.Stats, error) {
	records, err := s.load()
	if err != nil {
		return nil, err
	}

	return types.NewStats(records), nil
}

// Path returns the location of the backing file
func (s *Storage) Path() string {
	return s.path
}

func (s *Storage) load() ([]*types.RateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readAll()
}

// ensureFile creates the data directory and the header-only file, if missing
func (s *Storage) ensureFile() error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("unable to create data directory: %w", err)
		}
	}

	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("unable to stat rates file: %w", err)
	}

	s.logger.Info("creating rates file", "path", s.path)

	return s.rewrite(nil)
}

// readRows returns the raw data rows of the file, header excluded
func (s *Storage) readRows() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("unable to open rates file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read rates file: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	if !equalHeader(rows[0]) {
		return nil, fmt.Errorf("%w: %v", errInvalidHeader, rows[0])
	}

	return rows[1:], nil
}

// readAll parses every data row of the file.
// Rows that cannot be parsed are skipped and logged, but stay in the file
func (s *Storage) readAll() ([]*types.RateRecord, error) {
	rows, err := s.readRows()
	if err != nil {
		return nil, err
	}

	records := make([]*types.RateRecord, 0, len(rows))

	for i, row := range rows {
		r, err := decodeRow(row)
		if err != nil {
			s.logger.Warn(
				"skipping malformed csv row",
				"line", i+2,
				"err", err,
			)

			continue
		}

		records = append(records, r)
	}

	return records, nil
}

// rewrite atomically replaces the file with the header and the given rows
func (s *Storage) rewrite(rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	w := csv.NewWriter(tmp)

	if err := w.Write(header); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("unable to write csv header: %w", err)
	}

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			_ = tmp.Close()

			return fmt.Errorf("unable to write csv row: %w", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("unable to flush csv: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("unable to replace rates file: %w", err)
	}

	return nil
}

// append adds a single row at the end of the file
func (s *Storage) append(r *types.RateRecord) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("unable to open rates file: %w", err)
	}

	w := csv.NewWriter(f)

	if err := w.Write(encodeRow(r)); err != nil {
		_ = f.Close()

		return fmt.Errorf("unable to write csv row: %w", err)
	}

	w.Flush()

	if err := w.Error(); err != nil {
		_ = f.Close()

		return fmt.Errorf("unable to flush csv: %w", err)
	}

	return f.Close()
}

func encodeRow(r *types.RateRecord) []string {
	return []string{
		r.Date,
		strconv.FormatFloat(r.RateSell, 'f', -1, 64),
		r.Source.String(),
		r.FetchedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeRow(row []string) (*types.RateRecord, error) {
	if len(row) != len(header) {
		return nil, fmt.Errorf("expected %d fields, got %d", len(header), len(row))
	}

	if _, err := types.ParseDate(row[0]); err != nil {
		return nil, err
	}

	rate, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return nil, fmt.Errorf("unable to parse rate %q: %w", row[1], err)
	}

	fetchedAt, err := parseFetchedAt(row[3])
	if err != nil {
		return nil, err
	}

	return &types.RateRecord{
		Date:      row[0],
		RateSell:  rate,
		Source:    types.Source(row[2]),
		FetchedAt: fetchedAt,
	}, nil
}

// parseFetchedAt accepts RFC 3339 timestamps and ISO timestamps
// without an offset, the latter read as UTC
func parseFetchedAt(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}

	t, err := time.ParseInLocation(localTimestampLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse fetched_at %q: %w", value, err)
	}

	return t, nil
}

func equalHeader(row []string) bool {
	if len(row) != len(header) {
		return false
	}

	for i := range header {
		if row[i] != header[i] {
			return false
		}
	}

	return true
}
