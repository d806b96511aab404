package types

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DateLayout is the ISO 8601 calendar date layout used for record dates
const DateLayout = "2006-01-02"

var (
	ErrInvalidRate = errors.New("invalid rate")
	ErrInvalidDate = errors.New("invalid date")
)

type Source string

const (
	SourceCurrent    Source = "bna_divisas_valorhoy"  // current-value page
	SourceHistorical Source = "bna_divisas_historico" // historical lookup page
)

func (s Source) String() string {
	return string(s)
}

// RateRecord is a single persisted ARS/USD sell rate, unique per date
type RateRecord struct {
	FetchedAt time.Time `json:"fetched_at"`
	Date      string    `json:"date"`
	Source    Source    `json:"source"`
	RateSell  float64   `json:"rate_sell"`
}

// Stats summarizes the stored records
type Stats struct {
	Sources   map[Source]int `json:"sources"`
	FirstDate string         `json:"first_date,omitempty"`
	LastDate  string         `json:"last_date,omitempty"`
	Total     int            `json:"total"`
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD)
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	return t, nil
}

// FormatDate formats the calendar date of t as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Validate checks the record before it is written.
// The rate must be strictly greater than minRate
func Validate(r *RateRecord, minRate float64) error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRate)
	}

	if !(r.RateSell > minRate) {
		return fmt.Errorf("%w: %v must be greater than %v", ErrInvalidRate, r.RateSell, minRate)
	}

	if _, err := ParseDate(r.Date); err != nil {
		return err
	}

	return nil
}

// SortByDateDesc sorts the records newest date first
func SortByDateDesc(records []*RateRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date > records[j].Date
	})
}

// SortByDateAsc sorts the records oldest date first
func SortByDateAsc(records []*RateRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date < records[j].Date
	})
}

// SortByFetchedDesc sorts the records most recently fetched first
func SortByFetchedDesc(records []*RateRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].FetchedAt.After(records[j].FetchedAt)
	})
}

// FilterRange returns the records whose date falls within [from, to], oldest first
func FilterRange(records []*RateRecord, from, to time.Time) []*RateRecord {
	var (
		lo = FormatDate(from)
		hi = FormatDate(to)

		out = make([]*RateRecord, 0, len(records))
	)

	for _, r := range records {
		if r.Date < lo || r.Date > hi {
			continue
		}

		out = append(out, r)
	}

	SortByDateAsc(out)

	return out
}

// NewStats computes the aggregate statistics for the given records
func NewStats(records []*RateRecord) *Stats {
	stats := &Stats{
		Total:   len(records),
		Sources: make(map[Source]int),
	}

	for _, r := range records {
		stats.Sources[r.Source]++

		if stats.FirstDate == "" || r.Date < stats.FirstDate {
			stats.FirstDate = r.Date
		}

		if r.Date > stats.LastDate {
			stats.LastDate = r.Date
		}
	}

	return stats
}

// Limit trims the records to at most n entries. A non-positive n keeps everything
func Limit(records []*RateRecord, n int) []*RateRecord {
	if n <= 0 || n >= len(records) {
		return records
	}

	return records[:n]
}
