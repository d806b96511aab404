package ars

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/sig-0/bnarates/fetch"
	"github.com/sig-0/bnarates/storage/types"
)

const (
	DefaultCurrentURL    = "https://www.bna.com.ar/Cotizador/MonedasHistorico"
	DefaultHistoricalURL = "https://www.bna.com.ar/Cotizador/HistoricoPrincipales"
)

// QueryDateLayout is the layout of the historical "fecha" parameter
const QueryDateLayout = "02/01/2006"

// Fetcher retrieves a page
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, query url.Values) (*fetch.Response, error)
}

type Option func(s *source)

// WithLogger specifies the logger for the source
func WithLogger(l *slog.Logger) Option {
	return func(s *source) {
		s.logger = l
	}
}

// WithURL overrides the page URL
func WithURL(u string) Option {
	return func(s *source) {
		s.url = u
	}
}

// WithLabel overrides the currency label matched in table rows
func WithLabel(label string) Option {
	return func(s *source) {
		s.label = label
	}
}

// source holds what both pages share
type source struct {
	fetcher Fetcher
	logger  *slog.Logger

	url   string
	label string
}

func newSource(fetcher Fetcher, pageURL string, opts ...Option) source {
	s := source{
		fetcher: fetcher,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		url:     pageURL,
		label:   DefaultLabel,
	}

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// document fetches and parses the page
func (s *source) document(ctx context.Context, query url.Values) (*HTMLDocument, *fetch.Response, error) {
	resp, err := s.fetcher.Fetch(ctx, s.url, query)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to fetch page: %w", err)
	}

	doc, err := NewHTMLDocument(resp.Body, resp.ContentType)
	if err != nil {
		s.logExtractFailure(resp, err)

		return nil, resp, fmt.Errorf("unable to parse page: %w", err)
	}

	return doc, resp, nil
}

// logExtractFailure records enough of the page to diagnose format drift
func (s *source) logExtractFailure(resp *fetch.Response, err error, args ...any) {
	kind := "parse"

	switch {
	case errors.Is(err, ErrNoDate):
		kind = "no_date"
	case errors.Is(err, ErrNoRate):
		kind = "no_rate"
	case errors.Is(err, ErrNotFound):
		kind = "not_found"
	}

	s.logger.Error(
		"unable to extract rate",
		append([]any{
			"url", resp.URL,
			"content_length", len(resp.Body),
			"kind", kind,
			"err", err,
		}, args...)...,
	)
}

// CurrentSource scrapes the current value page
type CurrentSource struct {
	source
}

// NewCurrentSource creates a new current value page source
func NewCurrentSource(fetcher Fetcher, opts ...Option) *CurrentSource {
	return &CurrentSource{
		source: newSource(fetcher, DefaultCurrentURL, opts...),
	}
}

func (s *CurrentSource) Name() string {
	return types.SourceCurrent.String()
}

// Fetch returns the latest published rate, dated as the page reports it
func (s *CurrentSource) Fetch(ctx context.Context) (*types.RateRecord, error) {
	s.logger.Info("scraping current value page", "url", s.url)

	doc, resp, err := s.document(ctx, nil)
	if err != nil {
		return nil, err
	}

	record, err := ExtractCurrent(doc, s.label)
	if err != nil {
		s.logExtractFailure(resp, err)

		return nil, fmt.Errorf("unable to extract current rate: %w", err)
	}

	s.logger.Info(
		"scraped current rate",
		"date", record.Date,
		"rate", record.RateSell,
	)

	return record, nil
}

// HistoricalSource scrapes the historical lookup page
type HistoricalSource struct {
	source
}

// NewHistoricalSource creates a new historical lookup page source
func NewHistoricalSource(fetcher Fetcher, opts ...Option) *HistoricalSource {
	return &HistoricalSource{
		source: newSource(fetcher, DefaultHistoricalURL, opts...),
	}
}

func (s *HistoricalSource) Name() string {
	return types.SourceHistorical.String()
}

// FetchDate returns the rate published for the given calendar date
func (s *HistoricalSource) FetchDate(ctx context.Context, date time.Time) (*types.RateRecord, error) {
	var (
		iso   = types.FormatDate(date)
		fecha = date.Format(QueryDateLayout)
	)

	s.logger.Info("scraping historical page", "date", iso)

	doc, resp, err := s.document(ctx, url.Values{
		"fecha":       []string{fecha},
		"filtroDolar": []string{"1"},
		"id":          []string{"monedas"},
	})
	if err != nil {
		return nil, err
	}

	rate, err := ExtractHistorical(doc, s.label, date, fecha)
	if err != nil {
		s.logExtractFailure(resp, err, "date", iso)

		return nil, fmt.Errorf("unable to extract historical rate: %w", err)
	}

	s.logger.Info(
		"scraped historical rate",
		"date", iso,
		"rate", rate,
	)

	return &types.RateRecord{
		Date:     iso,
		RateSell: rate,
		Source:   types.SourceHistorical,
	}, nil
}
