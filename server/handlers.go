package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sig-0/bnarates/storage/types"
)

const (
	defaultLimit = 10
	maxLimit     = 500
)

var (
	errUnableToFetchRates = errors.New("unable to fetch rates")
	errUnableToFetchStats = errors.New("unable to fetch stats")

	errInvalidLimit = errors.New("invalid limit")
	errInvalidDate  = errors.New("invalid date (must be YYYY-MM-DD)")
	errInvalidRange = errors.New("invalid range (from must not be after to)")
	errPartialRange = errors.New("invalid range (both from and to are required)")
	errRateNotFound = errors.New("rate not found")
)

// Rates returns every stored rate, newest date first,
// or the rates of the inclusive from/to range, oldest date first
func (s *Server) Rates(w http.ResponseWriter, r *http.Request) {
	var (
		fromParam = strings.TrimSpace(r.URL.Query().Get("from"))
		toParam   = strings.TrimSpace(r.URL.Query().Get("to"))
	)

	if fromParam == "" && toParam == "" {
		records, err := s.storage.All(r.Context())
		if err != nil {
			s.logger.Debug(
				"unable to fetch rates",
				"err", err,
			)

			writeError(w, http.StatusInternalServerError, errUnableToFetchRates)

			return
		}

		writeRates(w, records)

		return
	}

	from, to, err := parseRange(fromParam, toParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	records, err := s.storage.InRange(r.Context(), from, to)
	if err != nil {
		s.logger.Debug(
			"unable to fetch rates in range",
			"from", fromParam,
			"to", toParam,
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errUnableToFetchRates)

		return
	}

	writeRates(w, records)
}

// RecentRates returns the most recently fetched rates
func (s *Server) RecentRates(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	records, err := s.storage.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Debug(
			"unable to fetch recent rates",
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errUnableToFetchRates)

		return
	}

	writeRates(w, records)
}

// RateForDate returns the rate stored for a single date
func (s *Server) RateForDate(w http.ResponseWriter, r *http.Request) {
	date, err := types.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidDate)

		return
	}

	records, err := s.storage.InRange(r.Context(), date, date)
	if err != nil {
		s.logger.Debug(
			"unable to fetch rate",
			"date", types.FormatDate(date),
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errUnableToFetchRates)

		return
	}

	if len(records) == 0 {
		writeError(w, http.StatusNotFound, errRateNotFound)

		return
	}

	writeJSON(w, http.StatusOK, records[0])
}

// Stats returns the aggregate statistics of the store
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.storage.Stats(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch stats",
			"err", err,
		)

		writeError(w, http.StatusInternalServerError, errUnableToFetchStats)

		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func parseRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	if fromRaw == "" || toRaw == "" {
		return time.Time{}, time.Time{}, errPartialRange
	}

	from, err := types.ParseDate(fromRaw)
	if err != nil {
		return time.Time{}, time.Time{}, errInvalidDate
	}

	to, err := types.ParseDate(toRaw)
	if err != nil {
		return time.Time{}, time.Time{}, errInvalidDate
	}

	if from.After(to) {
		return time.Time{}, time.Time{}, errInvalidRange
	}

	return from, to, nil
}

func parseLimit(limitRaw string) (int, error) {
	v := strings.TrimSpace(limitRaw)
	if v == "" {
		return defaultLimit, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errInvalidLimit
	}

	if n == 0 {
		return defaultLimit, nil
	}

	return min(n, maxLimit), nil
}

func writeRates(w http.ResponseWriter, records []*types.RateRecord) {
	if records == nil {
		records = []*types.RateRecord{}
	}

	writeJSON(w, http.StatusOK, &RatesResponse{
		Results: records,
		Total:   len(records),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := &ErrorResponse{
		Error: err.Error(),
	}

	writeJSON(w, status, resp)
}
