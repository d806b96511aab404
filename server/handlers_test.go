package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/bnarates/server/config"
	"github.com/sig-0/bnarates/storage/mock"
	"github.com/sig-0/bnarates/storage/types"
)

func sampleRecords() []*types.RateRecord {
	return []*types.RateRecord{
		{
			Date:      "2024-12-16",
			RateSell:  1295,
			Source:    types.SourceCurrent,
			FetchedAt: time.Date(2024, time.December, 17, 9, 0, 0, 0, time.UTC),
		},
		{
			Date:      "2024-12-15",
			RateSell:  1292.5,
			Source:    types.SourceHistorical,
			FetchedAt: time.Date(2024, time.December, 16, 9, 0, 0, 0, time.UTC),
		},
	}
}

func decodeRates(t *testing.T, w *httptest.ResponseRecorder) *RatesResponse {
	t.Helper()

	var resp RatesResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	return &resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	return resp.Error
}

func TestHandlers_Rates(t *testing.T) {
	t.Parallel()

	t.Run("all rates", func(t *testing.T) {
		t.Parallel()

		storage := &mock.Storage{
			AllFn: func(_ context.Context) ([]*types.RateRecord, error) {
				return sampleRecords(), nil
			},
		}

		s := &Server{
			storage: storage,
			logger:  noopLogger,
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/rates", http.NoBody)
		w := httptest.NewRecorder()
		s.Rates(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		resp := decodeRates(t, w)
		require.Len(t, resp.Results, 2)
		assert.Equal(t, 2, resp.Total)
		assert.Equal(t, "2024-12-16", resp.Results[0].Date)
		assert.Equal(t, types.SourceHistorical, resp.Results[1].Source)
	})

	t.Run("empty store", func(t *testing.T) {
		t.Parallel()

		s := &Server{
			storage: &mock.Storage{},
			logger:  noopLogger,
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/rates", http.NoBody)
		w := httptest.NewRecorder()
		s.Rates(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"results":[],"total":0}`, w.Body.String())
	})

	t.Run("range", func(t *testing.T) {
		t.Parallel()

		var capturedFrom, capturedTo time.Time

		storage := &mock.Storage{
			InRangeFn: func(_ context.Context, from, to time.Time) ([]*types.RateRecord, error) {
				capturedFrom = from
				capturedTo = to

				return sampleRecords()[1:], nil
			},
		}

		s := &Server{
			storage: storage,
			logger:  noopLogger,
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/rates?from=2024-12-01&to=2024-12-15", http.NoBody)
		w := httptest.NewRecorder()
		s.Rates(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		assert.Equal(t, "2024-12-01", types.FormatDate(capturedFrom))
		assert.Equal(t, "2024-12-15", types.FormatDate(capturedTo))
		assert.Equal(t, 1, decodeRates(t, w).Total)
	})

	t.Run("invalid ranges", func(t *testing.T) {
		t.Parallel()

		testTable := []struct {
			name     string
			query    string
			expected error
		}{
			{"only from", "?from=2024-12-01", errPartialRange},
			{"only to", "?to=2024-12-01", errPartialRange},
			{"bad from", "?from=01/12/2024&to=2024-12-15", errInvalidDate},
			{"bad to", "?from=2024-12-01&to=2024-02-30", errInvalidDate},
			{"reversed", "?from=2024-12-15&to=2024-12-01", errInvalidRange},
		}

		for _, testCase := range testTable {
			t.Run(testCase.name, func(t *testing.T) {
				t.Parallel()

				var called bool

				storage := &mock.Storage{
					InRangeFn: func(context.Context, time.Time, time.Time) ([]*types.RateRecord, error) {
						called = true

						return nil, nil
					},
				}

				s := &Server{
					storage: storage,
					logger:  noopLogger,
				}

				req := httptest.NewRequest(http.MethodGet, "/v1/rates"+testCase.query, http.NoBody)
				w := httptest.NewRecorder()
				s.Rates(w, req)

				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Equal(t, testCase.expected.Error(), decodeError(t, w))
				assert.False(t, called)
			})
		}
	})

	t.Run("storage error", func(t *testing.T) {
		t.Parallel()

		storage := &mock.Storage{
			AllFn: func(_ context.Context) ([]*types.RateRecord, error) {
				return nil, errors.New("boom")
			},
		}

		s := &Server{
			storage: storage,
			logger:  noopLogger,
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/rates", http.NoBody)
		w := httptest.NewRecorder()
		s.Rates(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, errUnableToFetchRates.Error(), decodeError(t, w))
	})
}

func TestHandlers_RecentRates(t *testing.T) {
	t.Parallel()

	testTable := []struct {
		name     string
		query    string
		expected int
	}{
		{"default limit", "", defaultLimit},
		{"zero falls back to default", "?limit=0", defaultLimit},
		{"explicit limit", "?limit=5", 5},
		{"clamped to max", "?limit=100000", maxLimit},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			var captured int

			storage := &mock.Storage{
				RecentFn: func(_ context.Context, limit int) ([]*types.RateRecord, error) {
					captured = limit

					return sampleRecords(), nil
				},
			}

			s := &Server{
				storage: storage,
				logger:  noopLogger,
			}

			req := httptest.NewRequest(http.MethodGet, "/v1/rates/recent"+testCase.query, http.NoBody)
			w := httptest.NewRecorder()
			s.RecentRates(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, testCase.expected, captured)
		})
	}

	t.Run("invalid limit", func(t *testing.T) {
		t.Parallel()

		for _, limit := range []string{"abc", "-1"} {
			s := &Server{
				storage: &mock.Storage{},
				logger:  noopLogger,
			}

			req := httptest.NewRequest(http.MethodGet, "/v1/rates/recent?limit="+limit, http.NoBody)
			w := httptest.NewRecorder()
			s.RecentRates(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code, limit)
		}
	})
}

func TestHandlers_RateForDate(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		var capturedFrom, capturedTo time.Time

		storage := &mock.Storage{
			InRangeFn: func(_ context.Context, from, to time.Time) ([]*types.RateRecord, error) {
				capturedFrom = from
				capturedTo = to

				return sampleRecords()[1:], nil
			},
		}

		s := &Server{
			storage: storage,
			logger:  noopLogger,
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/rates/2024-12-15", http.NoBody)
		req = withRouteParams(t, req, map[string]string{
			"date": "2024-12-15",
		})

		w := httptest.NewRecorder()
		s.RateForDate(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var record types.RateRecord
		require.NoError(t, json.NewDecoder(w.Body).Decode(&record))

		assert.Equal(t, "2024-12-15", record.Date)
		assert.InDelta(t, 1292.5, record.RateSell, 0.0001)
		assert.Equal(t, capturedFrom, capturedTo)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		s := &Server{
			storage: &mock.Storage{},
			logger:  noopLogger,
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/rates/2024-12-14", http.NoBody)
		req = withRouteParams(t, req, map[string]string{
			"date": "2024-12-14",
		})

		w := httptest.NewRecorder()
		s.RateForDate(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, errRateNotFound.Error(), decodeError(t, w))
	})

	t.Run("invalid date", func(t *testing.T) {
		t.Parallel()

		var called bool

		storage := &mock.Storage{
			InRangeFn: func(context.Context, time.Time, time.Time) ([]*types.RateRecord, error) {
				called = true

				return nil, nil
			},
		}

		s := &Server{
			storage: storage,
			logger:  noopLogger,
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/rates/15-12-2024", http.NoBody)
		req = withRouteParams(t, req, map[string]string{
			"date": "15-12-2024",
		})

		w := httptest.NewRecorder()
		s.RateForDate(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, called)
	})

	t.Run("storage error", func(t *testing.T) {
		t.Parallel()

		storage := &mock.Storage{
			InRangeFn: func(context.Context, time.Time, time.Time) ([]*types.RateRecord, error) {
				return nil, errors.New("boom")
			},
		}

		s := &Server{
			storage: storage,
			logger:  noopLogger,
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/rates/2024-12-15", http.NoBody)
		req = withRouteParams(t, req, map[string]string{
			"date": "2024-12-15",
		})

		w := httptest.NewRecorder()
		s.RateForDate(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandlers_Stats(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		storage := &mock.Storage{
			StatsFn: func(_ context.Context) (*types.Stats, error) {
				return types.NewStats(sampleRecords()), nil
			},
		}

		s := &Server{
			storage: storage,
			logger:  noopLogger,
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/stats", http.NoBody)
		w := httptest.NewRecorder()
		s.Stats(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var stats types.Stats
		require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))

		assert.Equal(t, 2, stats.Total)
		assert.Equal(t, "2024-12-15", stats.FirstDate)
		assert.Equal(t, "2024-12-16", stats.LastDate)
		assert.Equal(t, 1, stats.Sources[types.SourceCurrent])
	})

	t.Run("storage error", func(t *testing.T) {
		t.Parallel()

		storage := &mock.Storage{
			StatsFn: func(_ context.Context) (*types.Stats, error) {
				return nil, errors.New("boom")
			},
		}

		s := &Server{
			storage: storage,
			logger:  noopLogger,
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/stats", http.NoBody)
		w := httptest.NewRecorder()
		s.Stats(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, errUnableToFetchStats.Error(), decodeError(t, w))
	})
}

func TestServer_Routes(t *testing.T) {
	t.Parallel()

	storage := &mock.Storage{
		AllFn: func(_ context.Context) ([]*types.RateRecord, error) {
			return sampleRecords(), nil
		},
		RecentFn: func(_ context.Context, _ int) ([]*types.RateRecord, error) {
			return sampleRecords()[:1], nil
		},
		InRangeFn: func(_ context.Context, _, _ time.Time) ([]*types.RateRecord, error) {
			return sampleRecords()[1:], nil
		},
		StatsFn: func(_ context.Context) (*types.Stats, error) {
			return types.NewStats(sampleRecords()), nil
		},
	}

	s, err := New(storage)
	require.NoError(t, err)

	testTable := []struct {
		name        string
		path        string
		contentType string
		status      int
	}{
		{"health", "/health", "", http.StatusOK},
		{"all rates", "/v1/rates", "application/json", http.StatusOK},
		{"recent rates", "/v1/rates/recent", "application/json", http.StatusOK},
		{"single date", "/v1/rates/2024-12-15", "application/json", http.StatusOK},
		{"stats", "/v1/stats", "application/json", http.StatusOK},
		{"openapi", "/openapi.yaml", "application/yaml; charset=utf-8", http.StatusOK},
		{"docs", "/docs", "text/html; charset=utf-8", http.StatusOK},
		{"unknown", "/v2/rates", "", http.StatusNotFound},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, testCase.path, http.NoBody)
			w := httptest.NewRecorder()

			s.mux.ServeHTTP(w, req)

			assert.Equal(t, testCase.status, w.Code)

			if testCase.contentType != "" {
				assert.Equal(t, testCase.contentType, w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestServer_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.ListenAddress = "localhost"

	_, err := New(&mock.Storage{}, WithConfig(cfg))
	assert.ErrorIs(t, err, config.ErrInvalidListenAddress)
}

func withRouteParams(t *testing.T, req *http.Request, params map[string]string) *http.Request {
	t.Helper()

	rctx := chi.NewRouteContext()

	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}

	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
