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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/p2prates/engine"
	"github.com/sig-0/p2prates/quote"
	"github.com/sig-0/p2prates/server/config"
	"github.com/sig-0/p2prates/storage"
	"github.com/sig-0/p2prates/storage/memory"
	"github.com/sig-0/p2prates/storage/mock"
	"github.com/sig-0/p2prates/storage/types"
)

var testAsOf = time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, s storage.Storage) *Server {
	t.Helper()

	return &Server{
		quotes: quote.NewService(s, engine.DefaultTables()),
		logger: noopLogger,
	}
}

// seededStorage returns an in-memory storage with the given latest values
func seededStorage(t *testing.T, rates map[string]string) *memory.Storage {
	t.Helper()

	s := memory.NewStorage()

	for name, value := range rates {
		require.NoError(t, s.SaveRate(context.Background(), &types.NamedRate{
			AsOf:  testAsOf,
			Name:  name,
			Value: decimal.RequireFromString(value),
		}))
	}

	return s
}

func TestHandlers_RateNames(t *testing.T) {
	t.Parallel()

	t.Run("storage error", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t, &mock.Storage{
			ListRateNamesFn: func(context.Context) ([]string, error) {
				return nil, errors.New("boom")
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/rates", http.NoBody)
		w := httptest.NewRecorder()

		s.RateNames(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, errUnableToFetchRates.Error(), decodeError(t, w))
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		expected := []string{"Tasa full Chile - Venezuela", "USDT en Chile"}

		s := newTestServer(t, &mock.Storage{
			ListRateNamesFn: func(context.Context) ([]string, error) {
				return expected, nil
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/rates", http.NoBody)
		w := httptest.NewRecorder()

		s.RateNames(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp RateNamesResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, expected, resp.Results)
	})
}

func TestHandlers_LatestRate(t *testing.T) {
	t.Parallel()

	t.Run("missing name", func(t *testing.T) {
		t.Parallel()

		var called bool

		s := newTestServer(t, &mock.Storage{
			LatestRatesFn: func(context.Context, string, int) ([]*types.NamedRate, error) {
				called = true

				return nil, nil
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/rates/latest", http.NoBody)
		w := httptest.NewRecorder()

		s.LatestRate(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, called)
	})

	t.Run("rate unavailable", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t, memory.NewStorage())

		req := httptest.NewRequest(http.MethodGet, "/v1/rates/latest?name=USDT+en+Chile", http.NoBody)
		w := httptest.NewRecorder()

		s.LatestRate(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("storage error", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t, &mock.Storage{
			LatestRatesFn: func(context.Context, string, int) ([]*types.NamedRate, error) {
				return nil, errors.New("boom")
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/rates/latest?name=USDT+en+Chile", http.NoBody)
		w := httptest.NewRecorder()

		s.LatestRate(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t, seededStorage(t, map[string]string{
			"Tasa público Chile - Venezuela": "0.2989",
		}))

		req := httptest.NewRequest(
			http.MethodGet,
			"/v1/rates/latest?name=Tasa+p%C3%BAblico+Chile+-+Venezuela",
			http.NoBody,
		)
		w := httptest.NewRecorder()

		s.LatestRate(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var rate types.NamedRate

		require.NoError(t, json.NewDecoder(w.Body).Decode(&rate))
		assert.Equal(t, "Tasa público Chile - Venezuela", rate.Name)
		assert.Equal(t, "0.2989", rate.Value.String())
		assert.True(t, testAsOf.Equal(rate.AsOf))
		assert.Equal(t, "-04:00", rate.AsOf.Format("-07:00"))
	})
}

func TestHandlers_RateHistory(t *testing.T) {
	t.Parallel()

	t.Run("invalid limit", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t, memory.NewStorage())

		req := httptest.NewRequest(http.MethodGet, "/v1/rates/history?name=x&limit=nope", http.NoBody)
		w := httptest.NewRecorder()

		s.RateHistory(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		var capturedLimit int

		s := newTestServer(t, &mock.Storage{
			LatestRatesFn: func(_ context.Context, name string, limit int) ([]*types.NamedRate, error) {
				capturedLimit = limit

				return []*types.NamedRate{
					{Name: name, Value: decimal.NewFromInt(2)},
					{Name: name, Value: decimal.NewFromInt(1)},
				}, nil
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/rates/history?name=x&limit=999", http.NoBody)
		w := httptest.NewRecorder()

		s.RateHistory(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var page types.Page[*types.NamedRate]

		require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
		assert.Len(t, page.Results, 2)
		assert.Equal(t, int64(2), page.Total)
		assert.Equal(t, maxLimit, capturedLimit)
	})
}

func TestHandlers_PairQuote(t *testing.T) {
	t.Parallel()

	rates := seededStorage(t, map[string]string{
		"Tasa público Chile - Venezuela":    "0.2989",
		"Tasa mayorista Chile - Venezuela":  "0.3036",
		"Tasa público Colombia - Venezuela": "12.5",
	})

	serve := func(t *testing.T, url string, params map[string]string) *httptest.ResponseRecorder {
		t.Helper()

		req := httptest.NewRequest(http.MethodGet, url, http.NoBody)
		req = withRouteParams(t, req, params)

		w := httptest.NewRecorder()
		newTestServer(t, rates).PairQuote(w, req)

		return w
	}

	chileVenezuela := map[string]string{
		"origin":      "Chile",
		"destination": "Venezuela",
	}

	t.Run("default tier", func(t *testing.T) {
		t.Parallel()

		w := serve(t, "/v1/quotes/Chile/Venezuela", chileVenezuela)

		require.Equal(t, http.StatusOK, w.Code)

		var resp QuoteResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "Tasa público Chile - Venezuela", resp.Name)
		assert.Equal(t, "Chile", resp.Origin)
		assert.Equal(t, "Venezuela", resp.Destination)
		assert.Equal(t, "0.2989", resp.Rate.String())
		assert.Nil(t, resp.Amount)
		assert.Nil(t, resp.Converted)
	})

	t.Run("tier and amount", func(t *testing.T) {
		t.Parallel()

		w := serve(t, "/v1/quotes/Chile/Venezuela?tier=mayorista&amount=100000", chileVenezuela)

		require.Equal(t, http.StatusOK, w.Code)

		var resp QuoteResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "mayorista", resp.Tier)
		require.NotNil(t, resp.Converted)
		assert.Equal(t, "30360", resp.Converted.String())
	})

	t.Run("oriented pair", func(t *testing.T) {
		t.Parallel()

		w := serve(t, "/v1/quotes/Colombia/Venezuela?amount=1000", map[string]string{
			"origin":      "Colombia",
			"destination": "Venezuela",
		})

		require.Equal(t, http.StatusOK, w.Code)

		var resp QuoteResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.True(t, resp.Oriented)
		require.NotNil(t, resp.Converted)
		assert.Equal(t, "80", resp.Converted.String())
	})

	t.Run("invalid tier", func(t *testing.T) {
		t.Parallel()

		w := serve(t, "/v1/quotes/Chile/Venezuela?tier=vip", chileVenezuela)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, errInvalidTier.Error(), decodeError(t, w))
	})

	t.Run("invalid amount", func(t *testing.T) {
		t.Parallel()

		for _, amount := range []string{"nope", "0", "-10"} {
			w := serve(t, "/v1/quotes/Chile/Venezuela?amount="+amount, chileVenezuela)

			assert.Equal(t, http.StatusBadRequest, w.Code, amount)
		}
	})

	t.Run("same country", func(t *testing.T) {
		t.Parallel()

		w := serve(t, "/v1/quotes/Chile/Chile", map[string]string{
			"origin":      "Chile",
			"destination": "Chile",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rate unavailable", func(t *testing.T) {
		t.Parallel()

		w := serve(t, "/v1/quotes/Chile/Perú?tier=full", map[string]string{
			"origin":      "Chile",
			"destination": "Perú",
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandlers_USDT(t *testing.T) {
	t.Parallel()

	rates := seededStorage(t, map[string]string{
		"USDT en Chile (venta)": "950",
	})

	serve := func(t *testing.T, url, country string) *httptest.ResponseRecorder {
		t.Helper()

		req := httptest.NewRequest(http.MethodGet, url, http.NoBody)
		req = withRouteParams(t, req, map[string]string{"country": country})

		w := httptest.NewRecorder()
		newTestServer(t, rates).USDT(w, req)

		return w
	}

	t.Run("missing amount", func(t *testing.T) {
		t.Parallel()

		w := serve(t, "/v1/usdt/Chile", "Chile")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown country", func(t *testing.T) {
		t.Parallel()

		w := serve(t, "/v1/usdt/Narnia?amount=10", "Narnia")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		w := serve(t, "/v1/usdt/Chile?amount=95000", "Chile")

		require.Equal(t, http.StatusOK, w.Code)

		var resp QuoteResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "USDT en Chile (venta)", resp.Name)
		assert.Equal(t, "USDT", resp.Destination)
		require.NotNil(t, resp.Converted)
		assert.Equal(t, "100", resp.Converted.String())
	})
}

func TestHandlers_Buckets(t *testing.T) {
	t.Parallel()

	t.Run("invalid side", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/v1/buckets/Chile/HOLD", http.NoBody)
		req = withRouteParams(t, req, map[string]string{"label": "Chile", "side": "HOLD"})

		w := httptest.NewRecorder()
		newTestServer(t, memory.NewStorage()).Buckets(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no buckets", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/v1/buckets/Chile/sell", http.NoBody)
		req = withRouteParams(t, req, map[string]string{"label": "Chile", "side": "sell"})

		w := httptest.NewRecorder()
		newTestServer(t, memory.NewStorage()).Buckets(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("storage error", func(t *testing.T) {
		t.Parallel()

		s := newTestServer(t, &mock.Storage{
			LatestBucketRatesFn: func(context.Context, string, types.Side) ([]*types.BucketRate, error) {
				return nil, errors.New("boom")
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/buckets/Chile/SELL", http.NoBody)
		req = withRouteParams(t, req, map[string]string{"label": "Chile", "side": "SELL"})

		w := httptest.NewRecorder()
		s.Buckets(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		var capturedSide types.Side

		s := newTestServer(t, &mock.Storage{
			LatestBucketRatesFn: func(_ context.Context, label string, side types.Side) ([]*types.BucketRate, error) {
				capturedSide = side

				return []*types.BucketRate{{
					Label:  label,
					Side:   side,
					Bucket: types.BucketFull,
					Value:  decimal.NewFromInt(950),
				}}, nil
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/buckets/Chile/sell", http.NoBody)
		req = withRouteParams(t, req, map[string]string{"label": "Chile", "side": "sell"})

		w := httptest.NewRecorder()
		s.Buckets(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp BucketsResponse

		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, types.BucketFull, resp.Results[0].Bucket)
		assert.Equal(t, types.SideSELL, capturedSide)
	})
}

func TestServer_Routes(t *testing.T) {
	t.Parallel()

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.ListenAddress = "nope"

		_, err := New(quote.NewService(memory.NewStorage(), nil), WithConfig(cfg))

		assert.ErrorIs(t, err, config.ErrInvalidListenAddress)
	})

	t.Run("registered routes", func(t *testing.T) {
		t.Parallel()

		registry := prometheus.NewRegistry()
		engine.NewMetrics(registry)

		s, err := New(
			quote.NewService(seededStorage(t, map[string]string{"USDT en Chile": "960"}), nil),
			WithGatherer(registry),
		)
		require.NoError(t, err)

		srv := httptest.NewServer(s.Handler())
		t.Cleanup(srv.Close)

		testTable := []struct {
			path     string
			expected int
		}{
			{"/health", http.StatusOK},
			{"/v1/rates", http.StatusOK},
			{"/v1/rates/latest?name=USDT+en+Chile", http.StatusOK},
			{"/v1/rates/latest?name=USDT+en+Narnia", http.StatusNotFound},
			{"/v1/quotes/Chile/Venezuela", http.StatusNotFound},
			{"/v1/usdt/Chile?amount=10", http.StatusNotFound},
			{"/v1/buckets/Chile/SELL", http.StatusNotFound},
			{"/metrics", http.StatusOK},
			{"/openapi.yaml", http.StatusOK},
			{"/docs", http.StatusOK},
			{"/v2/rates", http.StatusNotFound},
		}

		for _, testCase := range testTable {
			resp, err := srv.Client().Get(srv.URL + testCase.path)
			require.NoError(t, err)

			_ = resp.Body.Close()

			assert.Equal(t, testCase.expected, resp.StatusCode, testCase.path)
		}
	})

	t.Run("custom routes", func(t *testing.T) {
		t.Parallel()

		s, err := New(quote.NewService(memory.NewStorage(), nil))
		require.NoError(t, err)

		s.Routes(func(router chi.Router) {
			router.Get("/custom", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			})
		})

		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/custom", http.NoBody))

		assert.Equal(t, http.StatusTeapot, w.Code)
	})
}

func TestUtils_ParseLimit(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		limit, err := parseLimit("")

		require.NoError(t, err)
		assert.Equal(t, defaultLimit, limit)
	})

	t.Run("clamps limit", func(t *testing.T) {
		t.Parallel()

		limit, err := parseLimit("999")

		require.NoError(t, err)
		assert.Equal(t, maxLimit, limit)
	})

	t.Run("invalid limit", func(t *testing.T) {
		t.Parallel()

		for _, invalid := range []string{"nope", "-1"} {
			_, err := parseLimit(invalid)

			assert.ErrorIs(t, err, errInvalidLimit)
		}
	})
}

func TestUtils_ParseTierParam(t *testing.T) {
	t.Parallel()

	testTable := []struct {
		raw      string
		expected engine.Tier
	}{
		{"", engine.TierPublic},
		{"full", engine.TierFull},
		{"FULL", engine.TierFull},
		{"publico", engine.TierPublic},
		{"público", engine.TierPublic},
		{" mayorista ", engine.TierWholesale},
	}

	for _, testCase := range testTable {
		t.Run(testCase.raw, func(t *testing.T) {
			t.Parallel()

			tier, err := parseTierParam(testCase.raw)

			require.NoError(t, err)
			assert.Equal(t, testCase.expected, tier)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		_, err := parseTierParam("vip")

		assert.ErrorIs(t, err, errInvalidTier)
	})
}

func withRouteParams(t *testing.T, req *http.Request, params map[string]string) *http.Request {
	t.Helper()

	rctx := chi.NewRouteContext()

	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}

	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp ErrorResponse

	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	return resp.Error
}
