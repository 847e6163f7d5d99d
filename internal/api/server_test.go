package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"feesuggest/internal/config"
	"feesuggest/internal/feesuggest"
)

type fakeSuggester struct {
	err    error
	newest string
}

func (f *fakeSuggester) SuggestFees(ctx context.Context, newest string) (*feesuggest.Suggestions, error) {
	f.newest = newest
	if f.err != nil {
		return nil, f.err
	}
	return &feesuggest.Suggestions{
		BaseFeeSuggestion:             "12375000000",
		BaseFeeTrend:                  feesuggest.TrendRising,
		CurrentBaseFee:                "10000000000",
		BlocksToConfirmationByBaseFee: map[int]string{4: "18933750000"},
		MaxPriorityFeeSuggestions:     map[string]string{feesuggest.TierFast: "3000000000"},
	}, nil
}

func (f *fakeSuggester) SuggestMaxBaseFee(ctx context.Context, newest string) (*feesuggest.MaxFeeSuggestions, error) {
	f.newest = newest
	if f.err != nil {
		return nil, f.err
	}
	return &feesuggest.MaxFeeSuggestions{BaseFeeSuggestion: "1", BaseFeeTrend: feesuggest.TrendFalling, CurrentBaseFee: "2"}, nil
}

func (f *fakeSuggester) SuggestMaxPriorityFee(ctx context.Context, newest string) (*feesuggest.MaxPriorityFeeSuggestions, error) {
	f.newest = newest
	if f.err != nil {
		return nil, f.err
	}
	return &feesuggest.MaxPriorityFeeSuggestions{
		MaxPriorityFeeSuggestions:     map[string]string{feesuggest.TierUrgent: "9000000000"},
		ConfirmationTimeByPriorityFee: map[int]string{60: "1"},
	}, nil
}

func newTestServer(token string, s Suggester) http.Handler {
	cfg := &config.Config{}
	cfg.API.AuthToken = token
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"}))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, logger, s, reg).Handler()
}

func get(h http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSuggestions(t *testing.T) {
	f := &fakeSuggester{}
	h := newTestServer("", f)

	rec := get(h, "/v1/suggestions?block=0x10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "0x10", f.newest)
	body := decodeBody(t, rec)
	require.Equal(t, "12375000000", body["baseFeeSuggestion"])
	require.Equal(t, "rising", body["baseFeeTrend"])
	require.Equal(t, map[string]interface{}{"4": "18933750000"}, body["blocksToConfirmationByBaseFee"])
}

func TestSubOperations(t *testing.T) {
	f := &fakeSuggester{}
	h := newTestServer("", f)

	rec := get(h, "/v1/suggestions/base-fee", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "", f.newest)
	require.Equal(t, "falling", decodeBody(t, rec)["baseFeeTrend"])

	rec = get(h, "/v1/suggestions/priority-fee?block=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "pending", f.newest)
	body := decodeBody(t, rec)
	require.Equal(t, map[string]interface{}{"urgent": "9000000000"}, body["maxPriorityFeeSuggestions"])
}

func TestErrorStatus(t *testing.T) {
	cases := map[error]int{
		errors.Wrap(feesuggest.ErrInvalidInput, "block tag"): http.StatusBadRequest,
		errors.Wrap(feesuggest.ErrMissingData, "no fees"):    http.StatusBadGateway,
		errors.Wrap(feesuggest.ErrUndefinedResult, "no ema"): http.StatusBadGateway,
		errors.New("dial tcp: connection refused"):           http.StatusBadGateway,
	}
	for err, status := range cases {
		h := newTestServer("", &fakeSuggester{err: err})
		rec := get(h, "/v1/suggestions", nil)
		require.Equal(t, status, rec.Code, err.Error())
		require.Equal(t, err.Error(), decodeBody(t, rec)["error"])
	}
}

func TestAuth(t *testing.T) {
	h := newTestServer("secret", &fakeSuggester{})

	require.Equal(t, http.StatusUnauthorized, get(h, "/v1/suggestions", nil).Code)
	require.Equal(t, http.StatusUnauthorized, get(h, "/v1/suggestions", map[string]string{"X-API-Key": "nope"}).Code)
	require.Equal(t, http.StatusOK, get(h, "/v1/suggestions", map[string]string{"X-API-Key": "secret"}).Code)
	require.Equal(t, http.StatusOK, get(h, "/v1/suggestions", map[string]string{"Authorization": "Bearer secret"}).Code)
	// health and metrics stay open for probes and scrapers
	require.Equal(t, http.StatusOK, get(h, "/health", nil).Code)
	require.Equal(t, http.StatusOK, get(h, "/metrics", nil).Code)
}

func TestMetricsAndRouting(t *testing.T) {
	h := newTestServer("", &fakeSuggester{})

	rec := get(h, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "test_total"))

	require.Equal(t, http.StatusNotFound, get(h, "/v1/unknown", nil).Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/suggestions", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
