package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"correlationBot/internal/finance"
	"correlationBot/internal/storage"
)

type fakeRunner struct {
	res  *finance.Result
	err  error
	reqs []finance.Request
}

func (f *fakeRunner) Run(_ context.Context, req finance.Request) (*finance.Result, error) {
	f.reqs = append(f.reqs, req)
	return f.res, f.err
}

func sampleResult() *finance.Result {
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	prices := &finance.PricePanel{Panel: finance.Panel{
		Dates:   []time.Time{d1, d2},
		Symbols: []string{"AAA", "BBB"},
		Columns: [][]float64{{1, 2}, {3, 4}},
	}}
	return &finance.Result{
		RunID:   "run-42",
		Request: finance.Request{Frequency: finance.Daily, Window: 30},
		Prices:  prices,
		Correlation: &finance.CorrelationMatrix{
			Symbols:      []string{"AAA", "BBB"},
			Values:       [][]float64{{1, math.NaN()}, {math.NaN(), 1}},
			Observations: 3,
		},
		Breakdown: map[finance.Frequency]*finance.CorrelationMatrix{},
		Warnings:  []finance.Warning{{Kind: finance.WarnDataUnavailable, Symbol: "CCC", Message: "no data returned for this symbol"}},
	}
}

func newTestServer(t *testing.T, runner Runner, store *storage.Store) *Server {
	t.Helper()
	s := New(runner, Options{
		Defaults: finance.RequestDefaults{Window: 30, LookbackDays: 365, RiskFreeRate: 0.01},
		Store:    store,
	}, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC) }
	return s
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalysis(t *testing.T) {
	db, err := storage.OpenSQLite("file:" + filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, storage.InitSchema(db))
	store := storage.NewStore(db)

	runner := &fakeRunner{res: sampleResult()}
	s := newTestServer(t, runner, store)

	rec := post(t, s.Handler(), "/api/analysis", `{"symbols":["aaa","bbb","ccc"],"frequency":"monthly","pair":["aaa","bbb"],"risk":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, runner.reqs, 1)
	req := runner.reqs[0]
	assert.Equal(t, finance.Monthly, req.Frequency)
	assert.Equal(t, [2]string{"AAA", "BBB"}, req.Pair)
	assert.True(t, req.Risk)
	assert.Equal(t, 0.01, req.RiskFreeRate)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), req.End)
	assert.Equal(t, req.End.AddDate(0, 0, -365), req.Start)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-42", body["run_id"])
	corr := body["correlation"].(map[string]any)
	values := corr["values"].([]any)
	row0 := values[0].([]any)
	assert.Equal(t, 1.0, row0[0])
	assert.Nil(t, row0[1])
	warnings := body["warnings"].([]any)
	require.Len(t, warnings, 1)
	assert.Equal(t, "data_unavailable", warnings[0].(map[string]any)["kind"])

	stats, err := store.UsageStats(0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats["api"].Count)
}

func TestAnalysisErrors(t *testing.T) {
	testCases := []struct {
		name   string
		runErr error
		body   string
		status int
	}{
		{"bad json", nil, `{"symbols":`, http.StatusBadRequest},
		{"unknown field", nil, `{"tickers":["A"]}`, http.StatusBadRequest},
		{"bad frequency", nil, `{"symbols":["A","B"],"frequency":"hourly"}`, http.StatusBadRequest},
		{"bad window", nil, `{"symbols":["A","B"],"window":1}`, http.StatusBadRequest},
		{"bad pair", nil, `{"symbols":["A","B"],"pair":["A"]}`, http.StatusBadRequest},
		{"bad dates", nil, `{"symbols":["A","B"],"start":"2024-05-01","end":"2024-04-01"}`, http.StatusBadRequest},
		{"no usable data", finance.ErrNoUsableData, `{"symbols":["A","B"]}`, http.StatusUnprocessableEntity},
		{"no overlap", finance.ErrInsufficientOverlap, `{"symbols":["A","B"]}`, http.StatusUnprocessableEntity},
		{"no symbols", finance.ErrNoSymbols, `{"symbols":[]}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, &fakeRunner{err: tc.runErr}, nil)
			rec := post(t, s.Handler(), "/api/analysis", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestCorrelationCSV(t *testing.T) {
	s := newTestServer(t, &fakeRunner{res: sampleResult()}, nil)

	rec := post(t, s.Handler(), "/api/analysis/correlation.csv", `{"symbols":["AAA","BBB"],"start":"2024-01-01","end":"2024-02-01"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "run-42", rec.Header().Get("X-Run-ID"))
	assert.Equal(t, ",AAA,BBB\nAAA,1.000,\nBBB,,1.000\n", rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/analysis", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
