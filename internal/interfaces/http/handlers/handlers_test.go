package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seesaw/mfses/internal/domain/scoring"
	"github.com/seesaw/mfses/internal/report"
)

type stubSource struct {
	payload report.Payload
	set     bool
}

func (s *stubSource) LatestPayload() (report.Payload, bool) {
	return s.payload, s.set
}

func testPayload() report.Payload {
	return report.Payload{
		Updated: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
		Stocks: []scoring.Result{
			{
				Ticker: "AAPL",
				Name:   "Apple Inc.",
				SubScores: scoring.SubScores{
					Moat: 20, Growth: 14, Balance: 18, Valuation: 12, Sentiment: 12,
				},
				Composites: scoring.CompositeScores{ShortTerm: 14.4, MidTerm: 15.3, LongTerm: 16.2},
			},
		},
		Failures: []report.Failure{
			{Ticker: "BROKEN", Error: "snapshot BROKEN: market_cap must be positive"},
		},
	}
}

func newTestRouter(src ResultSource) *mux.Router {
	h := NewHandlers(src, nil)
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health)
	r.HandleFunc("/scores", h.Scores)
	r.HandleFunc("/scores/{ticker}", h.ScoreByTicker)
	r.NotFoundHandler = http.HandlerFunc(h.NotFound)
	return r
}

func TestHealth_BeforeAndAfterFirstRun(t *testing.T) {
	src := &stubSource{}
	router := newTestRouter(src)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "waiting_for_first_run", body["status"])

	src.payload = testPayload()
	src.set = true

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["scored"])
	assert.Equal(t, float64(1), body["failed"])
}

func TestScores_UnavailableUntilFirstRun(t *testing.T) {
	router := newTestRouter(&stubSource{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scores", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestScores_ReturnsLatestRun(t *testing.T) {
	router := newTestRouter(&stubSource{payload: testPayload(), set: true})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scores", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got report.Payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Stocks, 1)
	assert.Equal(t, "AAPL", got.Stocks[0].Ticker)
	assert.InDelta(t, 16.2, got.Stocks[0].Composites.LongTerm, 1e-9)
}

func TestScoreByTicker(t *testing.T) {
	router := newTestRouter(&stubSource{payload: testPayload(), set: true})

	cases := []struct {
		name   string
		path   string
		status int
	}{
		{"scored ticker", "/scores/AAPL", http.StatusOK},
		{"failed ticker", "/scores/BROKEN", http.StatusUnprocessableEntity},
		{"unknown ticker", "/scores/ZZZZ", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestScoreByTicker_IncludesAudit(t *testing.T) {
	router := newTestRouter(&stubSource{payload: testPayload(), set: true})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scores/AAPL", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Result scoring.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 20, body.Result.SubScores.Moat)
}

func TestNotFound(t *testing.T) {
	router := newTestRouter(&stubSource{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
