package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seesaw/mfses/internal/data/cache"
)

func fakePolygon(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if r.URL.Query().Get("apiKey") == "" {
			http.Error(w, "missing key", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/prev"):
			w.Write([]byte(`{"results":[{"c":180.0,"o":178.0,"v":1000000}]}`))
		case strings.Contains(r.URL.Path, "/range/1/day/"):
			w.Write([]byte(`{"results":[{"t":1735689600000,"c":170.0},{"t":1735776000000,"c":180.0}]}`))
		case strings.HasPrefix(r.URL.Path, "/v3/reference/tickers/"):
			w.Write([]byte(`{"results":{"name":"Mega Corp","market_cap":2500000000000,
				"sic_description":"Technology","share_class_shares_outstanding":1000000000}}`))
		case strings.HasPrefix(r.URL.Path, "/vX/reference/financials"):
			w.Write([]byte(`{"results":[
				{"fiscal_period":"Q2","fiscal_year":"2026","financials":{
					"income_statement":{"net_income_loss":{"value":1500000000}},
					"balance_sheet":{"long_term_debt":{"value":2000000000},"current_debt":{"value":0},
						"liabilities":{"value":12000000000},"equity":{"value":10000000000}}}},
				{"fiscal_period":"Q1","fiscal_year":"2026","financials":{
					"income_statement":{"net_income_loss":{"value":1400000000}}}},
				{"fiscal_period":"Q2","fiscal_year":"2025","financials":{
					"income_statement":{"net_income_loss":{"value":1200000000}}}}
			]}`))
		case strings.HasPrefix(r.URL.Path, "/v3/reference/dividends"):
			w.Write([]byte(`{"results":[{"cash_amount":0.25},{"cash_amount":0.25},{"cash_amount":0.25},{"cash_amount":0.25}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func testProvider(srvURL string, c cache.Cache) *PolygonProvider {
	return NewPolygonProvider(PolygonConfig{
		BaseURL:        srvURL,
		APIKey:         "test",
		RequestTimeout: 5 * time.Second,
		RPS:            1000,
		Burst:          100,
		CacheTTL:       time.Minute,
		HistoryDays:    7,
	}, c)
}

func TestPolygonProvider_Snapshot(t *testing.T) {
	srv := fakePolygon(t, nil)
	defer srv.Close()

	p := testProvider(srv.URL, cache.New())
	snap, err := p.Snapshot(context.Background(), "MEGA")
	require.NoError(t, err)

	assert.Equal(t, "MEGA", snap.Ticker)
	assert.Equal(t, "Mega Corp", snap.Name)
	assert.Equal(t, 180.0, snap.CurrentPrice)
	assert.Equal(t, 2.5e12, snap.MarketCap)
	assert.Equal(t, "Technology", snap.Sector)

	// EPS: 1.5B * 4 / 1B shares = 6.0
	assert.InDelta(t, 6.0, snap.TrailingEPS, 1e-9)
	// YoY vs Q2 2025: prior EPS 4.8, growth 25%
	assert.InDelta(t, 25.0, snap.EPSGrowthRate, 1e-9)
	// D/E: 2B / 10B
	assert.InDelta(t, 0.2, snap.DebtToEquity, 1e-9)
	// Dividends: 1.00 / 180 * 100
	assert.InDelta(t, 0.5556, snap.DividendYield, 1e-3)

	require.Len(t, snap.RecentPriceHistory, 2)
	assert.Equal(t, 170.0, snap.RecentPriceHistory[0].Price)
	assert.Equal(t, 180.0, snap.RecentPriceHistory[1].Price)

	require.NoError(t, snap.Validate())
}

func TestPolygonProvider_CachesResponses(t *testing.T) {
	var hits atomic.Int64
	srv := fakePolygon(t, &hits)
	defer srv.Close()

	p := testProvider(srv.URL, cache.New())
	ctx := context.Background()

	_, err := p.Snapshot(ctx, "MEGA")
	require.NoError(t, err)
	first := hits.Load()

	_, err = p.Snapshot(ctx, "MEGA")
	require.NoError(t, err)
	assert.Equal(t, first, hits.Load(), "second run should be served from cache")
}

func TestPolygonProvider_HTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := testProvider(srv.URL, cache.New())
	_, err := p.Snapshot(context.Background(), "MEGA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
