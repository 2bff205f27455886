package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/seesaw/mfses/internal/data/cache"
	"github.com/seesaw/mfses/internal/domain/scoring"
)

// PolygonConfig configures the Polygon.io market data client.
type PolygonConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	RPS            float64
	Burst          int
	CacheTTL       time.Duration
	HistoryDays    int
}

func (c *PolygonConfig) withDefaults() PolygonConfig {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = "https://api.polygon.io"
	}
	if out.RequestTimeout == 0 {
		out.RequestTimeout = 30 * time.Second
	}
	if out.RPS == 0 {
		out.RPS = 4.5 / 60 // free tier: 5/min with headroom
	}
	if out.Burst == 0 {
		out.Burst = 1
	}
	if out.CacheTTL == 0 {
		out.CacheTTL = 15 * time.Minute
	}
	if out.HistoryDays == 0 {
		out.HistoryDays = 30
	}
	return out
}

// PolygonProvider assembles SecuritySnapshots from the Polygon REST API.
// Every request flows through a shared rate limiter and circuit breaker;
// successful responses are cached so back-to-back runs stay within budget.
type PolygonProvider struct {
	cfg     PolygonConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cache   cache.Cache
}

func NewPolygonProvider(cfg PolygonConfig, c cache.Cache) *PolygonProvider {
	cfg = cfg.withDefaults()
	if c == nil {
		c = cache.New()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "polygon",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("provider circuit breaker state change")
		},
	})
	return &PolygonProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		breaker: breaker,
		cache:   c,
	}
}

// Snapshot fetches all fundamentals for one ticker and assembles the
// engine's input record. Field-level gaps are left zero-valued; the engine's
// snapshot validation decides whether the ticker is scorable.
func (p *PolygonProvider) Snapshot(ctx context.Context, ticker string) (scoring.SecuritySnapshot, error) {
	snap := scoring.SecuritySnapshot{Ticker: ticker}

	price, err := p.prevDayClose(ctx, ticker)
	if err != nil {
		return snap, fmt.Errorf("price data for %s: %w", ticker, err)
	}
	snap.CurrentPrice = price

	details, err := p.tickerDetails(ctx, ticker)
	if err != nil {
		return snap, fmt.Errorf("ticker details for %s: %w", ticker, err)
	}
	snap.Name = details.Name
	snap.MarketCap = details.MarketCap
	snap.Sector = details.Sector

	fin, err := p.financials(ctx, ticker, details.SharesOutstanding)
	if err != nil {
		return snap, fmt.Errorf("financials for %s: %w", ticker, err)
	}
	snap.TrailingEPS = fin.EPS
	snap.EPSGrowthRate = fin.EPSGrowth
	snap.ExpectedGrowthRate = fin.EPSGrowth
	snap.DebtToEquity = fin.DebtEquity

	divYield, err := p.dividendYield(ctx, ticker, price)
	if err != nil {
		return snap, fmt.Errorf("dividends for %s: %w", ticker, err)
	}
	snap.DividendYield = divYield

	history, err := p.priceHistory(ctx, ticker, p.cfg.HistoryDays)
	if err != nil {
		return snap, fmt.Errorf("price history for %s: %w", ticker, err)
	}
	snap.RecentPriceHistory = history

	log.Debug().Str("ticker", ticker).
		Float64("price", snap.CurrentPrice).
		Float64("market_cap", snap.MarketCap).
		Float64("eps", snap.TrailingEPS).
		Int("history_points", len(history)).
		Msg("snapshot assembled")
	return snap, nil
}

type tickerDetails struct {
	Name              string
	MarketCap         float64
	Sector            string
	SharesOutstanding float64
}

type financialMetrics struct {
	EPS        float64
	EPSGrowth  float64
	DebtEquity float64
}

func (p *PolygonProvider) prevDayClose(ctx context.Context, ticker string) (float64, error) {
	var resp struct {
		Results []struct {
			Close float64 `json:"c"`
		} `json:"results"`
	}
	path := fmt.Sprintf("/v2/aggs/ticker/%s/prev", url.PathEscape(ticker))
	if err := p.getJSON(ctx, path, nil, &resp); err != nil {
		return 0, err
	}
	if len(resp.Results) == 0 {
		return 0, fmt.Errorf("no previous-day aggregate")
	}
	return resp.Results[0].Close, nil
}

func (p *PolygonProvider) tickerDetails(ctx context.Context, ticker string) (tickerDetails, error) {
	var resp struct {
		Results struct {
			Name                        string  `json:"name"`
			MarketCap                   float64 `json:"market_cap"`
			SICDescription              string  `json:"sic_description"`
			ShareClassSharesOutstanding float64 `json:"share_class_shares_outstanding"`
			WeightedSharesOutstanding   float64 `json:"weighted_shares_outstanding"`
		} `json:"results"`
	}
	path := fmt.Sprintf("/v3/reference/tickers/%s", url.PathEscape(ticker))
	if err := p.getJSON(ctx, path, nil, &resp); err != nil {
		return tickerDetails{}, err
	}
	shares := resp.Results.ShareClassSharesOutstanding
	if shares == 0 {
		shares = resp.Results.WeightedSharesOutstanding
	}
	return tickerDetails{
		Name:              resp.Results.Name,
		MarketCap:         resp.Results.MarketCap,
		Sector:            resp.Results.SICDescription,
		SharesOutstanding: shares,
	}, nil
}

type financialsFiling struct {
	FiscalPeriod string `json:"fiscal_period"`
	FiscalYear   string `json:"fiscal_year"`
	Financials   struct {
		IncomeStatement struct {
			NetIncomeLoss struct {
				Value float64 `json:"value"`
			} `json:"net_income_loss"`
		} `json:"income_statement"`
		BalanceSheet struct {
			LongTermDebt          valueField `json:"long_term_debt"`
			CurrentDebt           valueField `json:"current_debt"`
			Liabilities           valueField `json:"liabilities"`
			NoncurrentLiabilities valueField `json:"noncurrent_liabilities"`
			Equity                valueField `json:"equity"`
			StockholdersEquity    valueField `json:"stockholders_equity"`
		} `json:"balance_sheet"`
	} `json:"financials"`
}

type valueField struct {
	Value float64 `json:"value"`
}

// financials derives trailing EPS (annualized latest quarter), YoY EPS growth
// against the same fiscal quarter, and the financial-debt-to-equity ratio.
func (p *PolygonProvider) financials(ctx context.Context, ticker string, shares float64) (financialMetrics, error) {
	var resp struct {
		Results []financialsFiling `json:"results"`
	}
	q := url.Values{
		"ticker":    {ticker},
		"limit":     {"5"},
		"timeframe": {"quarterly"},
		"sort":      {"filing_date"},
		"order":     {"desc"},
	}
	if err := p.getJSON(ctx, "/vX/reference/financials", q, &resp); err != nil {
		return financialMetrics{}, err
	}
	if len(resp.Results) == 0 {
		return financialMetrics{}, nil
	}

	var m financialMetrics
	latest := resp.Results[0]
	netIncome := latest.Financials.IncomeStatement.NetIncomeLoss.Value
	if shares > 0 && netIncome != 0 {
		m.EPS = netIncome * 4 / shares
	}

	bs := latest.Financials.BalanceSheet
	totalDebt := bs.LongTermDebt.Value + bs.CurrentDebt.Value
	if totalDebt == 0 && bs.NoncurrentLiabilities.Value > 0 {
		// No itemized debt: estimate from noncurrent liabilities, capped at
		// half of total liabilities to exclude operating liabilities.
		totalDebt = bs.NoncurrentLiabilities.Value
		if cap := bs.Liabilities.Value * 0.5; totalDebt > cap {
			totalDebt = cap
		}
	}
	equity := bs.Equity.Value
	if equity == 0 {
		equity = bs.StockholdersEquity.Value
	}
	if equity > 0 {
		m.DebtEquity = totalDebt / equity
	}

	// YoY growth against the same fiscal quarter a year earlier.
	for _, f := range resp.Results[1:] {
		if f.FiscalPeriod != latest.FiscalPeriod || !isPriorYear(latest.FiscalYear, f.FiscalYear) {
			continue
		}
		priorIncome := f.Financials.IncomeStatement.NetIncomeLoss.Value
		if shares > 0 && priorIncome != 0 {
			priorEPS := priorIncome * 4 / shares
			if priorEPS != 0 {
				m.EPSGrowth = (m.EPS - priorEPS) / abs(priorEPS) * 100
			}
		}
		break
	}
	return m, nil
}

func (p *PolygonProvider) dividendYield(ctx context.Context, ticker string, price float64) (float64, error) {
	var resp struct {
		Results []struct {
			CashAmount float64 `json:"cash_amount"`
		} `json:"results"`
	}
	q := url.Values{"ticker": {ticker}, "limit": {"4"}, "order": {"desc"}}
	if err := p.getJSON(ctx, "/v3/reference/dividends", q, &resp); err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, nil
	}
	var annual float64
	for _, d := range resp.Results {
		annual += d.CashAmount
	}
	return annual / price * 100, nil
}

func (p *PolygonProvider) priceHistory(ctx context.Context, ticker string, days int) ([]scoring.PricePoint, error) {
	var resp struct {
		Results []struct {
			Timestamp int64   `json:"t"`
			Close     float64 `json:"c"`
		} `json:"results"`
	}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		url.PathEscape(ticker), from.Format("2006-01-02"), to.Format("2006-01-02"))
	q := url.Values{"limit": {fmt.Sprint(days)}, "sort": {"asc"}}
	if err := p.getJSON(ctx, path, q, &resp); err != nil {
		return nil, err
	}
	points := make([]scoring.PricePoint, 0, len(resp.Results))
	for _, r := range resp.Results {
		points = append(points, scoring.PricePoint{
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
			Price:     r.Close,
		})
	}
	return points, nil
}

// getJSON performs a cached, rate-limited, breaker-guarded GET and decodes
// the response body into v.
func (p *PolygonProvider) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	if query == nil {
		query = url.Values{}
	}
	cacheKey := "polygon:" + path + "?" + query.Encode()

	if b, ok := p.cache.Get(ctx, cacheKey); ok {
		return json.Unmarshal(b, v)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	query.Set("apiKey", p.cfg.APIKey)
	fullURL := p.cfg.BaseURL + path + "?" + query.Encode()

	body, err := p.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		resp, err := p.client.Do(req)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("polygon request failed")
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("rate limited (retry-after %s)", resp.Header.Get("Retry-After"))
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		}

		var buf json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&buf); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		log.Debug().Str("path", path).Dur("duration", time.Since(start)).Msg("polygon request ok")
		return []byte(buf), nil
	})
	if err != nil {
		return err
	}

	raw := body.([]byte)
	p.cache.Set(ctx, cacheKey, raw, p.cfg.CacheTTL)
	return json.Unmarshal(raw, v)
}

func isPriorYear(current, candidate string) bool {
	cur, err := strconv.Atoi(current)
	if err != nil {
		return false
	}
	cand, err := strconv.Atoi(candidate)
	if err != nil {
		return false
	}
	return cand == cur-1
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
