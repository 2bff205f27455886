package scoring

import (
	"fmt"
	"time"
)

// PricePoint is one observation in a security's recent price window.
type PricePoint struct {
	Timestamp time.Time `json:"ts"`
	Price     float64   `json:"price"`
}

// SecuritySnapshot is the raw per-ticker input for one evaluation run.
// It is assembled by the market data provider and treated as immutable
// by the engine.
type SecuritySnapshot struct {
	Ticker             string       `json:"ticker"`
	Name               string       `json:"name,omitempty"`
	MarketCap          float64      `json:"market_cap"`
	EPSGrowthRate      float64      `json:"eps_growth_rate"`
	DebtToEquity       float64      `json:"debt_to_equity"`
	TrailingEPS        float64      `json:"trailing_eps"`
	ExpectedGrowthRate float64      `json:"expected_growth_rate"`
	CurrentPrice       float64      `json:"current_price"`
	DividendYield      float64      `json:"dividend_yield"`
	Sector             string       `json:"sector"`
	RecentPriceHistory []PricePoint `json:"recent_price_history,omitempty"`
}

// InvalidSnapshotError flags a snapshot that violates a domain constraint.
// It fails that ticker only; the rest of the batch proceeds.
type InvalidSnapshotError struct {
	Ticker string
	Field  string
	Reason string
}

func (e *InvalidSnapshotError) Error() string {
	return fmt.Sprintf("invalid snapshot for %s: %s %s", e.Ticker, e.Field, e.Reason)
}

// Validate checks the stated domain constraints on snapshot fields.
func (s *SecuritySnapshot) Validate() error {
	if s.Ticker == "" {
		return &InvalidSnapshotError{Ticker: "(unknown)", Field: "ticker", Reason: "is empty"}
	}
	if s.MarketCap <= 0 {
		return &InvalidSnapshotError{Ticker: s.Ticker, Field: "market_cap", Reason: fmt.Sprintf("must be positive, got %g", s.MarketCap)}
	}
	if s.CurrentPrice <= 0 {
		return &InvalidSnapshotError{Ticker: s.Ticker, Field: "current_price", Reason: fmt.Sprintf("must be positive, got %g", s.CurrentPrice)}
	}
	if s.DebtToEquity < 0 {
		return &InvalidSnapshotError{Ticker: s.Ticker, Field: "debt_to_equity", Reason: fmt.Sprintf("must be non-negative, got %g", s.DebtToEquity)}
	}
	if s.DividendYield < 0 {
		return &InvalidSnapshotError{Ticker: s.Ticker, Field: "dividend_yield", Reason: fmt.Sprintf("must be non-negative, got %g", s.DividendYield)}
	}
	return nil
}

// MomentumPct returns the percentage price change between the earliest and
// latest points of the recent price window. ok is false when the window has
// fewer than two points or a non-positive base price; callers fall back to
// the neutral momentum contribution.
func (s *SecuritySnapshot) MomentumPct() (pct float64, ok bool) {
	n := len(s.RecentPriceHistory)
	if n < 2 {
		return 0, false
	}
	first := s.RecentPriceHistory[0].Price
	last := s.RecentPriceHistory[n-1].Price
	if first <= 0 {
		return 0, false
	}
	return (last - first) / first * 100, true
}
