package scoring

import (
	"math"
	"testing"
)

func TestIntrinsicValue_GrahamFormula(t *testing.T) {
	cfg := DefaultConfig()
	m := NewValuationModel(&cfg)

	// eps * (8.5 + 2g), growth clamped to [0, 15]
	cases := []struct {
		eps, growth, want float64
	}{
		{6.0, 12, 195},    // 6 * (8.5 + 24)
		{1.0, 0, 8.5},     // no-growth multiple
		{2.0, 40, 77},     // growth capped at 15: 2 * (8.5 + 30)
		{2.0, -10, 17},    // negative growth floored at 0
		{-1.0, 10, 0},     // unprofitable: no fair value
		{0, 10, 0},
	}
	for _, tc := range cases {
		got := m.IntrinsicValue(tc.eps, tc.growth)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("IntrinsicValue(%g, %g) = %g, want %g", tc.eps, tc.growth, got, tc.want)
		}
	}
}

func TestIntrinsicValue_YieldAdjustment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Valuation.ReferenceYield = 4.4
	cfg.Valuation.CurrentYield = 2.2
	m := NewValuationModel(&cfg)

	// adjustment doubles the no-growth value
	got := m.IntrinsicValue(1.0, 0)
	if math.Abs(got-17.0) > 1e-9 {
		t.Errorf("yield-adjusted value = %g, want 17", got)
	}
}

func TestValuationScore_RatioBands(t *testing.T) {
	cfg := DefaultConfig()
	m := NewValuationModel(&cfg)

	snap := SecuritySnapshot{Ticker: "VAL", MarketCap: 1e11, TrailingEPS: 10, ExpectedGrowthRate: 0}
	// intrinsic = 85
	cases := []struct {
		price float64
		want  int
	}{
		{42.5, 20},   // ratio 0.50: deeply undervalued
		{85, 12},     // at fair value
		{169.15, 2},  // ratio 1.99: last band before the floor
		{170, 1},     // ratio exactly 2.0: deeply overvalued
		{171, 1},
		{1e6, 1},
	}
	for _, tc := range cases {
		snap.CurrentPrice = tc.price
		got, audit := m.Score(&snap)
		if got != tc.want {
			t.Errorf("price %g (ratio %.3f): score %d, want %d", tc.price, audit.PriceRatio, got, tc.want)
		}
	}
}

func TestValuationScore_InverseMonotonicInPrice(t *testing.T) {
	cfg := DefaultConfig()
	m := NewValuationModel(&cfg)
	snap := SecuritySnapshot{Ticker: "VAL", MarketCap: 1e11, TrailingEPS: 5, ExpectedGrowthRate: 8}

	prev := MaxScore + 1
	for price := 1.0; price < 500; price += 1.0 {
		snap.CurrentPrice = price
		got, _ := m.Score(&snap)
		if got > prev {
			t.Fatalf("valuation score increased with price at %g: %d after %d", price, got, prev)
		}
		prev = got
	}
}

func TestValuationScore_NegativeEPSShortCircuits(t *testing.T) {
	cfg := DefaultConfig()
	m := NewValuationModel(&cfg)

	for _, eps := range []float64{0, -0.01, -125} {
		snap := SecuritySnapshot{Ticker: "LOSS", MarketCap: 1e10, TrailingEPS: eps, CurrentPrice: 20}
		got, audit := m.Score(&snap)
		if got != MinScore || !audit.Degenerate {
			t.Errorf("eps %g: score %d degenerate=%v, want %d/true", eps, got, audit.Degenerate, MinScore)
		}
	}
}
