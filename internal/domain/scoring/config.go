package scoring

import (
	"fmt"
	"math"
)

const (
	// MinScore and MaxScore bound every sub-score and composite.
	MinScore = 1
	MaxScore = 20

	// WeightSumTolerance is the allowed deviation of any weight vector from 1.0.
	WeightSumTolerance = 1e-9
)

// ValuationConstants parameterize the growth-adjusted capitalization-of-earnings
// formula:
//
//	intrinsic = eps * (base_multiple + growth_multiplier*g) * (reference_yield / current_yield)
//
// g is the expected growth rate clamped to [MinGrowth, MaxGrowth]. When
// CurrentYield <= 0 the yield adjustment is skipped (factor 1.0).
type ValuationConstants struct {
	BaseMultiple     float64 `yaml:"base_multiple" json:"base_multiple"`
	GrowthMultiplier float64 `yaml:"growth_multiplier" json:"growth_multiplier"`
	MinGrowth        float64 `yaml:"min_growth" json:"min_growth"`
	MaxGrowth        float64 `yaml:"max_growth" json:"max_growth"`
	ReferenceYield   float64 `yaml:"reference_yield" json:"reference_yield"`
	CurrentYield     float64 `yaml:"current_yield" json:"current_yield"`
}

// SentimentWeights blend the three sentiment components. Must sum to 1.0.
type SentimentWeights struct {
	Dividend float64 `yaml:"dividend" json:"dividend"`
	Sector   float64 `yaml:"sector" json:"sector"`
	Momentum float64 `yaml:"momentum" json:"momentum"`
}

func (w SentimentWeights) Sum() float64 {
	return w.Dividend + w.Sector + w.Momentum
}

// HorizonWeights is one horizon's allocation over the five sub-scores.
// Must sum to 1.0.
type HorizonWeights struct {
	Moat      float64 `yaml:"moat" json:"moat"`
	Growth    float64 `yaml:"growth" json:"growth"`
	Balance   float64 `yaml:"balance" json:"balance"`
	Valuation float64 `yaml:"valuation" json:"valuation"`
	Sentiment float64 `yaml:"sentiment" json:"sentiment"`
}

func (w HorizonWeights) Sum() float64 {
	return w.Moat + w.Growth + w.Balance + w.Valuation + w.Sentiment
}

// Config is the full immutable scoring configuration. Multiple configs can
// coexist (e.g. backtesting alternate weightings); the engine never mutates
// its config after construction.
type Config struct {
	// Normalizer bracket tables.
	Moat    BracketTable `yaml:"moat" json:"moat"`
	Growth  BracketTable `yaml:"growth" json:"growth"`
	Balance BracketTable `yaml:"balance" json:"balance"`

	// Raw growth input clamp applied before the Growth table.
	GrowthInputMin float64 `yaml:"growth_input_min" json:"growth_input_min"`
	GrowthInputMax float64 `yaml:"growth_input_max" json:"growth_input_max"`

	// Valuation model constants and price/intrinsic ratio table.
	Valuation      ValuationConstants `yaml:"valuation" json:"valuation"`
	ValuationRatio BracketTable       `yaml:"valuation_ratio" json:"valuation_ratio"`

	// Sentiment component tables and blend weights.
	Dividend        BracketTable     `yaml:"dividend" json:"dividend"`
	Sectors         map[string]int   `yaml:"sectors" json:"sectors"`
	SectorDefault   int              `yaml:"sector_default" json:"sector_default"`
	MomentumNeutral float64          `yaml:"momentum_neutral" json:"momentum_neutral"`
	Sentiment       SentimentWeights `yaml:"sentiment" json:"sentiment"`

	// Horizon composite weight vectors.
	ShortTerm HorizonWeights `yaml:"short_term" json:"short_term"`
	MidTerm   HorizonWeights `yaml:"mid_term" json:"mid_term"`
	LongTerm  HorizonWeights `yaml:"long_term" json:"long_term"`
}

// DefaultConfig returns the reference scoring configuration. Every table here
// is a documented configuration surface, not a derived value.
func DefaultConfig() Config {
	return Config{
		Moat: BracketTable{
			Name: "moat",
			Brackets: []Bracket{
				{Bound: 2e12, Score: 20},
				{Bound: 1e12, Score: 19},
				{Bound: 500e9, Score: 18},
				{Bound: 200e9, Score: 17},
				{Bound: 100e9, Score: 16},
				{Bound: 50e9, Score: 14},
				{Bound: 20e9, Score: 12},
				{Bound: 10e9, Score: 10},
				{Bound: 5e9, Score: 8},
				{Bound: 1e9, Score: 6},
			},
			Floor: 4,
		},
		Growth: BracketTable{
			Name: "growth",
			Brackets: []Bracket{
				{Bound: 50, Score: 20},
				{Bound: 35, Score: 18},
				{Bound: 25, Score: 16},
				{Bound: 15, Score: 14},
				{Bound: 10, Score: 12},
				{Bound: 5, Score: 10},
				{Bound: 0, Score: 8},
				{Bound: -10, Score: 6},
				{Bound: -25, Score: 4},
			},
			Floor: 2,
		},
		GrowthInputMin: -50,
		GrowthInputMax: 100,
		Balance: BracketTable{
			Name:    "balance",
			Inverse: true,
			Brackets: []Bracket{
				{Bound: 0.1, Score: 20},
				{Bound: 0.3, Score: 18},
				{Bound: 0.5, Score: 16},
				{Bound: 0.7, Score: 14},
				{Bound: 1.0, Score: 12},
				{Bound: 1.5, Score: 10},
				{Bound: 2.0, Score: 8},
				{Bound: 3.0, Score: 6},
			},
			Floor: 4,
		},
		Valuation: ValuationConstants{
			BaseMultiple:     8.5,
			GrowthMultiplier: 2.0,
			MinGrowth:        0,
			MaxGrowth:        15,
			ReferenceYield:   4.4,
			CurrentYield:     0, // no current-yield input: adjustment factor 1.0
		},
		ValuationRatio: BracketTable{
			Name:           "valuation_ratio",
			Inverse:        true,
			InclusiveBound: true,
			Brackets: []Bracket{
				{Bound: 0.50, Score: 20},
				{Bound: 0.65, Score: 18},
				{Bound: 0.80, Score: 16},
				{Bound: 0.90, Score: 14},
				{Bound: 1.00, Score: 12},
				{Bound: 1.15, Score: 10},
				{Bound: 1.35, Score: 8},
				{Bound: 1.60, Score: 6},
				{Bound: 1.80, Score: 4},
				// Exactly 2.0 is already deeply overvalued: it takes the floor.
				{Bound: 2.00, Score: 2, ExcludeBound: true},
			},
			Floor: 1,
		},
		Dividend: BracketTable{
			Name: "dividend",
			Brackets: []Bracket{
				{Bound: 4, Score: 18},
				{Bound: 3, Score: 16},
				{Bound: 2, Score: 14},
				{Bound: 1, Score: 12},
				{Bound: 0.0001, Score: 11},
			},
			Floor: 10,
		},
		Sectors: map[string]int{
			"Technology": 14,
			"Consumer":   11,
			"Industrial": 10,
			"Financial":  10,
			"Healthcare": 12,
			"Energy":     9,
			"Utilities":  9,
		},
		SectorDefault:   10,
		MomentumNeutral: 10.5,
		Sentiment: SentimentWeights{
			Dividend: 0.30,
			Sector:   0.30,
			Momentum: 0.40,
		},
		ShortTerm: HorizonWeights{
			Growth:    0.30,
			Sentiment: 0.25,
			Valuation: 0.20,
			Moat:      0.15,
			Balance:   0.10,
		},
		MidTerm: HorizonWeights{
			Moat:      0.25,
			Valuation: 0.25,
			Growth:    0.20,
			Balance:   0.15,
			Sentiment: 0.15,
		},
		LongTerm: HorizonWeights{
			Moat:      0.30,
			Balance:   0.25,
			Valuation: 0.20,
			Growth:    0.15,
			Sentiment: 0.10,
		},
	}
}

// Validate rejects a broken scoring configuration before any ticker is
// scored. Failures here are fatal: a bad table would silently corrupt every
// score in the run.
func (c *Config) Validate() error {
	for _, t := range []*BracketTable{&c.Moat, &c.Growth, &c.Balance, &c.ValuationRatio, &c.Dividend} {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	if c.GrowthInputMin >= c.GrowthInputMax {
		return fmt.Errorf("growth input clamp [%g,%g] is empty", c.GrowthInputMin, c.GrowthInputMax)
	}
	if c.Valuation.BaseMultiple <= 0 {
		return fmt.Errorf("valuation base multiple must be positive, got %g", c.Valuation.BaseMultiple)
	}
	if c.Valuation.MinGrowth > c.Valuation.MaxGrowth {
		return fmt.Errorf("valuation growth clamp [%g,%g] is empty", c.Valuation.MinGrowth, c.Valuation.MaxGrowth)
	}
	if c.Valuation.CurrentYield > 0 && c.Valuation.ReferenceYield <= 0 {
		return fmt.Errorf("reference yield must be positive when current yield is set")
	}
	for name, score := range c.Sectors {
		if score < MinScore || score > MaxScore {
			return fmt.Errorf("sector %q score %d outside [%d,%d]", name, score, MinScore, MaxScore)
		}
	}
	if c.SectorDefault < MinScore || c.SectorDefault > MaxScore {
		return fmt.Errorf("sector default %d outside [%d,%d]", c.SectorDefault, MinScore, MaxScore)
	}
	if c.MomentumNeutral < MinScore || c.MomentumNeutral > MaxScore {
		return fmt.Errorf("momentum neutral %g outside [%d,%d]", c.MomentumNeutral, MinScore, MaxScore)
	}
	if s := c.Sentiment.Sum(); math.Abs(s-1.0) > WeightSumTolerance {
		return fmt.Errorf("sentiment weights sum to %.12f, expected 1.0", s)
	}
	horizons := []struct {
		name    string
		weights HorizonWeights
	}{
		{"short_term", c.ShortTerm},
		{"mid_term", c.MidTerm},
		{"long_term", c.LongTerm},
	}
	for _, h := range horizons {
		if s := h.weights.Sum(); math.Abs(s-1.0) > WeightSumTolerance {
			return fmt.Errorf("horizon %s weights sum to %.12f, expected 1.0", h.name, s)
		}
		for _, w := range []float64{h.weights.Moat, h.weights.Growth, h.weights.Balance, h.weights.Valuation, h.weights.Sentiment} {
			if w < 0 {
				return fmt.Errorf("horizon %s has a negative weight", h.name)
			}
		}
	}
	return nil
}
