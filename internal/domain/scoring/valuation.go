package scoring

import "fmt"

// ValuationModel estimates intrinsic value per share with the Graham-style
// growth-adjusted capitalization-of-earnings formula and maps the
// price-to-intrinsic ratio onto a valuation sub-score.
type ValuationModel struct {
	cfg *Config
}

func NewValuationModel(cfg *Config) *ValuationModel {
	return &ValuationModel{cfg: cfg}
}

// IntrinsicValue computes the model fair value per share. Returns 0 for
// non-positive trailing EPS; no fair value exists for an unprofitable company
// under this model.
func (m *ValuationModel) IntrinsicValue(trailingEPS, expectedGrowthRate float64) float64 {
	if trailingEPS <= 0 {
		return 0
	}
	k := m.cfg.Valuation
	g := clampFloat(expectedGrowthRate, k.MinGrowth, k.MaxGrowth)
	value := trailingEPS * (k.BaseMultiple + k.GrowthMultiplier*g)
	if k.CurrentYield > 0 {
		value *= k.ReferenceYield / k.CurrentYield
	}
	return value
}

// Score maps price/intrinsic onto the valuation sub-score. Non-positive
// trailing EPS short-circuits to the minimum score: a defined edge case, not
// an error.
func (m *ValuationModel) Score(snap *SecuritySnapshot) (int, ValuationAudit) {
	intrinsic := m.IntrinsicValue(snap.TrailingEPS, snap.ExpectedGrowthRate)
	if intrinsic <= 0 {
		return MinScore, ValuationAudit{
			FactorAudit: FactorAudit{
				Input:   fmt.Sprintf("EPS $%.2f, price $%.2f", snap.TrailingEPS, snap.CurrentPrice),
				Bracket: "non-positive EPS",
				Score:   MinScore,
			},
			Degenerate: true,
		}
	}
	ratio := snap.CurrentPrice / intrinsic
	score := clampScore(m.cfg.ValuationRatio.Score(ratio))
	return score, ValuationAudit{
		FactorAudit: FactorAudit{
			Input:   fmt.Sprintf("EPS $%.2f, price $%.2f", snap.TrailingEPS, snap.CurrentPrice),
			Bracket: m.cfg.ValuationRatio.Label(ratio),
			Score:   score,
		},
		IntrinsicValue: intrinsic,
		PriceRatio:     ratio,
	}
}
