package scoring

import "fmt"

// Normalizer maps raw fundamentals into the Moat, Growth and Balance
// sub-scores through the configured bracket tables.
type Normalizer struct {
	cfg *Config
}

func NewNormalizer(cfg *Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// MoatScore maps market cap to a moat score. Larger cap, higher score.
func (n *Normalizer) MoatScore(marketCap float64) (int, FactorAudit) {
	score := clampScore(n.cfg.Moat.Score(marketCap))
	return score, FactorAudit{
		Input:   fmt.Sprintf("market cap $%s", formatBound(marketCap)),
		Bracket: n.cfg.Moat.Label(marketCap),
		Score:   score,
	}
}

// GrowthScore maps EPS growth rate to a growth score. The raw rate is
// clamped before bracket lookup so outlier magnitudes stay bounded.
func (n *Normalizer) GrowthScore(epsGrowthRate float64) (int, FactorAudit) {
	g := clampFloat(epsGrowthRate, n.cfg.GrowthInputMin, n.cfg.GrowthInputMax)
	score := clampScore(n.cfg.Growth.Score(g))
	return score, FactorAudit{
		Input:   fmt.Sprintf("EPS growth %.1f%%", epsGrowthRate),
		Bracket: n.cfg.Growth.Label(g),
		Score:   score,
	}
}

// BalanceScore maps debt/equity to a balance score. Lower leverage, higher
// score; zero debt lands in the top bracket.
func (n *Normalizer) BalanceScore(debtToEquity float64) (int, FactorAudit) {
	score := clampScore(n.cfg.Balance.Score(debtToEquity))
	return score, FactorAudit{
		Input:   fmt.Sprintf("D/E %.2f", debtToEquity),
		Bracket: n.cfg.Balance.Label(debtToEquity),
		Score:   score,
	}
}
