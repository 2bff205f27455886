package scoring

import (
	"fmt"
	"math"
)

// SentimentAggregator blends dividend yield, sector favorability and
// short-term price momentum into one bounded sub-score.
type SentimentAggregator struct {
	cfg *Config
}

func NewSentimentAggregator(cfg *Config) *SentimentAggregator {
	return &SentimentAggregator{cfg: cfg}
}

// Score computes the weighted blend of the three sentiment components and
// clamps the rounded result to [MinScore, MaxScore].
func (a *SentimentAggregator) Score(snap *SecuritySnapshot) (int, SentimentAudit) {
	div := float64(a.dividendComponent(snap.DividendYield))
	sector := float64(a.sectorComponent(snap.Sector))
	momentum, momentumPct, neutral := a.momentumComponent(snap)

	w := a.cfg.Sentiment
	blended := div*w.Dividend + sector*w.Sector + momentum*w.Momentum
	score := clampScore(int(math.Round(blended)))

	momentumDesc := fmt.Sprintf("%.2f%%", momentumPct)
	if neutral {
		momentumDesc = "neutral (short window)"
	}
	return score, SentimentAudit{
		FactorAudit: FactorAudit{
			Input: fmt.Sprintf("yield %.2f%%, sector %s, momentum %s",
				snap.DividendYield, snap.Sector, momentumDesc),
			Bracket: fmt.Sprintf("div %.0f * %.2f + sector %.0f * %.2f + momentum %.1f * %.2f",
				div, w.Dividend, sector, w.Sector, momentum, w.Momentum),
			Score: score,
		},
		DividendComponent: div,
		SectorComponent:   sector,
		MomentumComponent: momentum,
		MomentumNeutral:   neutral,
	}
}

// dividendComponent maps yield through its bracket table. The table tops out
// below MaxScore so dividends alone cannot saturate sentiment.
func (a *SentimentAggregator) dividendComponent(yield float64) int {
	return clampScore(a.cfg.Dividend.Score(yield))
}

// sectorComponent looks up the configured macro-favorability score for the
// sector, falling back to the documented default for unlisted sectors.
func (a *SentimentAggregator) sectorComponent(sector string) int {
	if score, ok := a.cfg.Sectors[sector]; ok {
		return clampScore(score)
	}
	return clampScore(a.cfg.SectorDefault)
}

// momentumComponent converts the window's percentage price change into a
// bounded component centered on the neutral midpoint. Windows with fewer
// than two points yield the neutral contribution.
func (a *SentimentAggregator) momentumComponent(snap *SecuritySnapshot) (component, pct float64, neutral bool) {
	pct, ok := snap.MomentumPct()
	if !ok {
		return a.cfg.MomentumNeutral, 0, true
	}
	component = clampFloat(a.cfg.MomentumNeutral+pct, MinScore, MaxScore)
	return component, pct, false
}
