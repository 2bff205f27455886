package scoring

import "math"

// SubScores are the five bounded factor scores for one ticker.
type SubScores struct {
	Moat      int `json:"moat"`
	Growth    int `json:"growth"`
	Balance   int `json:"balance"`
	Valuation int `json:"valuation"`
	Sentiment int `json:"sentiment"`
}

// CompositeScores are the horizon blends of the five sub-scores, each a real
// number in [MinScore, MaxScore] rounded to 0.1.
type CompositeScores struct {
	ShortTerm float64 `json:"short_term"`
	MidTerm   float64 `json:"mid_term"`
	LongTerm  float64 `json:"long_term"`
}

// CompositeBuilder applies the three horizon weight vectors to a ticker's
// sub-scores. Weights are validated at engine construction; the weighted sum
// of already-bounded inputs needs no re-clamping.
type CompositeBuilder struct {
	cfg *Config
}

func NewCompositeBuilder(cfg *Config) *CompositeBuilder {
	return &CompositeBuilder{cfg: cfg}
}

func (b *CompositeBuilder) Build(sub SubScores) CompositeScores {
	return CompositeScores{
		ShortTerm: roundTenth(blend(sub, b.cfg.ShortTerm)),
		MidTerm:   roundTenth(blend(sub, b.cfg.MidTerm)),
		LongTerm:  roundTenth(blend(sub, b.cfg.LongTerm)),
	}
}

func blend(sub SubScores, w HorizonWeights) float64 {
	return float64(sub.Moat)*w.Moat +
		float64(sub.Growth)*w.Growth +
		float64(sub.Balance)*w.Balance +
		float64(sub.Valuation)*w.Valuation +
		float64(sub.Sentiment)*w.Sentiment
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
