package scoring

import (
	"fmt"
	"time"
)

// FactorAudit records how one sub-score was derived, for the fact-check
// panel and the /scores API.
type FactorAudit struct {
	Input   string `json:"input"`
	Bracket string `json:"bracket"`
	Score   int    `json:"score"`
}

// ValuationAudit extends FactorAudit with the intrinsic-value intermediates.
type ValuationAudit struct {
	FactorAudit
	IntrinsicValue float64 `json:"intrinsic_value"`
	PriceRatio     float64 `json:"price_ratio"`
	Degenerate     bool    `json:"degenerate"`
}

// SentimentAudit extends FactorAudit with the component breakdown.
type SentimentAudit struct {
	FactorAudit
	DividendComponent float64 `json:"dividend_component"`
	SectorComponent   float64 `json:"sector_component"`
	MomentumComponent float64 `json:"momentum_component"`
	MomentumNeutral   bool    `json:"momentum_neutral"`
}

// Audit collects every factor's derivation for one ticker.
type Audit struct {
	Moat      FactorAudit    `json:"moat"`
	Growth    FactorAudit    `json:"growth"`
	Balance   FactorAudit    `json:"balance"`
	Valuation ValuationAudit `json:"valuation"`
	Sentiment SentimentAudit `json:"sentiment"`
}

// Result is the engine output for one ticker. Err is set for invalid
// snapshots; the rest of the batch is unaffected.
type Result struct {
	Ticker      string          `json:"ticker"`
	Name        string          `json:"name,omitempty"`
	Sector      string          `json:"sector,omitempty"`
	Price       float64         `json:"price,omitempty"`
	MarketCap   float64         `json:"market_cap,omitempty"`
	SubScores   SubScores       `json:"sub_scores"`
	Composites  CompositeScores `json:"composites"`
	Audit       Audit           `json:"audit"`
	EvaluatedAt time.Time       `json:"evaluated_at"`
	Err         error           `json:"-"`
}

// Failed reports whether this ticker produced a structured failure instead
// of scores.
func (r *Result) Failed() bool { return r.Err != nil }

// Engine is the deterministic scoring pipeline: snapshot -> sub-scores ->
// horizon composites. It holds no mutable state; identical input always
// yields identical output.
type Engine struct {
	cfg        Config
	normalizer *Normalizer
	valuation  *ValuationModel
	sentiment  *SentimentAggregator
	composites *CompositeBuilder
	now        func() time.Time
}

// NewEngine validates cfg and builds the four stages. A broken configuration
// would corrupt every ticker's score, so it fails construction.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scoring configuration: %w", err)
	}
	e := &Engine{cfg: cfg, now: time.Now}
	e.normalizer = NewNormalizer(&e.cfg)
	e.valuation = NewValuationModel(&e.cfg)
	e.sentiment = NewSentimentAggregator(&e.cfg)
	e.composites = NewCompositeBuilder(&e.cfg)
	return e, nil
}

// Config returns a copy of the engine's immutable configuration.
func (e *Engine) Config() Config { return e.cfg }

// EvaluateOne scores a single snapshot.
func (e *Engine) EvaluateOne(snap SecuritySnapshot) Result {
	res := Result{
		Ticker:      snap.Ticker,
		Name:        snap.Name,
		Sector:      snap.Sector,
		Price:       snap.CurrentPrice,
		MarketCap:   snap.MarketCap,
		EvaluatedAt: e.now(),
	}
	if err := snap.Validate(); err != nil {
		res.Err = err
		return res
	}

	var sub SubScores
	sub.Moat, res.Audit.Moat = e.normalizer.MoatScore(snap.MarketCap)
	sub.Growth, res.Audit.Growth = e.normalizer.GrowthScore(snap.EPSGrowthRate)
	sub.Balance, res.Audit.Balance = e.normalizer.BalanceScore(snap.DebtToEquity)
	sub.Valuation, res.Audit.Valuation = e.valuation.Score(&snap)
	sub.Sentiment, res.Audit.Sentiment = e.sentiment.Score(&snap)

	res.SubScores = sub
	res.Composites = e.composites.Build(sub)
	return res
}

// Evaluate scores a batch of snapshots, preserving input order. Invalid
// snapshots surface as per-ticker failures; one bad ticker never blocks the
// others.
func (e *Engine) Evaluate(snapshots []SecuritySnapshot) []Result {
	results := make([]Result, 0, len(snapshots))
	for _, snap := range snapshots {
		results = append(results, e.EvaluateOne(snap))
	}
	return results
}
