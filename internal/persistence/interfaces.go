package persistence

import (
	"context"
	"time"
)

// ScoreRow is one ticker's persisted result from one evaluation run.
type ScoreRow struct {
	Ticker         string    `db:"ticker" json:"ticker"`
	RunAt          time.Time `db:"run_at" json:"run_at"`
	Moat           int       `db:"moat" json:"moat"`
	Growth         int       `db:"growth" json:"growth"`
	Balance        int       `db:"balance" json:"balance"`
	Valuation      int       `db:"valuation" json:"valuation"`
	Sentiment      int       `db:"sentiment" json:"sentiment"`
	ShortTerm      float64   `db:"short_term" json:"short_term"`
	MidTerm        float64   `db:"mid_term" json:"mid_term"`
	LongTerm       float64   `db:"long_term" json:"long_term"`
	IntrinsicValue float64   `db:"intrinsic_value" json:"intrinsic_value"`
	Price          float64   `db:"price" json:"price"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ScoreRepo stores evaluation runs. The engine itself keeps no history; this
// is presentation-side record keeping.
type ScoreRepo interface {
	// SaveRun persists one run's rows atomically.
	SaveRun(ctx context.Context, rows []ScoreRow) error

	// LatestRun returns all rows of the most recent run, in insertion order.
	LatestRun(ctx context.Context) ([]ScoreRow, error)

	// History returns up to limit most-recent rows for a ticker, newest first.
	History(ctx context.Context, ticker string, limit int) ([]ScoreRow, error)
}
