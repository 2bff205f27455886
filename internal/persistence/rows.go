package persistence

import (
	"time"

	"github.com/seesaw/mfses/internal/domain/scoring"
)

// RowsFromResults converts an evaluation run into persistable rows, skipping
// tickers that failed validation.
func RowsFromResults(runAt time.Time, results []scoring.Result) []ScoreRow {
	rows := make([]ScoreRow, 0, len(results))
	for _, res := range results {
		if res.Failed() {
			continue
		}
		rows = append(rows, ScoreRow{
			Ticker:         res.Ticker,
			RunAt:          runAt,
			Moat:           res.SubScores.Moat,
			Growth:         res.SubScores.Growth,
			Balance:        res.SubScores.Balance,
			Valuation:      res.SubScores.Valuation,
			Sentiment:      res.SubScores.Sentiment,
			ShortTerm:      res.Composites.ShortTerm,
			MidTerm:        res.Composites.MidTerm,
			LongTerm:       res.Composites.LongTerm,
			IntrinsicValue: res.Audit.Valuation.IntrinsicValue,
			Price:          res.Price,
		})
	}
	return rows
}
