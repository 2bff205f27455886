package persistence

import (
	"errors"
	"testing"
	"time"

	"github.com/seesaw/mfses/internal/domain/scoring"
)

func TestRowsFromResults_SkipsFailures(t *testing.T) {
	runAt := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	results := []scoring.Result{
		{Ticker: "GOOD", Price: 100,
			SubScores:  scoring.SubScores{Moat: 18, Growth: 12, Balance: 16, Valuation: 10, Sentiment: 11},
			Composites: scoring.CompositeScores{ShortTerm: 12.5, MidTerm: 13.0, LongTerm: 14.2}},
		{Ticker: "BAD", Err: errors.New("invalid snapshot")},
	}

	rows := RowsFromResults(runAt, results)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.Ticker != "GOOD" || !row.RunAt.Equal(runAt) {
		t.Errorf("unexpected row: %+v", row)
	}
	if row.Moat != 18 || row.LongTerm != 14.2 {
		t.Errorf("scores not carried over: %+v", row)
	}
}
