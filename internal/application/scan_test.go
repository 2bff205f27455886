package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seesaw/mfses/internal/domain/scoring"
	"github.com/seesaw/mfses/internal/persistence"
	"github.com/seesaw/mfses/internal/report"
)

type fakeProvider struct {
	snapshots map[string]scoring.SecuritySnapshot
	failing   map[string]error
	calls     []string
}

func (f *fakeProvider) Snapshot(ctx context.Context, ticker string) (scoring.SecuritySnapshot, error) {
	f.calls = append(f.calls, ticker)
	if err, ok := f.failing[ticker]; ok {
		return scoring.SecuritySnapshot{}, err
	}
	snap, ok := f.snapshots[ticker]
	if !ok {
		return scoring.SecuritySnapshot{}, fmt.Errorf("no fixture for %s", ticker)
	}
	return snap, nil
}

type memRepo struct {
	saved [][]persistence.ScoreRow
}

func (m *memRepo) SaveRun(ctx context.Context, rows []persistence.ScoreRow) error {
	m.saved = append(m.saved, rows)
	return nil
}

func (m *memRepo) LatestRun(ctx context.Context) ([]persistence.ScoreRow, error) {
	if len(m.saved) == 0 {
		return nil, nil
	}
	return m.saved[len(m.saved)-1], nil
}

func (m *memRepo) History(ctx context.Context, ticker string, limit int) ([]persistence.ScoreRow, error) {
	return nil, nil
}

type captureHub struct {
	payloads []report.Payload
}

func (c *captureHub) Broadcast(p report.Payload) {
	c.payloads = append(c.payloads, p)
}

func fixtureSnapshot(ticker string) scoring.SecuritySnapshot {
	return scoring.SecuritySnapshot{
		Ticker:             ticker,
		Name:               ticker + " Corp",
		MarketCap:          150e9,
		EPSGrowthRate:      12.0,
		DebtToEquity:       0.4,
		TrailingEPS:        5.0,
		ExpectedGrowthRate: 10.0,
		CurrentPrice:       95.0,
		DividendYield:      1.2,
		Sector:             "Technology",
		RecentPriceHistory: []scoring.PricePoint{
			{Timestamp: time.Now().Add(-48 * time.Hour), Price: 93.0},
			{Timestamp: time.Now(), Price: 95.0},
		},
	}
}

func newTestScanner(t *testing.T, provider *fakeProvider) (*Scanner, *ResultStore, string) {
	t.Helper()
	engine, err := scoring.NewEngine(scoring.DefaultConfig())
	require.NoError(t, err)

	outDir := t.TempDir()
	store := NewResultStore()
	return NewScanner(provider, engine, report.NewWriter(outDir), store), store, outDir
}

func TestScanner_Run(t *testing.T) {
	provider := &fakeProvider{
		snapshots: map[string]scoring.SecuritySnapshot{
			"AAA": fixtureSnapshot("AAA"),
			"BBB": fixtureSnapshot("BBB"),
		},
	}
	scanner, store, outDir := newTestScanner(t, provider)

	payload, err := scanner.Run(context.Background(), []string{"AAA", "BBB"})
	require.NoError(t, err)

	require.Len(t, payload.Stocks, 2)
	assert.Equal(t, "AAA", payload.Stocks[0].Ticker)
	assert.Equal(t, "BBB", payload.Stocks[1].Ticker)
	assert.Empty(t, payload.Failures)

	published, ok := store.LatestPayload()
	require.True(t, ok)
	assert.Equal(t, payload.Updated, published.Updated)

	for _, name := range []string{"data.json", "index.html"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
}

func TestScanner_ProviderFailureStaysPerTicker(t *testing.T) {
	provider := &fakeProvider{
		snapshots: map[string]scoring.SecuritySnapshot{
			"AAA": fixtureSnapshot("AAA"),
			"CCC": fixtureSnapshot("CCC"),
		},
		failing: map[string]error{
			"BBB": fmt.Errorf("upstream 502"),
		},
	}
	scanner, _, _ := newTestScanner(t, provider)

	payload, err := scanner.Run(context.Background(), []string{"AAA", "BBB", "CCC"})
	require.NoError(t, err)

	require.Len(t, payload.Stocks, 2)
	require.Len(t, payload.Failures, 1)
	assert.Equal(t, "BBB", payload.Failures[0].Ticker)
	assert.Contains(t, payload.Failures[0].Error, "upstream 502")
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, provider.calls)
}

func TestScanner_InvalidSnapshotIsRecordedAsFailure(t *testing.T) {
	bad := fixtureSnapshot("BAD")
	bad.MarketCap = 0

	provider := &fakeProvider{
		snapshots: map[string]scoring.SecuritySnapshot{"BAD": bad},
	}
	scanner, _, _ := newTestScanner(t, provider)

	payload, err := scanner.Run(context.Background(), []string{"BAD"})
	require.NoError(t, err)
	assert.Empty(t, payload.Stocks)
	require.Len(t, payload.Failures, 1)
	assert.Contains(t, payload.Failures[0].Error, "market_cap")
}

func TestScanner_PersistsRun(t *testing.T) {
	provider := &fakeProvider{
		snapshots: map[string]scoring.SecuritySnapshot{"AAA": fixtureSnapshot("AAA")},
	}
	scanner, _, _ := newTestScanner(t, provider)
	repo := &memRepo{}
	scanner.WithRepo(repo)

	_, err := scanner.Run(context.Background(), []string{"AAA"})
	require.NoError(t, err)

	require.Len(t, repo.saved, 1)
	require.Len(t, repo.saved[0], 1)
	assert.Equal(t, "AAA", repo.saved[0][0].Ticker)
	assert.GreaterOrEqual(t, repo.saved[0][0].Moat, 1)
}

func TestScanner_BroadcastsRun(t *testing.T) {
	provider := &fakeProvider{
		snapshots: map[string]scoring.SecuritySnapshot{"AAA": fixtureSnapshot("AAA")},
	}
	scanner, _, _ := newTestScanner(t, provider)
	hub := &captureHub{}
	scanner.WithBroadcaster(hub)

	_, err := scanner.Run(context.Background(), []string{"AAA"})
	require.NoError(t, err)
	require.Len(t, hub.payloads, 1)
	assert.Len(t, hub.payloads[0].Stocks, 1)
}

func TestScanner_CancelledContextAborts(t *testing.T) {
	provider := &fakeProvider{
		snapshots: map[string]scoring.SecuritySnapshot{"AAA": fixtureSnapshot("AAA")},
	}
	scanner, _, _ := newTestScanner(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scanner.Run(ctx, []string{"AAA"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResultStore(t *testing.T) {
	store := NewResultStore()
	_, ok := store.LatestPayload()
	assert.False(t, ok)

	p := report.Payload{Updated: time.Now()}
	store.Publish(p)
	got, ok := store.LatestPayload()
	require.True(t, ok)
	assert.Equal(t, p.Updated, got.Updated)
}
