package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/seesaw/mfses/internal/domain/scoring"
	httpiface "github.com/seesaw/mfses/internal/interfaces/http"
	"github.com/seesaw/mfses/internal/persistence"
	"github.com/seesaw/mfses/internal/report"
)

// SnapshotProvider fetches one ticker's fundamentals. Satisfied by
// providers.PolygonProvider.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, ticker string) (scoring.SecuritySnapshot, error)
}

// Broadcaster pushes a finished run to streaming clients. Satisfied by the
// websocket hub.
type Broadcaster interface {
	Broadcast(report.Payload)
}

// Scanner runs the evaluation pipeline: fetch snapshots for the watchlist,
// score them, write the report, then persist and publish the results.
type Scanner struct {
	provider SnapshotProvider
	engine   *scoring.Engine
	writer   *report.Writer
	store    *ResultStore

	// Optional collaborators; nil disables the concern.
	repo      persistence.ScoreRepo
	metrics   *httpiface.MetricsRegistry
	broadcast Broadcaster

	now func() time.Time
}

func NewScanner(provider SnapshotProvider, engine *scoring.Engine, writer *report.Writer, store *ResultStore) *Scanner {
	return &Scanner{
		provider: provider,
		engine:   engine,
		writer:   writer,
		store:    store,
		now:      time.Now,
	}
}

func (s *Scanner) WithRepo(repo persistence.ScoreRepo) *Scanner {
	s.repo = repo
	return s
}

func (s *Scanner) WithMetrics(m *httpiface.MetricsRegistry) *Scanner {
	s.metrics = m
	return s
}

func (s *Scanner) WithBroadcaster(b Broadcaster) *Scanner {
	s.broadcast = b
	return s
}

// Run evaluates every watchlist ticker once. Provider and validation
// failures stay per-ticker; Run only returns an error when the run as a
// whole could not produce output.
func (s *Scanner) Run(ctx context.Context, tickers []string) (report.Payload, error) {
	start := s.now()
	log.Info().Int("tickers", len(tickers)).Msg("scan started")

	results := make([]scoring.Result, 0, len(tickers))
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return report.Payload{}, fmt.Errorf("scan aborted: %w", err)
		}
		results = append(results, s.evaluate(ctx, ticker))
	}

	runAt := s.now()
	payload := report.BuildPayload(runAt, results)

	if s.writer != nil {
		if err := s.writer.Write(runAt, results); err != nil {
			return payload, fmt.Errorf("write report: %w", err)
		}
	}
	if s.repo != nil {
		rows := persistence.RowsFromResults(runAt, results)
		if err := s.repo.SaveRun(ctx, rows); err != nil {
			// History is presentation-side; a storage hiccup must not lose
			// the run itself.
			log.Error().Err(err).Msg("failed to persist run")
		}
	}

	s.store.Publish(payload)
	if s.broadcast != nil {
		s.broadcast.Broadcast(payload)
	}
	s.observe(start, results)

	log.Info().
		Int("scored", len(payload.Stocks)).
		Int("failed", len(payload.Failures)).
		Dur("elapsed", s.now().Sub(start)).
		Msg("scan finished")
	return payload, nil
}

func (s *Scanner) evaluate(ctx context.Context, ticker string) scoring.Result {
	snap, err := s.provider.Snapshot(ctx, ticker)
	if err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("snapshot fetch failed")
		if s.metrics != nil {
			s.metrics.ProviderErrors.WithLabelValues(ticker).Inc()
		}
		return scoring.Result{
			Ticker:      ticker,
			EvaluatedAt: s.now(),
			Err:         fmt.Errorf("snapshot %s: %w", ticker, err),
		}
	}
	res := s.engine.EvaluateOne(snap)
	if res.Failed() {
		log.Warn().Err(res.Err).Str("ticker", ticker).Msg("snapshot rejected")
	}
	return res
}

func (s *Scanner) observe(start time.Time, results []scoring.Result) {
	if s.metrics == nil {
		return
	}
	s.metrics.ScansTotal.Inc()
	s.metrics.ScanDuration.Observe(s.now().Sub(start).Seconds())

	scored := 0
	for i := range results {
		if !results[i].Failed() {
			scored++
			continue
		}
		s.metrics.TickerFailures.WithLabelValues(results[i].Ticker, failureReason(results[i].Err)).Inc()
	}
	s.metrics.ScoredTickers.Set(float64(scored))
}

func failureReason(err error) string {
	var invalid *scoring.InvalidSnapshotError
	if errors.As(err, &invalid) {
		return "invalid_snapshot"
	}
	return "provider"
}

// RunLoop repeats Run on the given interval until ctx is cancelled. The
// first run fires immediately.
func (s *Scanner) RunLoop(ctx context.Context, tickers []string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Run(ctx, tickers); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Error().Err(err).Msg("scan run failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
