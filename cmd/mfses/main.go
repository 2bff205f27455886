package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/seesaw/mfses/internal/application"
	"github.com/seesaw/mfses/internal/data/cache"
	"github.com/seesaw/mfses/internal/domain/scoring"
	httpiface "github.com/seesaw/mfses/internal/interfaces/http"
	"github.com/seesaw/mfses/internal/interfaces/http/handlers"
	"github.com/seesaw/mfses/internal/persistence"
	"github.com/seesaw/mfses/internal/persistence/postgres"
	"github.com/seesaw/mfses/internal/providers"
	"github.com/seesaw/mfses/internal/report"
)

const (
	appName = "mfses"
	version = "v1.2.0"
)

var (
	flagScoringPath   string
	flagWatchlistPath string
	flagProvidersPath string
	flagOutputDir     string
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Multi-factor stock evaluation engine",
		Version: version,
		Long: `mfses scores equities on five fundamentals-driven factors (moat, growth,
balance sheet, valuation, sentiment) and blends them into short, mid and
long horizon composites.

Use 'mfses scan' for a one-shot evaluation that writes the JSON and HTML
report, or 'mfses serve' to run continuous scans behind the scores API.`,
	}

	rootCmd.PersistentFlags().StringVar(&flagScoringPath, "scoring-config", "config/scoring.yaml", "Scoring overrides yaml")
	rootCmd.PersistentFlags().StringVar(&flagWatchlistPath, "watchlist", "config/watchlist.yaml", "Watchlist yaml")
	rootCmd.PersistentFlags().StringVar(&flagProvidersPath, "providers-config", "config/providers.yaml", "Provider wiring yaml")
	rootCmd.PersistentFlags().StringVar(&flagOutputDir, "out", "", "Report output directory (overrides providers config)")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Evaluate the watchlist once and write the report",
		RunE:  runScan,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run periodic scans behind the scores API",
		RunE:  runServe,
	}
	serveCmd.Flags().Duration("interval", 15*time.Minute, "Time between scans")

	rootCmd.AddCommand(scanCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// wiring holds everything both commands assemble from configuration.
type wiring struct {
	providers *application.ProvidersConfig
	watchlist *application.WatchlistConfig
	scanner   *application.Scanner
	store     *application.ResultStore
	metrics   *httpiface.MetricsRegistry
	repo      persistence.ScoreRepo
}

func buildWiring(ctx context.Context) (*wiring, error) {
	provCfg, err := application.LoadProvidersConfig(flagProvidersPath)
	if err != nil {
		return nil, err
	}
	watchlist, err := application.LoadWatchlistConfig(flagWatchlistPath)
	if err != nil {
		return nil, err
	}
	scoringCfg, err := application.LoadScoringConfig(flagScoringPath)
	if err != nil {
		return nil, err
	}
	engine, err := scoring.NewEngine(scoringCfg)
	if err != nil {
		return nil, err
	}

	polygonCfg := provCfg.PolygonConfig()
	if polygonCfg.APIKey == "" {
		return nil, fmt.Errorf("polygon API key is not set (see providers config api_key_env)")
	}
	provider := providers.NewPolygonProvider(polygonCfg, cache.NewAuto(provCfg.Cache.RedisAddr))

	outDir := provCfg.Output.Dir
	if flagOutputDir != "" {
		outDir = flagOutputDir
	}

	store := application.NewResultStore()
	metrics := httpiface.NewMetricsRegistry()
	scanner := application.NewScanner(provider, engine, report.NewWriter(outDir), store).
		WithMetrics(metrics)

	w := &wiring{
		providers: provCfg,
		watchlist: watchlist,
		scanner:   scanner,
		store:     store,
		metrics:   metrics,
	}

	if dsn := provCfg.PostgresDSN(); dsn != "" {
		repo, err := postgres.Connect(ctx, dsn, provCfg.PostgresConnectTimeout())
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		w.repo = repo
		scanner.WithRepo(repo)
	}

	return w, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w, err := buildWiring(ctx)
	if err != nil {
		return err
	}

	payload, err := w.scanner.Run(ctx, w.watchlist.Tickers)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "scored %d tickers (%d failed)\n", len(payload.Stocks), len(payload.Failures))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	interval, err := cmd.Flags().GetDuration("interval")
	if err != nil {
		return err
	}

	w, err := buildWiring(ctx)
	if err != nil {
		return err
	}

	hub := httpiface.NewHub()
	w.scanner.WithBroadcaster(hub)

	h := handlers.NewHandlers(w.store, w.repo)
	server := httpiface.NewServer(w.providers.ServerConfig(), h, w.metrics, hub)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()
	go func() {
		if err := w.scanner.RunLoop(ctx, w.watchlist.Tickers, interval); err != nil {
			log.Error().Err(err).Msg("scan loop exited")
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
