package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// MetricsRegistry holds the Prometheus metrics for the scoring service.
type MetricsRegistry struct {
	registry *prometheus.Registry

	ScanDuration   prometheus.Histogram
	ScansTotal     prometheus.Counter
	TickerFailures *prometheus.CounterVec
	ScoredTickers  prometheus.Gauge
	ProviderErrors *prometheus.CounterVec
}

// NewMetricsRegistry registers the service metrics on a private registry so
// tests can create any number of instances.
func NewMetricsRegistry() *MetricsRegistry {
	reg := prometheus.NewRegistry()
	m := &MetricsRegistry{
		registry: reg,
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mfses_scan_duration_seconds",
			Help:    "Duration of one full watchlist evaluation run",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mfses_scans_total",
			Help: "Completed evaluation runs",
		}),
		TickerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mfses_ticker_failures_total",
			Help: "Per-ticker failures by reason",
		}, []string{"ticker", "reason"}),
		ScoredTickers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mfses_scored_tickers",
			Help: "Tickers successfully scored in the latest run",
		}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mfses_provider_errors_total",
			Help: "Market data provider errors by ticker",
		}, []string{"ticker"}),
	}
	reg.MustRegister(m.ScanDuration, m.ScansTotal, m.TickerFailures, m.ScoredTickers, m.ProviderErrors)
	return m
}

// Handler exposes the registry in Prometheus text format.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ScoredTickersValue reads back the latest-run gauge, for the health payload.
func (m *MetricsRegistry) ScoredTickersValue() float64 {
	var out dto.Metric
	if err := m.ScoredTickers.Write(&out); err != nil {
		return 0
	}
	return out.GetGauge().GetValue()
}
