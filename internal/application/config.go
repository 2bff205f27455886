package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seesaw/mfses/internal/domain/scoring"
	httpiface "github.com/seesaw/mfses/internal/interfaces/http"
	"github.com/seesaw/mfses/internal/providers"
)

// WatchlistConfig lists the tickers to evaluate, in report order.
type WatchlistConfig struct {
	Tickers []string `yaml:"tickers"`
}

func LoadWatchlistConfig(path string) (*WatchlistConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read watchlist config: %w", err)
	}
	var c WatchlistConfig
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal watchlist config: %w", err)
	}
	if len(c.Tickers) == 0 {
		return nil, fmt.Errorf("watchlist config %s lists no tickers", path)
	}
	return &c, nil
}

// ScoringFileConfig is the yaml shape for scoring overrides. Only the
// sections present in the file replace the built-in defaults; a bracket
// table section replaces that table wholesale.
type ScoringFileConfig struct {
	Moat           *scoring.BracketTable `yaml:"moat"`
	Growth         *scoring.BracketTable `yaml:"growth"`
	Balance        *scoring.BracketTable `yaml:"balance"`
	ValuationRatio *scoring.BracketTable `yaml:"valuation_ratio"`
	Dividend       *scoring.BracketTable `yaml:"dividend"`

	GrowthInputMin *float64 `yaml:"growth_input_min"`
	GrowthInputMax *float64 `yaml:"growth_input_max"`

	Valuation *struct {
		BaseMultiple     *float64 `yaml:"base_multiple"`
		GrowthMultiplier *float64 `yaml:"growth_multiplier"`
		MinGrowth        *float64 `yaml:"min_growth"`
		MaxGrowth        *float64 `yaml:"max_growth"`
		ReferenceYield   *float64 `yaml:"reference_yield"`
		CurrentYield     *float64 `yaml:"current_yield"`
	} `yaml:"valuation"`

	Sectors         map[string]int            `yaml:"sectors"`
	SectorDefault   *int                      `yaml:"sector_default"`
	MomentumNeutral *float64                  `yaml:"momentum_neutral"`
	Sentiment       *scoring.SentimentWeights `yaml:"sentiment"`

	Horizons *struct {
		ShortTerm map[string]float64 `yaml:"short_term"`
		MidTerm   map[string]float64 `yaml:"mid_term"`
		LongTerm  map[string]float64 `yaml:"long_term"`
	} `yaml:"horizons"`
}

// LoadScoringConfig starts from the built-in defaults and applies any
// overrides found at path. A missing file yields the defaults unchanged;
// unknown keys are rejected rather than silently dropped.
func LoadScoringConfig(path string) (scoring.Config, error) {
	cfg := scoring.DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read scoring config: %w", err)
	}

	var file ScoringFileConfig
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to unmarshal scoring config: %w", err)
	}

	applyTable(&cfg.Moat, file.Moat, "moat")
	applyTable(&cfg.Growth, file.Growth, "growth")
	applyTable(&cfg.Balance, file.Balance, "balance")
	applyTable(&cfg.ValuationRatio, file.ValuationRatio, "valuation_ratio")
	applyTable(&cfg.Dividend, file.Dividend, "dividend")
	applyFloat(&cfg.GrowthInputMin, file.GrowthInputMin)
	applyFloat(&cfg.GrowthInputMax, file.GrowthInputMax)

	if v := file.Valuation; v != nil {
		applyFloat(&cfg.Valuation.BaseMultiple, v.BaseMultiple)
		applyFloat(&cfg.Valuation.GrowthMultiplier, v.GrowthMultiplier)
		applyFloat(&cfg.Valuation.MinGrowth, v.MinGrowth)
		applyFloat(&cfg.Valuation.MaxGrowth, v.MaxGrowth)
		applyFloat(&cfg.Valuation.ReferenceYield, v.ReferenceYield)
		applyFloat(&cfg.Valuation.CurrentYield, v.CurrentYield)
	}
	if len(file.Sectors) > 0 {
		cfg.Sectors = file.Sectors
	}
	if file.SectorDefault != nil {
		cfg.SectorDefault = *file.SectorDefault
	}
	if file.MomentumNeutral != nil {
		cfg.MomentumNeutral = *file.MomentumNeutral
	}
	if file.Sentiment != nil {
		cfg.Sentiment = *file.Sentiment
	}
	if h := file.Horizons; h != nil {
		if len(h.ShortTerm) > 0 {
			cfg.ShortTerm = horizonFromMap(h.ShortTerm)
		}
		if len(h.MidTerm) > 0 {
			cfg.MidTerm = horizonFromMap(h.MidTerm)
		}
		if len(h.LongTerm) > 0 {
			cfg.LongTerm = horizonFromMap(h.LongTerm)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("scoring config validation failed: %w", err)
	}
	return cfg, nil
}

func applyTable(dst *scoring.BracketTable, src *scoring.BracketTable, name string) {
	if src == nil {
		return
	}
	if src.Name == "" {
		src.Name = name
	}
	*dst = *src
}

func applyFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func horizonFromMap(m map[string]float64) scoring.HorizonWeights {
	return scoring.HorizonWeights{
		Moat:      m["moat"],
		Growth:    m["growth"],
		Balance:   m["balance"],
		Valuation: m["valuation"],
		Sentiment: m["sentiment"],
	}
}

// ProvidersConfig carries the runtime wiring: data provider, cache,
// persistence, HTTP listener and report output.
type ProvidersConfig struct {
	Polygon struct {
		BaseURL               string  `yaml:"base_url"`
		APIKeyEnv             string  `yaml:"api_key_env"`
		RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
		RequestsPerMinute     float64 `yaml:"requests_per_minute"`
		Burst                 int     `yaml:"burst"`
		CacheTTLSeconds       int     `yaml:"cache_ttl_seconds"`
		HistoryDays           int     `yaml:"history_days"`
	} `yaml:"polygon"`

	Cache struct {
		RedisAddr string `yaml:"redis_addr"`
	} `yaml:"cache"`

	Postgres struct {
		DSNEnv                string `yaml:"dsn_env"`
		ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds"`
	} `yaml:"postgres"`

	HTTP struct {
		Host                string `yaml:"host"`
		Port                int    `yaml:"port"`
		ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
		IdleTimeoutSeconds  int    `yaml:"idle_timeout_seconds"`
		StaticDir           string `yaml:"static_dir"`
	} `yaml:"http"`

	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
}

func LoadProvidersConfig(path string) (*ProvidersConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers config: %w", err)
	}
	var c ProvidersConfig
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal providers config: %w", err)
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "out"
	}
	return &c, nil
}

// PolygonConfig resolves the provider settings, reading the API key from
// the configured environment variable.
func (c *ProvidersConfig) PolygonConfig() providers.PolygonConfig {
	env := c.Polygon.APIKeyEnv
	if env == "" {
		env = "POLYGON_API_KEY"
	}
	return providers.PolygonConfig{
		BaseURL:        c.Polygon.BaseURL,
		APIKey:         os.Getenv(env),
		RequestTimeout: time.Duration(c.Polygon.RequestTimeoutSeconds) * time.Second,
		RPS:            c.Polygon.RequestsPerMinute / 60.0,
		Burst:          c.Polygon.Burst,
		CacheTTL:       time.Duration(c.Polygon.CacheTTLSeconds) * time.Second,
		HistoryDays:    c.Polygon.HistoryDays,
	}
}

// ServerConfig resolves the HTTP listener settings.
func (c *ProvidersConfig) ServerConfig() httpiface.ServerConfig {
	return httpiface.ServerConfig{
		Host:         c.HTTP.Host,
		Port:         c.HTTP.Port,
		ReadTimeout:  time.Duration(c.HTTP.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(c.HTTP.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(c.HTTP.IdleTimeoutSeconds) * time.Second,
		StaticDir:    c.HTTP.StaticDir,
	}
}

// PostgresDSN resolves the connection string, empty when persistence is
// disabled.
func (c *ProvidersConfig) PostgresDSN() string {
	env := c.Postgres.DSNEnv
	if env == "" {
		env = "MFSES_POSTGRES_DSN"
	}
	return os.Getenv(env)
}

func (c *ProvidersConfig) PostgresConnectTimeout() time.Duration {
	if c.Postgres.ConnectTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Postgres.ConnectTimeoutSeconds) * time.Second
}
