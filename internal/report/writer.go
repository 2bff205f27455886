package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/seesaw/mfses/internal/domain/scoring"
)

// Payload is the serialized form of one evaluation run, consumed by the
// static dashboard and the /scores API.
type Payload struct {
	Updated  time.Time        `json:"updated"`
	Stocks   []scoring.Result `json:"stocks"`
	Failures []Failure        `json:"failures,omitempty"`
}

// Failure records a ticker that could not be scored in this run.
type Failure struct {
	Ticker string `json:"ticker"`
	Error  string `json:"error"`
}

// BuildPayload splits a run into scored stocks and failures, preserving
// watchlist order.
func BuildPayload(runAt time.Time, results []scoring.Result) Payload {
	p := Payload{Updated: runAt}
	for _, res := range results {
		if res.Failed() {
			p.Failures = append(p.Failures, Failure{Ticker: res.Ticker, Error: res.Err.Error()})
			continue
		}
		p.Stocks = append(p.Stocks, res)
	}
	return p
}

// Writer renders evaluation runs into a JSON feed and a static HTML
// dashboard under one output directory.
type Writer struct {
	outDir string
}

func NewWriter(outDir string) *Writer {
	return &Writer{outDir: outDir}
}

// Write persists data.json and index.html for the run. Files are written to
// a temp path and renamed so readers never observe a partial report.
func (w *Writer) Write(runAt time.Time, results []scoring.Result) error {
	if err := os.MkdirAll(w.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	payload := BuildPayload(runAt, results)

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := atomicWrite(filepath.Join(w.outDir, "data.json"), data); err != nil {
		return err
	}

	html, err := renderDashboard(payload)
	if err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	if err := atomicWrite(filepath.Join(w.outDir, "index.html"), html); err != nil {
		return err
	}

	log.Info().Str("dir", w.outDir).
		Int("stocks", len(payload.Stocks)).
		Int("failures", len(payload.Failures)).
		Msg("report written")
	return nil
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
