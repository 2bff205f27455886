package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/seesaw/mfses/internal/persistence"
	"github.com/seesaw/mfses/internal/report"
)

// ResultSource serves the latest completed evaluation run.
type ResultSource interface {
	LatestPayload() (report.Payload, bool)
}

// Handlers owns the read-only API endpoints.
type Handlers struct {
	source  ResultSource
	history persistence.ScoreRepo // nil when no database is configured
	started time.Time
}

func NewHandlers(source ResultSource, history persistence.ScoreRepo) *Handlers {
	return &Handlers{source: source, history: history, started: time.Now()}
}

// Health reports service liveness and the freshness of the latest run.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.source.LatestPayload()
	resp := map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
	}
	if ok {
		resp["last_run"] = payload.Updated
		resp["scored"] = len(payload.Stocks)
		resp["failed"] = len(payload.Failures)
	} else {
		resp["status"] = "waiting_for_first_run"
	}
	writeJSON(w, http.StatusOK, resp)
}

// Scores returns the full latest run in watchlist order.
func (h *Handlers) Scores(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.source.LatestPayload()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no evaluation run completed yet")
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// ScoreByTicker returns one ticker's latest result, including the factor
// audit breakdown, plus persisted history when a database is configured.
func (h *Handlers) ScoreByTicker(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]
	payload, ok := h.source.LatestPayload()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no evaluation run completed yet")
		return
	}

	for _, res := range payload.Stocks {
		if res.Ticker != ticker {
			continue
		}
		resp := map[string]any{"result": res}
		if h.history != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			rows, err := h.history.History(ctx, ticker, 30)
			if err != nil {
				log.Warn().Err(err).Str("ticker", ticker).Msg("history lookup failed")
			} else {
				resp["history"] = rows
			}
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	for _, f := range payload.Failures {
		if f.Ticker == ticker {
			writeError(w, http.StatusUnprocessableEntity, f.Error)
			return
		}
	}
	writeError(w, http.StatusNotFound, "ticker not in watchlist: "+ticker)
}

// NotFound is the router's fallback handler.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "unknown endpoint: "+r.URL.Path)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
