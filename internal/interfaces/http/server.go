package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/seesaw/mfses/internal/interfaces/http/handlers"
)

// ServerConfig carries the HTTP listener settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// StaticDir, when set, is served at / so the generated dashboard is
	// reachable from the same process.
	StaticDir string
}

func (c *ServerConfig) withDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
}

// Server exposes scores, health and metrics over HTTP.
type Server struct {
	cfg      ServerConfig
	handlers *handlers.Handlers
	metrics  *MetricsRegistry
	hub      *Hub

	srv *http.Server
}

func NewServer(cfg ServerConfig, h *handlers.Handlers, metrics *MetricsRegistry, hub *Hub) *Server {
	cfg.withDefaults()
	s := &Server{
		cfg:      cfg,
		handlers: h,
		metrics:  metrics,
		hub:      hub,
	}

	router := mux.NewRouter()
	router.Use(s.requestID, s.logRequests, s.jsonContent)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/scores", h.Scores).Methods(http.MethodGet)
	router.HandleFunc("/scores/{ticker}", h.ScoreByTicker).Methods(http.MethodGet)
	if metrics != nil {
		router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}
	if hub != nil {
		router.HandleFunc("/ws", hub.ServeWS)
	}
	if cfg.StaticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))
	} else {
		router.NotFoundHandler = http.HandlerFunc(h.NotFound)
	}

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Start blocks serving requests until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("http server shutting down")
	return s.srv.Shutdown(ctx)
}

// Router is exposed for handler tests.
func (s *Server) Router() http.Handler {
	return s.srv.Handler
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Str("request_id", rec.Header().Get("X-Request-ID")).
			Msg("request")
	})
}

// jsonContent marks API responses as JSON. Metrics, websocket and static
// paths set their own content types.
func (s *Server) jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if p == "/health" || p == "/scores" || strings.HasPrefix(p, "/scores/") {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
