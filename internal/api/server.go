// Package api is the local HTTP control surface used by renderers: bot
// registration, match creation, state polling, external stepping and stop.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MJE43/maze-duel/internal/botstore"
	"github.com/MJE43/maze-duel/internal/match"
	"github.com/MJE43/maze-duel/internal/metrics"
	"github.com/MJE43/maze-duel/internal/scripting"
)

// BotRegistry is the bot persistence the server needs. *botstore.Store
// satisfies it.
type BotRegistry interface {
	Put(src scripting.Source) (*botstore.Bot, error)
	Get(id string) (*botstore.Bot, error)
	Find(role scripting.Role, name string) (*botstore.Bot, error)
	List(role scripting.Role) ([]botstore.Bot, error)
	Delete(id string) error
}

// Options configures a Server. Gatherer and Metrics are optional; without
// a Gatherer /metrics is not served.
type Options struct {
	Match          match.Config
	Logger         *slog.Logger
	Metrics        *metrics.Collector
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
}

// Server handles HTTP requests
type Server struct {
	bots         BotRegistry
	matches      *sessions
	errorHandler *ErrorHandler
	validate     *validator.Validate
	gatherer     prometheus.Gatherer
	logger       *slog.Logger
	timeout      time.Duration
	startTime    time.Time
}

// NewServer creates a new API server
func NewServer(bots BotRegistry, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Server{
		bots:         bots,
		matches:      newSessions(opts.Match, opts.Metrics, logger),
		errorHandler: NewErrorHandler(logger),
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		gatherer:     opts.Gatherer,
		logger:       logger,
		timeout:      timeout,
		startTime:    time.Now(),
	}
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequest)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/bots", func(r chi.Router) {
			r.Post("/", s.handleRegisterBot)
			r.Get("/", s.handleListBots)
			r.Get("/{id}", s.handleGetBot)
			r.Delete("/{id}", s.handleDeleteBot)
		})
		r.Route("/matches", func(r chi.Router) {
			r.Post("/", s.handleCreateMatch)
			r.Get("/", s.handleListMatches)
			r.Get("/{id}", s.handleGetMatch)
			r.Delete("/{id}", s.handleDeleteMatch)
			r.Get("/{id}/state", s.handleMatchState)
			r.Post("/{id}/step", s.handleStepMatch)
			r.Post("/{id}/stop", s.handleStopMatch)
		})
	})

	return r
}

// Shutdown stops every running match.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.matches.shutdown(ctx)
}

// logRequest logs each request at DEBUG once it has been served.
func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// writeJSON writes a JSON response with the engine version header.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		EngineVersion: EngineVersion,
		GitCommit:     GitCommit,
		Uptime:        time.Since(s.startTime).Round(time.Second).String(),
		Matches:       s.matches.count(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
