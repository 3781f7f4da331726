// Package server provides the HTTP REST API over the project catalog and
// per-visitor achievement sessions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/portfolio-engine/internal/filter"
	"github.com/jonathan/portfolio-engine/internal/portfolio"
	"github.com/jonathan/portfolio-engine/internal/server/ratelimit"
)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	logger      *zap.Logger
	rateLimiter *ratelimit.Limiter
	sessions    *Sessions
	validate    *validator.Validate
	catalog     atomic.Pointer[filter.Catalog]
	cfg         Config
}

// Config holds server configuration
type Config struct {
	Port      int
	Logger    *zap.Logger
	RateLimit *ratelimit.Config // nil uses ratelimit.DefaultConfig
	Sessions  SessionConfig

	// SweepInterval is how often idle sessions are expired. Zero uses a minute.
	SweepInterval time.Duration

	// Reload rebuilds the catalog from disk. Together with WatchPaths it
	// enables live reload while serving.
	Reload     func() (*filter.Catalog, error)
	WatchPaths []string
}

// New creates a new server instance serving catalog.
func New(catalog *filter.Catalog, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	s := &Server{
		logger:      cfg.Logger,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		sessions:    NewSessions(cfg.Sessions, cfg.Logger),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		cfg:         cfg,
	}
	s.catalog.Store(catalog)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // badge streams stay open
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.withRateLimit)
	r.Use(s.withLogging)
	r.Use(middleware.Recoverer)
	r.Use(s.withCORS)

	r.Get("/health", s.handleHealth)

	r.Get("/projects", s.handleProjects)
	r.Get("/facets", s.handleFacets)
	r.Get("/stats", s.handleStats)
	r.Get("/markers", s.handleMarkers)
	r.Get("/tags.csv", s.handleTagCSV)
	r.Get("/badges", s.handleBadgeCatalog)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteSession)
			r.Get("/badges", s.handleTray)
			r.Get("/stream", s.handleStream)
			r.Post("/events", s.handleEvent)
			r.Post("/pointer", s.handlePointer)
			r.Post("/reset", s.handleReset)
			r.Post("/badges/{badge}/dismiss", s.handleDismiss)
			r.Post("/badges/{badge}/hover", s.handleHover)
			r.Delete("/badges/hover", s.handleUnhover)
		})
	})

	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Catalog returns the catalog currently being served.
func (s *Server) Catalog() *filter.Catalog {
	return s.catalog.Load()
}

// SetCatalog swaps the served catalog. In-flight requests finish against the
// catalog they started with.
func (s *Server) SetCatalog(c *filter.Catalog) {
	s.catalog.Store(c)
}

// Sessions returns the session registry.
func (s *Server) Sessions() *Sessions {
	return s.sessions
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(s.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s.sessions.Sweep()
			}
		}
	})

	if s.cfg.Reload != nil && len(s.cfg.WatchPaths) > 0 {
		w, err := portfolio.NewWatcher(s.cfg.WatchPaths, s.reload, portfolio.DefaultDebounce, s.logger)
		if err != nil {
			s.logger.Warn("live reload disabled", zap.Error(err))
		} else {
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	err := g.Wait()
	s.Close()
	s.logger.Info("server stopped")
	return err
}

// Close stops background work: rate limiter cleanup and every session's timers.
func (s *Server) Close() {
	s.rateLimiter.Stop()
	s.sessions.Close()
}

func (s *Server) reload() {
	c, err := s.cfg.Reload()
	if err != nil {
		s.logger.Warn("dataset reload failed; keeping previous catalog", zap.Error(err))
		return
	}
	s.SetCatalog(c)
	s.logger.Info("dataset reloaded", zap.Int("projects", c.Len()))
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("error encoding JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to a status with HTTPStatus.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.errorResponse(w, status, err.Error())
}
