// Package server exposes the query and stats operations over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"docdex/internal/config"
	"docdex/internal/retriever"
	"docdex/internal/store"
)

// Searcher answers semantic queries.
type Searcher interface {
	Query(queryText string, opts retriever.Options) (*retriever.Response, error)
}

// StatsProvider reports collection statistics.
type StatsProvider interface {
	Stats() (*store.Stats, error)
}

// Server is the docdex HTTP API.
type Server struct {
	searcher Searcher
	stats    StatsProvider
	cfg      *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// New creates a server with the given dependencies.
func New(searcher Searcher, stats StatsProvider, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{searcher: searcher, stats: stats, cfg: cfg, logger: logger}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/query", s.handleQuery)
	r.Get("/api/stats", s.handleStats)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{Addr: addr, Handler: s.Router()}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
