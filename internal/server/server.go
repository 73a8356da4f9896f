// Package server exposes the HTTP API: paper ingestion, semantic search,
// related papers, and contradiction candidates.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/catalog"
	"github.com/hyperjump/tsunagu/internal/config"
	"github.com/hyperjump/tsunagu/internal/ingest"
	"github.com/hyperjump/tsunagu/internal/search"
	"github.com/hyperjump/tsunagu/internal/summarize"
	"github.com/hyperjump/tsunagu/internal/vectordb"
)

// Server is the HTTP API server.
type Server struct {
	engine       *search.Engine
	orchestrator *ingest.Orchestrator
	catalog      *catalog.Catalog
	index        vectordb.Index
	summarizer   summarize.Summarizer
	cfg          *config.ServerConfig
	log          *zap.Logger
	httpServer   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithSummarizer enables the paper summary endpoint.
func WithSummarizer(sum summarize.Summarizer) Option {
	return func(s *Server) { s.summarizer = sum }
}

// NewServer creates a server over the given components.
func NewServer(engine *search.Engine, orch *ingest.Orchestrator, cat *catalog.Catalog, idx vectordb.Index, cfg *config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		engine:       engine,
		orchestrator: orch,
		catalog:      cat,
		index:        idx,
		cfg:          cfg,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP routes. Exposed for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/search", s.handleSearch)
		r.Post("/contradictions", s.handleContradictions)
		r.Route("/papers", func(r chi.Router) {
			r.Post("/", s.handleIngestPaper)
			r.Get("/", s.handleListPapers)
			r.Get("/{id}", s.handleGetPaper)
			r.Delete("/{id}", s.handleDeletePaper)
			r.Get("/{id}/related", s.handleRelatedPapers)
			r.Get("/{id}/summary", s.handleSummarizePaper)
		})
	})
	return r
}

// Start runs the server until it fails or Stop is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.log.Info("api server listening", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
