// Package server provides the HTTP API for revsearch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/arielhalevy123/revsearch/internal/config"
	"github.com/arielhalevy123/revsearch/internal/embedding"
	"github.com/arielhalevy123/revsearch/internal/metrics"
	"github.com/arielhalevy123/revsearch/internal/search"
	"github.com/arielhalevy123/revsearch/internal/vector"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Server is the HTTP server for the revsearch API.
type Server struct {
	retriever *search.Retriever
	embedder  embedding.Embedder
	index     vector.Index
	config    *config.Config
	metrics   *metrics.Metrics
	logger    *zap.Logger
	version   string
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	retriever *search.Retriever,
	embedder embedding.Embedder,
	index vector.Index,
	cfg *config.Config,
	m *metrics.Metrics,
	logger *zap.Logger,
	version string,
) *Server {
	return &Server{
		retriever: retriever,
		embedder:  embedder,
		index:     index,
		config:    cfg,
		metrics:   m,
		logger:    logger,
		version:   version,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/search", s.handleSearch)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/", s.handleIndex)
	// URL paths under /static/ match the embedded paths as-is, so the
	// file server needs no prefix stripping.
	r.Handle("/static/*", http.FileServer(http.FS(staticFiles)))

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
