// Package server provides the HTTP API for CiteWise.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/citewise/citewise/internal/config"
	"github.com/citewise/citewise/internal/generation"
	"github.com/citewise/citewise/internal/ingest"
	"github.com/citewise/citewise/internal/llm"
	"github.com/citewise/citewise/internal/retrieval"
	"github.com/citewise/citewise/internal/storage"
	"github.com/citewise/citewise/internal/trace"
	"github.com/citewise/citewise/internal/vector"
)

// Server is the HTTP server for the CiteWise API.
type Server struct {
	processor *ingest.Processor
	retriever *retrieval.Retriever
	generator *generation.Generator
	llms      *llm.Registry
	recorder  *trace.Recorder
	storage   storage.Storage
	index     vector.Index
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	processor *ingest.Processor,
	retriever *retrieval.Retriever,
	generator *generation.Generator,
	llms *llm.Registry,
	recorder *trace.Recorder,
	store storage.Storage,
	index vector.Index,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		processor: processor,
		retriever: retriever,
		generator: generator,
		llms:      llms,
		recorder:  recorder,
		storage:   store,
		index:     index,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)

	r.Post("/api/v1/documents", s.handleUploadDocument)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)

	r.Post("/api/v1/query", s.handleQuery)

	r.Get("/api/v1/traces", s.handleListTraces)
	r.Get("/api/v1/traces/{id}", s.handleGetTrace)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
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
