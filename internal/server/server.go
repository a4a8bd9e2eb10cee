// Package server exposes the RAG service over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/ragstore/internal/config"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/internal/rag"
	"github.com/hyperjump/ragstore/pkg/utils"
)

// RAG is the service the HTTP API calls into. *rag.Service implements it.
type RAG interface {
	AddKnowledge(ctx context.Context, text string, metadata map[string]any) (*models.KnowledgeResult, error)
	AddDocument(ctx context.Context, path string) (*models.DocumentResult, error)
	AddDirectory(ctx context.Context, dir string) ([]*models.DocumentResult, error)
	AllDocuments(ctx context.Context) ([]models.DocumentSummary, error)
	DeleteDocument(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
	Search(ctx context.Context, query string, opts ...rag.QueryOption) ([]models.SearchResult, error)
	GenerateAnswer(ctx context.Context, question string, opts ...rag.QueryOption) (*models.Answer, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// WatchService manages watched directories. *watcher.Watcher implements it.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the RAG API.
type Server struct {
	rag        RAG
	watch      WatchService
	cfg        *config.Config
	configPath string
	cfgMu      sync.Mutex
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server. watch may be nil when directory watching is disabled; when
// configPath is set, watched directory changes are saved back to it.
func NewServer(svc RAG, cfg *config.Config, logger *zap.Logger, watch WatchService, configPath string) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Server{
		rag:        svc,
		watch:      watch,
		cfg:        cfg,
		configPath: configPath,
		logger:     utils.LoggerOrNop(logger),
	}
}

// Routes returns the HTTP handler with all routes and middleware.
func (s *Server) Routes() http.Handler {
	timeout := time.Duration(s.cfg.Server.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1/rag", func(r chi.Router) {
		r.Post("/knowledge", s.handleAddKnowledge)
		r.Post("/documents", s.handleAddDocument)
		r.Get("/documents", s.handleListDocuments)
		r.Delete("/documents", s.handleClear)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Post("/search", s.handleSearch)
		r.Post("/answer", s.handleAnswer)
		r.Get("/stats", s.handleStats)
	})
	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
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

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
