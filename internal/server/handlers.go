package server

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/ragstore/internal/config"
	"github.com/hyperjump/ragstore/internal/extract"
	"github.com/hyperjump/ragstore/internal/indexer"
	"github.com/hyperjump/ragstore/internal/rag"
)

type knowledgeRequest struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type documentRequest struct {
	Path string `json:"path"`
}

type searchRequest struct {
	Query           string         `json:"query"`
	TopK            *int           `json:"topK,omitempty"`
	Threshold       *float64       `json:"threshold,omitempty"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata *bool          `json:"includeMetadata,omitempty"`
}

type answerRequest struct {
	Question      string   `json:"question"`
	TopK          *int     `json:"topK,omitempty"`
	Threshold     *float64 `json:"threshold,omitempty"`
	ContextLength *int     `json:"contextLength,omitempty"`
}

func (s *Server) handleAddKnowledge(w http.ResponseWriter, r *http.Request) {
	var req knowledgeRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.rag.AddKnowledge(r.Context(), req.Text, req.Metadata)
	if err != nil {
		s.fail(w, "add knowledge", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	info, err := os.Stat(req.Path)
	if err != nil {
		s.fail(w, "add document", err)
		return
	}
	if info.IsDir() {
		results, err := s.rag.AddDirectory(r.Context(), req.Path)
		if err != nil {
			s.fail(w, "add directory", err)
			return
		}
		s.respondJSON(w, http.StatusCreated, map[string]any{"documents": results, "total": len(results)})
		return
	}
	res, err := s.rag.AddDocument(r.Context(), req.Path)
	if err != nil {
		s.fail(w, "add document", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.rag.AllDocuments(r.Context())
	if err != nil {
		s.fail(w, "list documents", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": docs, "total": len(docs)})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if err := s.rag.DeleteDocument(r.Context(), id); err != nil {
		s.fail(w, "delete document", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.rag.ClearAll(r.Context()); err != nil {
		s.fail(w, "clear", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	var opts []rag.QueryOption
	if req.TopK != nil {
		opts = append(opts, rag.WithTopK(*req.TopK))
	}
	if req.Threshold != nil {
		opts = append(opts, rag.WithThreshold(*req.Threshold))
	}
	if len(req.Filter) > 0 {
		opts = append(opts, rag.WithFilter(req.Filter))
	}
	if req.IncludeMetadata != nil && !*req.IncludeMetadata {
		opts = append(opts, rag.WithoutMetadata())
	}
	s.logger.Debug("search request", zap.String("query", req.Query))
	results, err := s.rag.Search(r.Context(), req.Query, opts...)
	if err != nil {
		s.fail(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": req.Query, "results": results, "total": len(results)})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	var opts []rag.QueryOption
	if req.TopK != nil {
		opts = append(opts, rag.WithTopK(*req.TopK))
	}
	if req.Threshold != nil {
		opts = append(opts, rag.WithThreshold(*req.Threshold))
	}
	if req.ContextLength != nil {
		opts = append(opts, rag.WithContextLength(*req.ContextLength))
	}
	ans, err := s.rag.GenerateAnswer(r.Context(), req.Question, opts...)
	if err != nil {
		s.fail(w, "answer", err)
		return
	}
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.rag.Stats(r.Context())
	if err != nil {
		s.fail(w, "stats", err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		s.fail(w, "watch add directory", err)
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.fail(w, "watch add directory", err)
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body documentRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.fail(w, "watch remove directory", err)
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.cfg); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rag.ErrEmptyContent),
		errors.Is(err, extract.ErrUnsupportedFormat),
		errors.Is(err, indexer.ErrInvalidChunking):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, rag.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
