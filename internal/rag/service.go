// Package rag ties the embedding provider, the vector store and the document
// processor together into ingestion and retrieval operations.
package rag

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hyperjump/ragstore/internal/config"
	"github.com/hyperjump/ragstore/internal/embedding"
	"github.com/hyperjump/ragstore/internal/indexer"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/internal/vector"
	"github.com/hyperjump/ragstore/pkg/utils"
)

var (
	// ErrUnavailable wraps initialization failures such as a model that cannot be loaded.
	ErrUnavailable = errors.New("rag service unavailable")
	// ErrEmptyContent is returned when text or an extracted file is empty after cleaning.
	ErrEmptyContent = errors.New("content is empty")
)

// State is the lifecycle state of a Service.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Service is the RAG entry point. Every operation initializes the service on first use.
type Service struct {
	provider  *embedding.Provider
	store     *vector.Store
	processor *indexer.Processor
	chunker   *indexer.Chunker
	logger    *zap.Logger
	defaults  config.RetrievalConfig

	initMu sync.Mutex
	state  atomic.Int32
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithChunker sets the chunker used by AddKnowledge.
func WithChunker(c *indexer.Chunker) Option {
	return func(s *Service) {
		if c != nil {
			s.chunker = c
		}
	}
}

// WithDefaults sets the retrieval defaults. Zero fields keep the built-in defaults.
func WithDefaults(r config.RetrievalConfig) Option {
	return func(s *Service) {
		if r.TopK > 0 {
			s.defaults.TopK = r.TopK
		}
		if r.Threshold != 0 {
			s.defaults.Threshold = r.Threshold
		}
		if r.AnswerTopK > 0 {
			s.defaults.AnswerTopK = r.AnswerTopK
		}
		if r.ContextLength > 0 {
			s.defaults.ContextLength = r.ContextLength
		}
	}
}

// NewService creates a service. processor may be nil, in which case a default processor is used.
func NewService(provider *embedding.Provider, store *vector.Store, processor *indexer.Processor, opts ...Option) *Service {
	if processor == nil {
		processor = indexer.NewProcessor(nil)
	}
	s := &Service{
		provider:  provider,
		store:     store,
		processor: processor,
		chunker:   processor.Chunker(),
		defaults: config.RetrievalConfig{
			TopK:          config.DefaultTopK,
			Threshold:     config.DefaultThreshold,
			AnswerTopK:    config.DefaultAnswerTopK,
			ContextLength: config.DefaultContextLength,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.LoggerOrNop(s.logger)
	return s
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Initialize loads the embedding model and the stored data. It is idempotent; concurrent
// callers wait for the first one to finish. On failure the service returns to
// StateUninitialized and the error wraps ErrUnavailable.
func (s *Service) Initialize(ctx context.Context) error {
	if s.State() == StateReady {
		return nil
	}
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.State() == StateReady {
		return nil
	}

	s.state.Store(int32(StateInitializing))
	s.logger.Info("initializing RAG service")
	if err := s.provider.Initialize(ctx); err != nil {
		s.state.Store(int32(StateUninitialized))
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := s.store.Initialize(ctx); err != nil {
		s.state.Store(int32(StateUninitialized))
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.state.Store(int32(StateReady))
	s.logger.Info("RAG service ready", zap.Int("documents", s.store.Len()))
	return nil
}

// Close releases the embedding model. The next operation initializes the service again.
func (s *Service) Close() error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	s.state.Store(int32(StateUninitialized))
	return s.provider.Close()
}

// AddKnowledge cleans text and stores it with metadata source "manual" and type "knowledge"
// (caller metadata wins). Chunks are stored as separate documents only when the text yields
// more than one chunk.
func (s *Service) AddKnowledge(ctx context.Context, text string, metadata map[string]any) (*models.KnowledgeResult, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	clean := indexer.CleanContent(text)
	if clean == "" {
		return nil, ErrEmptyContent
	}

	meta := map[string]any{
		models.MetaSource: "manual",
		models.MetaType:   "knowledge",
	}
	maps.Copy(meta, metadata)

	chunks := s.chunker.Chunk(clean)
	mainID, err := s.store.AddDocument(ctx, clean, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to add knowledge: %w", err)
	}

	result := &models.KnowledgeResult{
		MainID:      mainID,
		ChunkIDs:    []string{},
		TotalChunks: len(chunks),
	}
	if len(chunks) > 1 {
		ids, err := s.addChunks(ctx, mainID, chunks, meta)
		if err != nil {
			return nil, err
		}
		result.ChunkIDs = ids
	}
	s.logger.Info("knowledge added", zap.String("id", mainID), zap.Int("chunks", len(result.ChunkIDs)))
	return result, nil
}

// AddDocument processes the file at path and stores the full content plus every chunk.
func (s *Service) AddDocument(ctx context.Context, path string) (*models.DocumentResult, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	processed, err := s.processor.ProcessFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.addProcessed(ctx, processed)
}

// AddDirectory stores every supported file under dir. Files that fail are logged and skipped.
func (s *Service) AddDirectory(ctx context.Context, dir string) ([]*models.DocumentResult, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	docs, err := s.processor.ProcessDirectory(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to process directory: %w", err)
	}

	results := make([]*models.DocumentResult, 0, len(docs))
	for _, doc := range docs {
		res, err := s.addProcessed(ctx, doc)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return results, ctxErr
			}
			s.logger.Warn("failed to add document", zap.Any("file", doc.Metadata[models.MetaFileName]), zap.Error(err))
			continue
		}
		results = append(results, res)
	}
	s.logger.Info("directory added", zap.String("dir", dir), zap.Int("documents", len(results)))
	return results, nil
}

// ReplaceDocument adds the file at path like AddDocument and then removes documents
// previously ingested from the same path that the new version no longer produces.
func (s *Service) ReplaceDocument(ctx context.Context, path string) (*models.DocumentResult, error) {
	res, err := s.AddDocument(ctx, path)
	if err != nil {
		return nil, err
	}
	keep := make(map[string]struct{}, len(res.ChunkIDs)+1)
	keep[res.MainDocID] = struct{}{}
	for _, id := range res.ChunkIDs {
		keep[id] = struct{}{}
	}
	filePath, _ := res.Metadata[models.MetaFilePath].(string)
	removed, err := s.store.DeleteWhere(ctx, func(d *models.Document) bool {
		if d.String(models.MetaFilePath) != filePath {
			return false
		}
		_, ok := keep[d.ID]
		return !ok
	})
	if err != nil {
		return nil, fmt.Errorf("failed to remove stale documents: %w", err)
	}
	if removed > 0 {
		s.logger.Info("stale documents removed", zap.String("path", filePath), zap.Int("count", removed))
	}
	return res, nil
}

func (s *Service) addProcessed(ctx context.Context, processed *models.ProcessedDocument) (*models.DocumentResult, error) {
	fileName, _ := processed.Metadata[models.MetaFileName].(string)
	if processed.Content == "" {
		return nil, fmt.Errorf("%s: %w", fileName, ErrEmptyContent)
	}

	mainID, err := s.store.AddDocument(ctx, processed.Content, processed.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to add %s: %w", fileName, err)
	}
	ids, err := s.addChunks(ctx, mainID, processed.Chunks, processed.Metadata)
	if err != nil {
		return nil, err
	}
	s.logger.Info("document added", zap.String("file", fileName), zap.String("id", mainID), zap.Int("chunks", len(ids)))
	return &models.DocumentResult{
		MainDocID:   mainID,
		ChunkIDs:    ids,
		TotalChunks: len(processed.Chunks),
		Metadata:    processed.Metadata,
	}, nil
}

// addChunks stores chunks under parentID. Chunk texts are embedded up front in one batch,
// which fills the provider cache the store reads from; no chunk is stored unless every
// chunk could be embedded.
func (s *Service) addChunks(ctx context.Context, parentID string, chunks []models.Chunk, base map[string]any) ([]string, error) {
	if len(chunks) > 1 {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Content
		}
		if _, err := s.provider.EmbedBatch(ctx, texts, 0); err != nil {
			return nil, fmt.Errorf("failed to embed chunks: %w", err)
		}
	}
	ids := make([]string, 0, len(chunks))
	for i, ch := range chunks {
		meta := maps.Clone(base)
		if meta == nil {
			meta = make(map[string]any, 4)
		}
		meta[models.MetaIsChunk] = true
		meta[models.MetaParentDocID] = parentID
		meta[models.MetaChunkIndex] = i
		meta[models.MetaChunkWordCount] = ch.WordCount

		id, err := s.store.AddDocument(ctx, ch.Content, meta)
		if err != nil {
			return nil, fmt.Errorf("failed to add chunk %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Stats returns store statistics.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	if err := s.Initialize(ctx); err != nil {
		return models.Stats{}, err
	}
	return s.store.Stats(), nil
}

// ClearAll removes every stored document.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.Initialize(ctx); err != nil {
		return err
	}
	return s.store.ClearAll(ctx)
}

// DeleteDocument removes one document by id. Its chunks are kept.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	if err := s.Initialize(ctx); err != nil {
		return err
	}
	return s.store.DeleteDocument(ctx, id)
}

// DeleteByFilePath removes every document (main and chunks) ingested from path.
func (s *Service) DeleteByFilePath(ctx context.Context, path string) (int, error) {
	if err := s.Initialize(ctx); err != nil {
		return 0, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	return s.store.DeleteWhere(ctx, func(d *models.Document) bool {
		return d.String(models.MetaFilePath) == absPath
	})
}

// AllDocuments lists every stored document, chunks included.
func (s *Service) AllDocuments(ctx context.Context) ([]models.DocumentSummary, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	return s.store.AllDocuments(), nil
}

// ExportData returns a snapshot of the store.
func (s *Service) ExportData(ctx context.Context) (*models.Snapshot, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	return s.store.ExportData(ctx)
}

// ImportData replaces the store contents with snap.
func (s *Service) ImportData(ctx context.Context, snap *models.Snapshot) error {
	if err := s.Initialize(ctx); err != nil {
		return err
	}
	return s.store.ImportData(ctx, snap)
}
