// Package vector is a file-backed store of documents and their embeddings with
// brute-force cosine search.
package vector

import (
	"cmp"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ragstore/internal/embedding"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/internal/storage"
	"github.com/hyperjump/ragstore/pkg/utils"
)

// Files written under the store directory.
const (
	DocumentsFile  = "documents.json"
	EmbeddingsFile = "embeddings.json"
	MetadataFile   = "metadata.json"
)

// ErrMisalignedSnapshot is returned when documents and embeddings do not pair up by position and id.
var ErrMisalignedSnapshot = errors.New("documents and embeddings are not aligned")

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Hit is a scored search result.
type Hit struct {
	ID         string
	Content    string
	Document   models.Document
	Similarity float64
}

// Store is a persistent, linearly searched collection of documents and their embeddings.
// Every mutation rewrites the three store files.
type Store struct {
	path     string
	embedder Embedder
	logger   *zap.Logger
	fio      storage.FileIO
	now      func() time.Time

	mu         sync.RWMutex
	documents  []models.Document
	embeddings []models.EmbeddingRecord
	index      map[string]int
	metadata   map[string]any
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithFileIO replaces the file I/O used for persistence.
func WithFileIO(fio storage.FileIO) StoreOption {
	return func(s *Store) {
		s.fio = fio
	}
}

// WithClock sets the time source for addedAt and lastUpdated.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns a store rooted at path. Call Initialize before use.
func NewStore(path string, embedder Embedder, opts ...StoreOption) *Store {
	s := &Store{
		path:     path,
		embedder: embedder,
		fio:      storage.NewFileIO(),
		now:      time.Now,
		index:    make(map[string]int),
		metadata: make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.LoggerOrNop(s.logger)
	return s
}

// ContentID returns the store id for content: the lowercase hex MD5 of its bytes.
func ContentID(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Path returns the store directory.
func (s *Store) Path() string {
	return s.path
}

// Initialize creates the store directory and loads any existing files.
// Unreadable files are logged and the store starts empty; documents and embeddings
// that do not pair up by id are dropped with a warning.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.fio.MkdirAll(ctx, s.path, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, embs, meta, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("failed to load store from disk, starting empty",
			zap.String("path", s.path), zap.Error(err))
		docs, embs, meta = nil, nil, nil
	}
	s.replaceLocked(docs, embs, meta)
	s.logger.Info("vector store initialized",
		zap.String("path", s.path), zap.Int("documents", len(s.documents)))
	return nil
}

func (s *Store) load(ctx context.Context) ([]models.Document, []models.EmbeddingRecord, map[string]any, error) {
	var (
		docs []models.Document
		embs []models.EmbeddingRecord
		meta map[string]any
	)
	if err := s.readJSON(ctx, DocumentsFile, &docs); err != nil {
		return nil, nil, nil, err
	}
	if err := s.readJSON(ctx, EmbeddingsFile, &embs); err != nil {
		return nil, nil, nil, err
	}
	if err := s.readJSON(ctx, MetadataFile, &meta); err != nil {
		return nil, nil, nil, err
	}
	if err := checkAligned(docs, embs); err != nil {
		var dropped int
		docs, embs, dropped = pairByID(docs, embs)
		s.logger.Warn("documents and embeddings out of step, dropping unpaired entries",
			zap.String("path", s.path), zap.Int("dropped", dropped), zap.Error(err))
	}
	return docs, embs, meta, nil
}

// pairByID keeps the documents that have an embedding, in document order, with
// embeddings realigned to them. It returns how many entries were dropped.
func pairByID(docs []models.Document, embs []models.EmbeddingRecord) ([]models.Document, []models.EmbeddingRecord, int) {
	byID := make(map[string]models.EmbeddingRecord, len(embs))
	for _, e := range embs {
		if _, ok := byID[e.ID]; !ok {
			byID[e.ID] = e
		}
	}
	keptDocs := make([]models.Document, 0, len(docs))
	keptEmbs := make([]models.EmbeddingRecord, 0, len(docs))
	for _, d := range docs {
		e, ok := byID[d.ID]
		if !ok {
			continue
		}
		delete(byID, d.ID)
		keptDocs = append(keptDocs, d)
		keptEmbs = append(keptEmbs, e)
	}
	return keptDocs, keptEmbs, len(docs) + len(embs) - 2*len(keptDocs)
}

// readJSON decodes name into v. A missing file leaves v untouched.
func (s *Store) readJSON(ctx context.Context, name string, v any) error {
	data, err := s.fio.ReadFile(ctx, filepath.Join(s.path, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func checkAligned(docs []models.Document, embs []models.EmbeddingRecord) error {
	if len(docs) != len(embs) {
		return fmt.Errorf("%w: %d documents, %d embeddings", ErrMisalignedSnapshot, len(docs), len(embs))
	}
	for i := range docs {
		if docs[i].ID != embs[i].ID {
			return fmt.Errorf("%w: position %d has document %s and embedding %s",
				ErrMisalignedSnapshot, i, docs[i].ID, embs[i].ID)
		}
	}
	return nil
}

// replaceLocked swaps in new state and rebuilds the id index.
func (s *Store) replaceLocked(docs []models.Document, embs []models.EmbeddingRecord, meta map[string]any) {
	if meta == nil {
		meta = make(map[string]any)
	}
	s.documents = docs
	s.embeddings = embs
	s.metadata = meta
	s.index = make(map[string]int, len(docs))
	for i, d := range docs {
		s.index[d.ID] = i
	}
}

type state struct {
	documents  []models.Document
	embeddings []models.EmbeddingRecord
	metadata   map[string]any
}

func (s *Store) stateLocked() state {
	return state{documents: s.documents, embeddings: s.embeddings, metadata: s.metadata}
}

func (s *Store) restoreLocked(st state) {
	s.replaceLocked(st.documents, st.embeddings, st.metadata)
}

func (s *Store) touchLocked() {
	meta := maps.Clone(s.metadata)
	if meta == nil {
		meta = make(map[string]any)
	}
	meta[models.MetaLastUpdated] = s.now().UTC().Format(time.RFC3339Nano)
	s.metadata = meta
}

// saveLocked writes all three files. Embeddings go first so that a documents.json on
// disk never names a document whose embedding was not written.
func (s *Store) saveLocked(ctx context.Context) error {
	docs := s.documents
	if docs == nil {
		docs = []models.Document{}
	}
	embs := s.embeddings
	if embs == nil {
		embs = []models.EmbeddingRecord{}
	}
	files := []struct {
		name   string
		v      any
		indent bool
	}{
		{EmbeddingsFile, embs, false},
		{DocumentsFile, docs, true},
		{MetadataFile, s.metadata, true},
	}
	for _, f := range files {
		var (
			data []byte
			err  error
		)
		if f.indent {
			data, err = json.MarshalIndent(f.v, "", "  ")
		} else {
			data, err = json.Marshal(f.v)
		}
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.name, err)
		}
		if err := s.fio.WriteFile(ctx, filepath.Join(s.path, f.name), data, 0644); err != nil {
			return fmt.Errorf("failed to save %s: %w", f.name, err)
		}
	}
	return nil
}

// commitLocked persists the current state. If the write fails, prev is restored in
// memory and written back so the files on disk match it again.
func (s *Store) commitLocked(ctx context.Context, prev state) error {
	if err := s.saveLocked(ctx); err != nil {
		s.restoreLocked(prev)
		if rerr := s.saveLocked(context.WithoutCancel(ctx)); rerr != nil {
			s.logger.Warn("failed to restore store files after a failed save",
				zap.String("path", s.path), zap.Error(rerr))
		}
		return err
	}
	return nil
}

// AddDocument embeds and stores content, returning its content id. Content already
// in the store is not re-added and its existing id is returned; metadata is then ignored.
func (s *Store) AddDocument(ctx context.Context, content string, metadata map[string]any) (string, error) {
	id := ContentID(content)
	label := id
	if name, ok := metadata[models.MetaFileName].(string); ok && name != "" {
		label = name
	}

	if s.Has(id) {
		s.logger.Debug("document already exists", zap.String("document", label))
		return id, nil
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return "", fmt.Errorf("failed to embed document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; ok {
		return id, nil
	}

	prev := s.stateLocked()
	doc := models.Document{
		ID:       id,
		Content:  content,
		AddedAt:  s.now().UTC(),
		Metadata: maps.Clone(metadata),
	}
	s.documents = append(slices.Clip(s.documents), doc)
	s.embeddings = append(slices.Clip(s.embeddings), models.EmbeddingRecord{ID: id, Embedding: vec})
	s.index[id] = len(s.documents) - 1
	s.touchLocked()

	if err := s.commitLocked(ctx, prev); err != nil {
		return "", err
	}
	s.logger.Debug("document added", zap.String("document", label), zap.String("id", id))
	return id, nil
}

// AddDocuments adds each input in order and returns the ids.
func (s *Store) AddDocuments(ctx context.Context, inputs []models.DocumentInput) ([]string, error) {
	ids := make([]string, 0, len(inputs))
	for i, in := range inputs {
		id, err := s.AddDocument(ctx, in.Content, in.Metadata)
		if err != nil {
			return ids, fmt.Errorf("document %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Has reports whether a document with id is stored.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// Get returns a copy of the document with id.
func (s *Store) Get(id string) (models.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Document{}, false
	}
	return cloneDocument(s.documents[i]), true
}

// Search scores every stored embedding against query and returns hits with
// similarity >= threshold, best first, at most topK (all when topK <= 0).
// Ties keep insertion order. An empty store returns no hits without embedding the query.
func (s *Store) Search(ctx context.Context, query string, topK int, threshold float64) ([]Hit, error) {
	if s.Len() == 0 {
		return []Hit{}, nil
	}

	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]Hit, 0)
	for i, rec := range s.embeddings {
		sim := embedding.CosineSimilarity(qv, rec.Embedding)
		if sim < threshold {
			continue
		}
		hits = append(hits, Hit{
			ID:         rec.ID,
			Content:    s.documents[i].Content,
			Document:   cloneDocument(s.documents[i]),
			Similarity: sim,
		})
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	s.logger.Debug("search finished", zap.Int("hits", len(hits)), zap.Int("scanned", len(s.embeddings)))
	return hits, nil
}

// DeleteDocument removes the document with id and its embedding. A missing id is not an error.
// Chunks that reference the document are not removed.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.DeleteWhere(ctx, func(d *models.Document) bool { return d.ID == id })
	return err
}

// DeleteWhere removes every document for which match returns true and reports how many were removed.
func (s *Store) DeleteWhere(ctx context.Context, match func(*models.Document) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.stateLocked()
	docs := make([]models.Document, 0, len(s.documents))
	embs := make([]models.EmbeddingRecord, 0, len(s.embeddings))
	for i := range s.documents {
		if match(&s.documents[i]) {
			continue
		}
		docs = append(docs, s.documents[i])
		embs = append(embs, s.embeddings[i])
	}
	removed := len(s.documents) - len(docs)
	if removed == 0 {
		return 0, nil
	}
	s.replaceLocked(docs, embs, s.metadata)
	s.touchLocked()
	if err := s.commitLocked(ctx, prev); err != nil {
		return 0, err
	}
	s.logger.Debug("documents removed", zap.Int("count", removed))
	return removed, nil
}

// ClearAll removes every document, embedding and metadata entry.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.stateLocked()
	s.replaceLocked(nil, nil, nil)
	if err := s.commitLocked(ctx, prev); err != nil {
		return err
	}
	s.logger.Info("vector store cleared")
	return nil
}

// ExportData returns a deep copy of the store contents.
func (s *Store) ExportData(_ context.Context) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &models.Snapshot{
		Documents:  make([]models.Document, len(s.documents)),
		Embeddings: make([]models.EmbeddingRecord, len(s.embeddings)),
		Metadata:   maps.Clone(s.metadata),
		ExportedAt: s.now().UTC(),
	}
	for i, d := range s.documents {
		snap.Documents[i] = cloneDocument(d)
	}
	for i, e := range s.embeddings {
		snap.Embeddings[i] = models.EmbeddingRecord{ID: e.ID, Embedding: slices.Clone(e.Embedding)}
	}
	return snap, nil
}

// ImportData replaces the store contents with snap, metadata included, and persists.
func (s *Store) ImportData(ctx context.Context, snap *models.Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	if err := checkAligned(snap.Documents, snap.Embeddings); err != nil {
		return err
	}

	docs := make([]models.Document, len(snap.Documents))
	for i, d := range snap.Documents {
		docs[i] = cloneDocument(d)
	}
	embs := make([]models.EmbeddingRecord, len(snap.Embeddings))
	for i, e := range snap.Embeddings {
		embs[i] = models.EmbeddingRecord{ID: e.ID, Embedding: slices.Clone(e.Embedding)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.stateLocked()
	s.replaceLocked(docs, embs, maps.Clone(snap.Metadata))
	if err := s.commitLocked(ctx, prev); err != nil {
		return err
	}
	s.logger.Info("data imported", zap.Int("documents", len(docs)))
	return nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// Stats reports counts, location, last update time and on-disk size.
func (s *Store) Stats() models.Stats {
	s.mu.RLock()
	st := models.Stats{
		TotalDocuments:  len(s.documents),
		TotalEmbeddings: len(s.embeddings),
		StorePath:       s.path,
	}
	if v, ok := s.metadata[models.MetaLastUpdated].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.LastUpdated = &t
		}
	}
	s.mu.RUnlock()

	n, err := storage.DiskUsageBytes(s.path)
	if err != nil {
		s.logger.Warn("failed to compute disk usage", zap.String("path", s.path), zap.Error(err))
	}
	st.DiskUsageBytes = n
	return st
}

// AllDocuments returns the listing projection of every stored document in insertion order.
func (s *Store) AllDocuments() []models.DocumentSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DocumentSummary, len(s.documents))
	for i := range s.documents {
		out[i] = s.documents[i].Summarize()
	}
	return out
}

func cloneDocument(d models.Document) models.Document {
	d.Metadata = maps.Clone(d.Metadata)
	return d
}
