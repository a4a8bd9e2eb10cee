package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hyperjump/ragstore/internal/embedding"
	"github.com/hyperjump/ragstore/internal/extract"
	"github.com/hyperjump/ragstore/internal/indexer"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/internal/vector"
)

// topicEmbedder maps text to a 4-dim vector: one axis each for "apple", "banana" and
// "cherry", and a fourth axis for text that mentions none of them. Exact texts in
// vectors override the keyword rule.
type topicEmbedder struct {
	vectors map[string][]float32
}

func (e *topicEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v, ok := e.vectors[text]; ok {
		return append([]float32(nil), v...), nil
	}
	v := make([]float32, 4)
	for i, topic := range []string{"apple", "banana", "cherry"} {
		if strings.Contains(text, topic) {
			v[i] = 1
		}
	}
	if v[0] == 0 && v[1] == 0 && v[2] == 0 {
		v[3] = 1
	}
	return v, nil
}

func (e *topicEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *topicEmbedder) Dimensions() int { return 4 }
func (e *topicEmbedder) Close() error    { return nil }

// chunkFailEmbedder fails any text containing failOn.
type chunkFailEmbedder struct {
	*topicEmbedder
	failOn string
}

func (e *chunkFailEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, e.failOn) {
		return nil, errors.New("model error")
	}
	return e.topicEmbedder.Embed(ctx, text)
}

func newTestService(t *testing.T, emb embedding.Embedder, opts ...Option) *Service {
	t.Helper()
	if emb == nil {
		emb = &topicEmbedder{}
	}
	provider := embedding.NewProvider(func() (embedding.Embedder, error) { return emb, nil })
	store := vector.NewStore(filepath.Join(t.TempDir(), "rag_store"), provider)
	return NewService(provider, store, nil, opts...)
}

func longText(words int, topic string) string {
	w := make([]string, words)
	for i := range w {
		w[i] = fmt.Sprintf("%s%d", topic, i)
	}
	return strings.Join(w, " ")
}

func TestService_LazyInitialize(t *testing.T) {
	svc := newTestService(t, nil)
	if svc.State() != StateUninitialized {
		t.Fatalf("state=%v, want uninitialized", svc.State())
	}
	if _, err := svc.Stats(context.Background()); err != nil {
		t.Fatal(err)
	}
	if svc.State() != StateReady {
		t.Errorf("state=%v, want ready", svc.State())
	}
}

func TestService_InitializeFailureIsRetryable(t *testing.T) {
	var calls atomic.Int32
	loader := func() (embedding.Embedder, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("model file missing")
		}
		return &topicEmbedder{}, nil
	}
	provider := embedding.NewProvider(loader)
	store := vector.NewStore(filepath.Join(t.TempDir(), "rag_store"), provider)
	svc := NewService(provider, store, nil)

	_, err := svc.Search(context.Background(), "apple")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err=%v, want ErrUnavailable", err)
	}
	if svc.State() != StateUninitialized {
		t.Errorf("state=%v after failure, want uninitialized", svc.State())
	}

	if _, err := svc.Search(context.Background(), "apple"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if svc.State() != StateReady {
		t.Errorf("state=%v, want ready", svc.State())
	}
}

func TestService_ConcurrentInitializeLoadsOnce(t *testing.T) {
	var calls atomic.Int32
	loader := func() (embedding.Embedder, error) {
		calls.Add(1)
		return &topicEmbedder{}, nil
	}
	provider := embedding.NewProvider(loader)
	store := vector.NewStore(filepath.Join(t.TempDir(), "rag_store"), provider)
	svc := NewService(provider, store, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Initialize(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if calls.Load() != 1 {
		t.Errorf("loader called %d times, want 1", calls.Load())
	}
}

func TestService_AddKnowledgeShort(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	res, err := svc.AddKnowledge(ctx, "  Apples   are red.\r\n\r\n\r\n\r\nThey grow on trees.  ", map[string]any{"category": "fruit"})
	if err != nil {
		t.Fatal(err)
	}
	if res.MainID != vector.ContentID("Apples are red.\n\nThey grow on trees.") {
		t.Errorf("main id should be the id of the cleaned text, got %s", res.MainID)
	}
	if len(res.ChunkIDs) != 0 || res.TotalChunks != 0 {
		t.Errorf("short text should not be chunked: %+v", res)
	}

	docs, _ := svc.AllDocuments(ctx)
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Source != "manual" || docs[0].Type != "knowledge" || docs[0].Category != "fruit" {
		t.Errorf("unexpected summary: %+v", docs[0])
	}
}

func TestService_AddKnowledgeMetadataOverride(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	if _, err := svc.AddKnowledge(ctx, "apple facts", map[string]any{"source": "import"}); err != nil {
		t.Fatal(err)
	}
	results, err := svc.Search(ctx, "apple")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if got := results[0].Metadata.String(models.MetaSource); got != "import" {
		t.Errorf("source=%q, want caller override", got)
	}
	if got := results[0].Metadata.String(models.MetaType); got != "knowledge" {
		t.Errorf("type=%q, want knowledge", got)
	}
}

func TestService_AddKnowledgeChunks(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	res, err := svc.AddKnowledge(ctx, longText(2500, "apple"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalChunks != 3 || len(res.ChunkIDs) != 3 {
		t.Fatalf("expected 3 chunks, got %+v", res)
	}

	snap, err := svc.ExportData(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Documents) != 4 {
		t.Fatalf("expected main + 3 chunks, got %d", len(snap.Documents))
	}
	for i, d := range snap.Documents[1:] {
		if !d.Bool(models.MetaIsChunk) {
			t.Errorf("chunk %d missing isChunk", i)
		}
		if d.String(models.MetaParentDocID) != res.MainID {
			t.Errorf("chunk %d parentDocId=%q", i, d.String(models.MetaParentDocID))
		}
		if d.Metadata[models.MetaChunkIndex] != i {
			t.Errorf("chunk %d chunkIndex=%v", i, d.Metadata[models.MetaChunkIndex])
		}
	}
	if snap.Documents[3].Metadata[models.MetaChunkWordCount] != 700 {
		t.Errorf("last chunk word count=%v, want 700", snap.Documents[3].Metadata[models.MetaChunkWordCount])
	}
}

func TestService_AddKnowledgeEmpty(t *testing.T) {
	svc := newTestService(t, nil)
	for _, text := range []string{"", " \r\n\t "} {
		if _, err := svc.AddKnowledge(context.Background(), text, nil); !errors.Is(err, ErrEmptyContent) {
			t.Errorf("AddKnowledge(%q) err=%v, want ErrEmptyContent", text, err)
		}
	}
}

func TestService_AddDocument(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fruit.txt")
	content := "Bananas are yellow and rich in potassium.\nThey are picked while still green."
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := svc.AddDocument(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalChunks != 1 || len(res.ChunkIDs) != 1 {
		t.Fatalf("a single chunk is stored unconditionally, got %+v", res)
	}
	if res.Metadata[models.MetaFileName] != "fruit.txt" {
		t.Errorf("fileName=%v", res.Metadata[models.MetaFileName])
	}

	results, err := svc.Search(ctx, "banana", WithFilter(map[string]any{models.MetaIsChunk: true}))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the chunk only, got %d results", len(results))
	}
	if results[0].Metadata.String(models.MetaParentDocID) != res.MainDocID {
		t.Error("chunk should reference the main document")
	}
}

func TestService_AddDocumentErrors(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.md")
	if err := os.WriteFile(empty, []byte("  \n\n "), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddDocument(ctx, empty); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("err=%v, want ErrEmptyContent", err)
	}
	if _, err := svc.AddDocument(ctx, filepath.Join(dir, "image.png")); !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Errorf("err=%v, want ErrUnsupportedFormat", err)
	}
	if _, err := svc.AddDocument(ctx, filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestService_AddDirectoryAndDeleteByFilePath(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	dir := t.TempDir()
	files := map[string]string{
		"a.txt":       "apple orchards cover the northern hills of the valley.\nharvest starts in autumn.",
		"sub/b.md":    "cherry blossoms open in spring across the old town park.\nvisitors come every year.",
		"empty.txt":   "",
		"ignored.bin": "binary",
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	results, err := svc.AddDirectory(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(results))
	}

	n, err := svc.DeleteByFilePath(ctx, filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("removed %d documents, want main + chunk", n)
	}
	hits, _ := svc.Search(ctx, "apple")
	if len(hits) != 0 {
		t.Errorf("expected no apple results after removal, got %d", len(hits))
	}
}

func TestService_SearchOptions(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	for _, text := range []string{"apple pie", "apple and banana smoothie", "banana bread", "plain water"} {
		if _, err := svc.AddKnowledge(ctx, text, map[string]any{"title": text}); err != nil {
			t.Fatal(err)
		}
	}

	results, err := svc.Search(ctx, "apple")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results above default threshold, got %d", len(results))
	}
	if results[0].Content != "apple pie" || results[1].Content != "apple and banana smoothie" {
		t.Errorf("unexpected order: %q, %q", results[0].Content, results[1].Content)
	}
	if math.Abs(results[1].Similarity-1/math.Sqrt2) > 1e-5 {
		t.Errorf("similarity=%f, want 1/sqrt(2)", results[1].Similarity)
	}

	results, _ = svc.Search(ctx, "apple", WithTopK(1))
	if len(results) != 1 {
		t.Errorf("WithTopK(1) returned %d", len(results))
	}

	results, _ = svc.Search(ctx, "apple", WithThreshold(0.9))
	if len(results) != 1 {
		t.Errorf("WithThreshold(0.9) returned %d", len(results))
	}

	results, _ = svc.Search(ctx, "apple", WithFilter(map[string]any{"title": "apple and banana smoothie"}))
	if len(results) != 1 || results[0].Content != "apple and banana smoothie" {
		t.Errorf("filter returned %+v", results)
	}

	results, _ = svc.Search(ctx, "apple", WithoutMetadata())
	for _, r := range results {
		if r.Metadata != nil {
			t.Error("metadata should be omitted")
		}
	}
}

func TestService_GenerateAnswerNoResults(t *testing.T) {
	svc := newTestService(t, nil)
	ans, err := svc.GenerateAnswer(context.Background(), "anything")
	if err != nil {
		t.Fatal(err)
	}
	if ans.Answer != NoAnswer || ans.Confidence != 0 || len(ans.Sources) != 0 || ans.Sources == nil {
		t.Errorf("unexpected fallback answer: %+v", ans)
	}
}

func TestService_AddKnowledgeStoresNoChunkWhenOneFailsToEmbed(t *testing.T) {
	// The third chunk of 2500 words starts at word 1800.
	emb := &chunkFailEmbedder{topicEmbedder: &topicEmbedder{}, failOn: "apple1800 "}
	svc := newTestService(t, emb)
	ctx := context.Background()

	if _, err := svc.AddKnowledge(ctx, longText(2500, "apple"), nil); err == nil {
		t.Fatal("expected embedding error")
	}
	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalDocuments != 1 {
		t.Errorf("TotalDocuments=%d, want only the main document", stats.TotalDocuments)
	}
}

func TestService_GenerateAnswerConfidence(t *testing.T) {
	emb := &topicEmbedder{vectors: map[string][]float32{
		"question": {1, 0},
		"first":    {0.9, float32(math.Sqrt(1 - 0.81))},
		"second":   {0.6, 0.8},
		"third":    {0.3, float32(math.Sqrt(1 - 0.09))},
	}}
	svc := newTestService(t, emb)
	ctx := context.Background()
	for _, text := range []string{"third", "second", "first"} {
		if _, err := svc.AddKnowledge(ctx, text, nil); err != nil {
			t.Fatal(err)
		}
	}

	ans, err := svc.GenerateAnswer(ctx, "question", WithThreshold(0.1))
	if err != nil {
		t.Fatal(err)
	}
	if ans.TotalResults != 3 {
		t.Fatalf("TotalResults=%d, want 3", ans.TotalResults)
	}
	if math.Abs(ans.Confidence-0.6) > 1e-5 {
		t.Errorf("Confidence=%f, want 0.6", ans.Confidence)
	}
	want := "Source: Document\nfirst\n\nSource: Document\nsecond\n\nSource: Document\nthird\n\n"
	if ans.Context != want {
		t.Errorf("Context=%q, want %q", ans.Context, want)
	}
	if ans.Answer != "" {
		t.Errorf("Answer should be empty when context was found, got %q", ans.Answer)
	}
}

func TestService_GenerateAnswerConfidenceCountsBlocksOverBudget(t *testing.T) {
	emb := &topicEmbedder{vectors: map[string][]float32{
		"question": {1, 0},
		"first":    {0.9, float32(math.Sqrt(1 - 0.81))},
		"second":   {0.6, 0.8},
		"third":    {0.3, float32(math.Sqrt(1 - 0.09))},
	}}
	svc := newTestService(t, emb)
	ctx := context.Background()
	for _, text := range []string{"third", "second", "first"} {
		if _, err := svc.AddKnowledge(ctx, text, nil); err != nil {
			t.Fatal(err)
		}
	}

	want := "Source: Document\nfirst\n\nSource: Document\nsecond\n\n"
	ans, err := svc.GenerateAnswer(ctx, "question", WithThreshold(0.1), WithContextLength(len(want)))
	if err != nil {
		t.Fatal(err)
	}
	if ans.TotalResults != 3 {
		t.Fatalf("TotalResults=%d, want 3", ans.TotalResults)
	}
	if ans.Context != want {
		t.Errorf("Context=%q, want %q", ans.Context, want)
	}
	if len(ans.Sources) != 2 {
		t.Errorf("got %d sources, want 2", len(ans.Sources))
	}
	if math.Abs(ans.Confidence-0.6) > 1e-5 {
		t.Errorf("Confidence=%f, want 0.6 (mean over all three results)", ans.Confidence)
	}
}

func TestService_GenerateAnswerSkipsOversizedBlocks(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	long := "apple " + strings.Repeat("orchard ", 40)
	if _, err := svc.AddKnowledge(ctx, long, map[string]any{"fileName": "long.txt"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddKnowledge(ctx, "apple and banana", map[string]any{"fileName": "short.txt"}); err != nil {
		t.Fatal(err)
	}

	ans, err := svc.GenerateAnswer(ctx, "apple", WithContextLength(100))
	if err != nil {
		t.Fatal(err)
	}
	if ans.TotalResults != 2 {
		t.Fatalf("TotalResults=%d, want 2", ans.TotalResults)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].FileName != "short.txt" {
		t.Fatalf("expected only the short source, got %+v", ans.Sources)
	}
	if ans.Context != "Source: short.txt\napple and banana\n\n" {
		t.Errorf("Context=%q", ans.Context)
	}
	if ans.Sources[0].Excerpt != "apple and banana" {
		t.Errorf("Excerpt=%q", ans.Sources[0].Excerpt)
	}
}

func TestService_DeleteClearImport(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	a, _ := svc.AddKnowledge(ctx, "apple", nil)
	if _, err := svc.AddKnowledge(ctx, "banana", nil); err != nil {
		t.Fatal(err)
	}

	snap, err := svc.ExportData(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteDocument(ctx, a.MainID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteDocument(ctx, "missing"); err != nil {
		t.Errorf("deleting a missing id should not fail: %v", err)
	}
	stats, _ := svc.Stats(ctx)
	if stats.TotalDocuments != 1 {
		t.Errorf("TotalDocuments=%d, want 1", stats.TotalDocuments)
	}

	if err := svc.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	stats, _ = svc.Stats(ctx)
	if stats.TotalDocuments != 0 || stats.LastUpdated != nil {
		t.Errorf("unexpected stats after clear: %+v", stats)
	}

	if err := svc.ImportData(ctx, snap); err != nil {
		t.Fatal(err)
	}
	stats, _ = svc.Stats(ctx)
	if stats.TotalDocuments != 2 || stats.TotalEmbeddings != 2 {
		t.Errorf("unexpected stats after import: %+v", stats)
	}
}

func TestService_CloseReinitializes(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	if err := svc.Initialize(ctx); err != nil {
		t.Fatal(err)
	}
	if err := svc.Close(); err != nil {
		t.Fatal(err)
	}
	if svc.State() != StateUninitialized {
		t.Errorf("state=%v after Close", svc.State())
	}
	if _, err := svc.AddKnowledge(ctx, "apple", nil); err != nil {
		t.Fatal(err)
	}
}

func TestService_WithChunker(t *testing.T) {
	c, err := indexer.NewChunker(10, 2, indexer.WithMinChars(1))
	if err != nil {
		t.Fatal(err)
	}
	svc := newTestService(t, nil, WithChunker(c))
	res, err := svc.AddKnowledge(context.Background(), longText(30, "apple"), nil)
	if err != nil {
		t.Fatal(err)
	}
	// windows start at 0, 8, 16, 24 (24..30 reaches the end)
	if res.TotalChunks != 4 || len(res.ChunkIDs) != 4 {
		t.Errorf("expected 4 chunks, got %+v", res)
	}
}

func TestState_String(t *testing.T) {
	if StateReady.String() != "ready" || State(9).String() != "State(9)" {
		t.Error("unexpected State strings")
	}
}

func TestService_ReplaceDocument(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "notes.txt")

	write := func(content string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	write("apple harvest notes for the first week of the season.\nall trees checked.")
	first, err := svc.ReplaceDocument(ctx, path)
	if err != nil {
		t.Fatal(err)
	}

	write("banana shipment notes for the second week of the season.\nall crates counted.")
	second, err := svc.ReplaceDocument(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if first.MainDocID == second.MainDocID {
		t.Fatal("changed content should get a new id")
	}

	snap, _ := svc.ExportData(ctx)
	if len(snap.Documents) != 2 {
		t.Fatalf("expected only the new main doc and chunk, got %d documents", len(snap.Documents))
	}
	if snap.Documents[0].ID != second.MainDocID {
		t.Errorf("remaining main doc=%s, want %s", snap.Documents[0].ID, second.MainDocID)
	}

	again, err := svc.ReplaceDocument(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if again.MainDocID != second.MainDocID {
		t.Error("unchanged content should keep its id")
	}
	if stats, _ := svc.Stats(ctx); stats.TotalDocuments != 2 {
		t.Errorf("TotalDocuments=%d after re-ingesting unchanged file", stats.TotalDocuments)
	}
}
