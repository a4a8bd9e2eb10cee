package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/ragstore/internal/extract"
	"github.com/hyperjump/ragstore/internal/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestProcessor_ProcessFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	writeFile(t, path, "# Notes\r\n\r\n\r\n\r\nThe quick  brown fox jumps over the lazy dog, again and again and again.")

	p := NewProcessor(nil)
	doc, err := p.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if strings.Contains(doc.Content, "\r") || strings.Contains(doc.Content, "\n\n\n") || strings.Contains(doc.Content, "  ") {
		t.Errorf("content not cleaned: %q", doc.Content)
	}
	if doc.Metadata[models.MetaFileName] != "notes.md" {
		t.Errorf("fileName=%v", doc.Metadata[models.MetaFileName])
	}
	if doc.Metadata[models.MetaFileType] != ".md" {
		t.Errorf("fileType=%v", doc.Metadata[models.MetaFileType])
	}
	if doc.Metadata[models.MetaSource] != "file" {
		t.Errorf("source=%v", doc.Metadata[models.MetaSource])
	}
	if doc.Metadata[models.MetaFilePath] != path {
		t.Errorf("filePath=%v, want %s", doc.Metadata[models.MetaFilePath], path)
	}
	if doc.Metadata[models.MetaWordCount] != WordCount(doc.Content) {
		t.Errorf("wordCount=%v", doc.Metadata[models.MetaWordCount])
	}
	if _, ok := doc.Metadata[models.MetaProcessedAt].(string); !ok {
		t.Error("processedAt should be set")
	}
	if len(doc.Chunks) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(doc.Chunks))
	}
}

func TestProcessor_ProcessFileUnsupported(t *testing.T) {
	p := NewProcessor(nil)
	_, err := p.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "missing.xyz"))
	if !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Errorf("err=%v, want ErrUnsupportedFormat", err)
	}
}

func TestProcessor_ProcessFileCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewProcessor(nil)
	if _, err := p.ProcessFile(ctx, "a.txt"); !errors.Is(err, context.Canceled) {
		t.Errorf("err=%v, want context.Canceled", err)
	}
}

func TestProcessor_WithChunker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, words(30))

	c, err := NewChunker(10, 0, WithMinChars(1))
	if err != nil {
		t.Fatal(err)
	}
	p := NewProcessor(nil, WithChunker(c))
	doc, err := p.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Chunks) != 3 {
		t.Errorf("expected 3 chunks, got %d", len(doc.Chunks))
	}
}

func TestProcessor_ProcessDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "alpha file content")
	writeFile(t, filepath.Join(dir, "sub", "b.md"), "beta file content")
	writeFile(t, filepath.Join(dir, "skip.bin"), "binary")
	writeFile(t, filepath.Join(dir, "bad.json"), "{not json")

	p := NewProcessor(nil)
	docs, err := p.ProcessDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("ProcessDirectory: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	names := map[any]bool{}
	for _, d := range docs {
		names[d.Metadata[models.MetaFileName]] = true
	}
	if !names["a.txt"] || !names["b.md"] {
		t.Errorf("unexpected documents: %v", names)
	}
}

func TestProcessor_ProcessDirectoryMissing(t *testing.T) {
	p := NewProcessor(nil)
	if _, err := p.ProcessDirectory(context.Background(), filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestProcessor_IsSupported(t *testing.T) {
	p := NewProcessor(nil)
	if !p.IsSupported("a.PDF") || p.IsSupported("a.exe") {
		t.Error("unexpected IsSupported result")
	}
}
