// Package models defines core data structures for documents, snapshots, and retrieval results.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperjump/ragstore/pkg/utils"
)

// Reserved document keys. Metadata entries with these names are ignored.
const (
	KeyID      = "id"
	KeyContent = "content"
	KeyAddedAt = "addedAt"
)

// Well-known metadata keys.
const (
	MetaFileName       = "fileName"
	MetaFilePath       = "filePath"
	MetaFileType       = "fileType"
	MetaTitle          = "title"
	MetaCategory       = "category"
	MetaSource         = "source"
	MetaType           = "type"
	MetaIsChunk        = "isChunk"
	MetaParentDocID    = "parentDocId"
	MetaChunkIndex     = "chunkIndex"
	MetaChunkWordCount = "chunkWordCount"
	MetaWordCount      = "wordCount"
	MetaProcessedAt    = "processedAt"
)

// Document is a stored unit of text. On disk its metadata is flattened next to
// id, content and addedAt.
type Document struct {
	ID       string
	Content  string
	AddedAt  time.Time
	Metadata map[string]any
}

// DocumentInput is the input for adding a document to the store.
type DocumentInput struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EmbeddingRecord pairs a document id with its vector.
type EmbeddingRecord struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
}

// MarshalJSON flattens metadata onto the top-level object.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Metadata)+3)
	for k, v := range d.Metadata {
		if isReserved(k) {
			continue
		}
		out[k] = v
	}
	out[KeyID] = d.ID
	out[KeyContent] = d.Content
	out[KeyAddedAt] = d.AddedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}

// UnmarshalJSON reads a flattened document; unknown keys become metadata.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, _ := raw[KeyID].(string)
	content, _ := raw[KeyContent].(string)
	var addedAt time.Time
	if s, ok := raw[KeyAddedAt].(string); ok && s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("document %s: invalid addedAt: %w", id, err)
		}
		addedAt = t
	}
	delete(raw, KeyID)
	delete(raw, KeyContent)
	delete(raw, KeyAddedAt)
	d.ID = id
	d.Content = content
	d.AddedAt = addedAt
	d.Metadata = raw
	return nil
}

// Get returns the value for key, looking at base fields first and then metadata.
func (d *Document) Get(key string) (any, bool) {
	switch key {
	case KeyID:
		return d.ID, true
	case KeyContent:
		return d.Content, true
	case KeyAddedAt:
		return d.AddedAt, true
	}
	v, ok := d.Metadata[key]
	return v, ok
}

// String returns the metadata value for key if it is a non-empty string.
func (d *Document) String(key string) string {
	v, ok := d.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Bool returns the metadata value for key if it is a bool.
func (d *Document) Bool(key string) bool {
	v, _ := d.Metadata[key].(bool)
	return v
}

// Matches reports whether every filter entry equals the document's value for that key.
// Numbers compare by value so filters survive a JSON round trip.
func (d *Document) Matches(filter map[string]any) bool {
	for k, want := range filter {
		got, ok := d.Get(k)
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// DocumentSummary is the redacted listing projection of a Document.
type DocumentSummary struct {
	ID             string    `json:"id"`
	FileName       string    `json:"fileName"`
	Title          string    `json:"title"`
	Category       string    `json:"category"`
	Source         string    `json:"source"`
	AddedAt        time.Time `json:"addedAt"`
	Type           string    `json:"type"`
	IsChunk        bool      `json:"isChunk"`
	ParentDocID    string    `json:"parentDocId,omitempty"`
	ContentPreview string    `json:"contentPreview"`
	ContentLength  int       `json:"contentLength"`
}

// PreviewLength is the number of characters kept in ContentPreview.
const PreviewLength = 200

// Summarize builds the listing projection, filling defaults for missing metadata.
func (d *Document) Summarize() DocumentSummary {
	fileName := orDefault(d.String(MetaFileName), "Untitled")
	title := d.String(MetaTitle)
	if title == "" {
		title = orDefault(d.String(MetaFileName), "Untitled document")
	}
	return DocumentSummary{
		ID:             d.ID,
		FileName:       fileName,
		Title:          title,
		Category:       orDefault(d.String(MetaCategory), "general"),
		Source:         orDefault(d.String(MetaSource), "upload"),
		AddedAt:        d.AddedAt,
		Type:           orDefault(d.String(MetaType), "document"),
		IsChunk:        d.Bool(MetaIsChunk),
		ParentDocID:    d.String(MetaParentDocID),
		ContentPreview: utils.Truncate(d.Content, PreviewLength),
		ContentLength:  utils.RuneLen(d.Content),
	}
}

// ProcessedDocument is the output of the document processor.
type ProcessedDocument struct {
	Content  string         `json:"content"`
	Chunks   []Chunk        `json:"chunks"`
	Metadata map[string]any `json:"metadata"`
}

// Chunk is a contiguous word window of a document.
type Chunk struct {
	Content        string `json:"content"`
	StartWordIndex int    `json:"startWordIndex"`
	WordCount      int    `json:"wordCount"`
}

func isReserved(key string) bool {
	return key == KeyID || key == KeyContent || key == KeyAddedAt
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string, bool, nil:
		return a == b
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
