package models

// SearchResult is a single retrieval hit returned by the RAG service.
// Metadata is nil when the caller asked to exclude it.
type SearchResult struct {
	Content    string    `json:"content"`
	Similarity float64   `json:"similarity"`
	Metadata   *Document `json:"metadata,omitempty"`
}

// Source attributes part of an answer context to a document.
type Source struct {
	FileName   string  `json:"fileName"`
	Similarity float64 `json:"similarity"`
	Excerpt    string  `json:"excerpt"`
}

// Answer is the grounding context assembled for a question. Answer is only
// set when no context was found.
type Answer struct {
	Answer       string   `json:"answer,omitempty"`
	Context      string   `json:"context"`
	Sources      []Source `json:"sources"`
	Confidence   float64  `json:"confidence"`
	TotalResults int      `json:"totalResults"`
}

// KnowledgeResult reports the ids stored by AddKnowledge.
type KnowledgeResult struct {
	MainID      string   `json:"mainId"`
	ChunkIDs    []string `json:"chunkIds"`
	TotalChunks int      `json:"totalChunks"`
}

// DocumentResult reports the ids stored by AddDocument.
type DocumentResult struct {
	MainDocID   string         `json:"mainDocId"`
	ChunkIDs    []string       `json:"chunkIds"`
	TotalChunks int            `json:"totalChunks"`
	Metadata    map[string]any `json:"metadata"`
}
