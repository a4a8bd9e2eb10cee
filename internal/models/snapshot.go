package models

import "time"

// MetaLastUpdated is the store metadata key stamped on every add and delete.
const MetaLastUpdated = "lastUpdated"

// Snapshot is a full export of the store.
type Snapshot struct {
	Documents  []Document        `json:"documents"`
	Embeddings []EmbeddingRecord `json:"embeddings"`
	Metadata   map[string]any    `json:"metadata"`
	ExportedAt time.Time         `json:"exportedAt"`
}

// Stats describes the store's current size and location.
type Stats struct {
	TotalDocuments  int        `json:"totalDocuments"`
	TotalEmbeddings int        `json:"totalEmbeddings"`
	StorePath       string     `json:"storePath"`
	LastUpdated     *time.Time `json:"lastUpdated"`
	DiskUsageBytes  int64      `json:"diskUsageBytes"`
}
