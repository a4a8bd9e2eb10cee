// Package cli formats RAG results for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const separator = "─────────────────────────────────────────────────────────"

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q (want text or json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, query string, results []models.SearchResult, format OutputFormat) error {
	if format == OutputJSON {
		if results == nil {
			results = []models.SearchResult{}
		}
		return writeJSON(w, map[string]any{"query": query, "results": results, "total": len(results)})
	}

	fmt.Fprintf(w, "\nFound %d results for %q\n\n", len(results), query)
	for i, r := range results {
		fmt.Fprintln(w, separator)
		fmt.Fprintf(w, "Rank: %d | Similarity: %.4f\n", i+1, r.Similarity)
		if r.Metadata != nil {
			fmt.Fprintf(w, "ID: %s\n", r.Metadata.ID)
			if name := r.Metadata.String(models.MetaFileName); name != "" {
				fmt.Fprintf(w, "File: %s\n", name)
			}
			if r.Metadata.Bool(models.MetaIsChunk) {
				fmt.Fprintf(w, "Chunk of: %s\n", r.Metadata.String(models.MetaParentDocID))
			}
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(r.Content, 200))
	}
	return nil
}

// WriteAnswer writes a generated answer context and its sources.
func WriteAnswer(w io.Writer, ans *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, ans)
	}
	if ans.Answer != "" {
		fmt.Fprintf(w, "\n%s\n", ans.Answer)
		return nil
	}
	fmt.Fprintf(w, "\nConfidence: %.2f (%d results, %d used)\n\n", ans.Confidence, ans.TotalResults, len(ans.Sources))
	fmt.Fprintln(w, "--- Context ---")
	fmt.Fprint(w, ans.Context)
	fmt.Fprintln(w, "--- Sources ---")
	for _, s := range ans.Sources {
		name := s.FileName
		if name == "" {
			name = "Document"
		}
		fmt.Fprintf(w, "- %s (%.4f): %s\n", name, s.Similarity, oneLine(s.Excerpt))
	}
	return nil
}

// WriteDocuments writes the document listing. Chunks are hidden unless includeChunks is set.
func WriteDocuments(w io.Writer, docs []models.DocumentSummary, includeChunks bool, format OutputFormat) error {
	shown := make([]models.DocumentSummary, 0, len(docs))
	for _, d := range docs {
		if d.IsChunk && !includeChunks {
			continue
		}
		shown = append(shown, d)
	}
	if format == OutputJSON {
		return writeJSON(w, map[string]any{"documents": shown, "total": len(shown)})
	}

	fmt.Fprintf(w, "\n%d documents\n\n", len(shown))
	for _, d := range shown {
		fmt.Fprintln(w, separator)
		fmt.Fprintf(w, "ID: %s\n", d.ID)
		fmt.Fprintf(w, "Title: %s | Category: %s | Source: %s | Type: %s\n", d.Title, d.Category, d.Source, d.Type)
		if d.IsChunk {
			fmt.Fprintf(w, "Chunk of: %s\n", d.ParentDocID)
		}
		fmt.Fprintf(w, "Added: %s | Length: %d\n", d.AddedAt.Local().Format(time.DateTime), d.ContentLength)
		fmt.Fprintf(w, "\n%s\n\n", oneLine(d.ContentPreview))
	}
	return nil
}

// WriteStats writes store statistics.
func WriteStats(w io.Writer, stats models.Stats, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, stats)
	}
	fmt.Fprintf(w, "Documents:   %d\n", stats.TotalDocuments)
	fmt.Fprintf(w, "Embeddings:  %d\n", stats.TotalEmbeddings)
	fmt.Fprintf(w, "Store path:  %s\n", stats.StorePath)
	fmt.Fprintf(w, "Disk usage:  %s\n", FormatBytes(stats.DiskUsageBytes))
	if stats.LastUpdated != nil {
		fmt.Fprintf(w, "Last update: %s\n", stats.LastUpdated.Local().Format(time.DateTime))
	} else {
		fmt.Fprintln(w, "Last update: never")
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
