package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/ragstore/internal/models"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	doc := &models.Document{
		ID:       "doc-1",
		Content:  "Content here",
		AddedAt:  time.Now(),
		Metadata: map[string]any{"fileName": "a.txt"},
	}
	results := []models.SearchResult{{Content: "Content here", Similarity: 0.9, Metadata: doc}}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, "test query", results, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded struct {
		Query   string `json:"query"`
		Total   int    `json:"total"`
		Results []struct {
			Similarity float64        `json:"similarity"`
			Metadata   map[string]any `json:"metadata"`
		} `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Query != "test query" || decoded.Total != 1 {
		t.Errorf("decoded %+v", decoded)
	}
	if decoded.Results[0].Metadata["id"] != "doc-1" || decoded.Results[0].Metadata["fileName"] != "a.txt" {
		t.Errorf("metadata should be the flattened document: %v", decoded.Results[0].Metadata)
	}
}

func TestWriteSearchResults_JSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, "q", nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"results": []`) {
		t.Errorf("empty results should encode as an empty array: %s", buf.String())
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	doc := &models.Document{
		ID:       "chunk-1",
		Metadata: map[string]any{"fileName": "report.pdf", "isChunk": true, "parentDocId": "main-1"},
	}
	results := []models.SearchResult{{Content: strings.Repeat("a", 300), Similarity: 0.75, Metadata: doc}}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, "q", results, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 results", "Similarity: 0.7500", "File: report.pdf", "Chunk of: main-1", strings.Repeat("a", 200) + "..."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteAnswer(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, &models.Answer{Answer: "nothing found", Sources: []models.Source{}}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "nothing found") {
		t.Errorf("fallback answer missing: %s", buf.String())
	}

	buf.Reset()
	ans := &models.Answer{
		Context:      "Source: a.txt\nhello\n\n",
		Sources:      []models.Source{{FileName: "a.txt", Similarity: 0.8, Excerpt: "hello"}},
		Confidence:   0.8,
		TotalResults: 1,
	}
	if err := WriteAnswer(&buf, ans, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Confidence: 0.80") || !strings.Contains(out, "- a.txt (0.8000): hello") {
		t.Errorf("unexpected answer output:\n%s", out)
	}
}

func TestWriteDocuments(t *testing.T) {
	docs := []models.DocumentSummary{
		{ID: "main", Title: "Report", Category: "general", Source: "file", Type: "document", ContentPreview: "hello"},
		{ID: "chunk", IsChunk: true, ParentDocID: "main", ContentPreview: "hel"},
	}

	var buf bytes.Buffer
	if err := WriteDocuments(&buf, docs, false, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Total != 1 {
		t.Errorf("chunks should be hidden by default, total=%d", decoded.Total)
	}

	buf.Reset()
	if err := WriteDocuments(&buf, docs, true, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "2 documents") || !strings.Contains(buf.String(), "Chunk of: main") {
		t.Errorf("unexpected listing:\n%s", buf.String())
	}
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStats(&buf, models.Stats{TotalDocuments: 3, TotalEmbeddings: 3, DiskUsageBytes: 2048}, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Documents:   3") || !strings.Contains(out, "2.0 KiB") || !strings.Contains(out, "never") {
		t.Errorf("unexpected stats output:\n%s", out)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KiB",
		1536:            "1.5 KiB",
		5 * 1024 * 1024: "5.0 MiB",
	}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}
