// Package indexer turns raw text and files into cleaned content and overlapping word chunks.
package indexer

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/pkg/utils"
)

// Chunking defaults, in words (size, overlap) and characters (min).
const (
	DefaultChunkSize     = 1000
	DefaultChunkOverlap  = 100
	DefaultMinChunkChars = 50
)

// ErrInvalidChunking is returned when size and overlap would not make progress.
var ErrInvalidChunking = errors.New("invalid chunking parameters")

// Chunker splits text into overlapping word windows.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	minChars     int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithMinChars sets the minimum trimmed length, in characters, of a kept chunk.
func WithMinChars(n int) ChunkerOption {
	return func(c *Chunker) {
		c.minChars = n
	}
}

// NewChunker creates a chunker with the given size and overlap (in words).
// Overlap must be smaller than size.
func NewChunker(chunkSize, chunkOverlap int, opts ...ChunkerOption) (*Chunker, error) {
	if chunkSize <= 0 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: size %d, overlap %d", ErrInvalidChunking, chunkSize, chunkOverlap)
	}
	c := &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		minChars:     DefaultMinChunkChars,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DefaultChunker returns a chunker with the default size, overlap and minimum length.
func DefaultChunker() *Chunker {
	c, _ := NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	return c
}

// Chunks yields windows of chunkSize words advancing by chunkSize-chunkOverlap, stopping
// once a window reaches the last word, so no trailing window made only of overlap words is
// emitted (1000 words with the defaults give one chunk). Windows shorter than the minimum
// length are skipped.
// The sequence can be ranged over any number of times.
func (c *Chunker) Chunks(text string) iter.Seq[models.Chunk] {
	return func(yield func(models.Chunk) bool) {
		words := strings.Fields(text)
		step := c.chunkSize - c.chunkOverlap
		for i := 0; i < len(words); i += step {
			end := min(i+c.chunkSize, len(words))
			content := strings.Join(words[i:end], " ")
			if utils.RuneLen(content) >= c.minChars {
				if !yield(models.Chunk{Content: content, StartWordIndex: i, WordCount: end - i}) {
					return
				}
			}
			if end >= len(words) {
				return
			}
		}
	}
}

// Chunk collects Chunks(text) into a slice.
func (c *Chunker) Chunk(text string) []models.Chunk {
	var chunks []models.Chunk
	for ch := range c.Chunks(text) {
		chunks = append(chunks, ch)
	}
	return chunks
}
