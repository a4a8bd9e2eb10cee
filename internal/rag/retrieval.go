package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/pkg/utils"
)

// NoAnswer is returned as Answer.Answer when nothing relevant was found.
const NoAnswer = "I could not find relevant information in the knowledge base to answer this question."

const excerptLength = 200

type queryOptions struct {
	topK            int
	threshold       float64
	filter          map[string]any
	includeMetadata bool
	contextLength   int
}

// QueryOption configures Search and GenerateAnswer.
type QueryOption func(*queryOptions)

// WithTopK limits the number of results taken from the store.
func WithTopK(k int) QueryOption {
	return func(o *queryOptions) { o.topK = k }
}

// WithThreshold sets the minimum similarity.
func WithThreshold(t float64) QueryOption {
	return func(o *queryOptions) { o.threshold = t }
}

// WithFilter keeps only results whose fields equal every filter entry.
// The filter is applied after the top-K cut, so fewer than K results may be returned.
func WithFilter(filter map[string]any) QueryOption {
	return func(o *queryOptions) { o.filter = filter }
}

// WithoutMetadata omits the document from search results.
func WithoutMetadata() QueryOption {
	return func(o *queryOptions) { o.includeMetadata = false }
}

// WithContextLength sets the answer context budget in characters.
func WithContextLength(n int) QueryOption {
	return func(o *queryOptions) { o.contextLength = n }
}

// Search returns the stored documents most similar to query.
func (s *Service) Search(ctx context.Context, query string, opts ...QueryOption) ([]models.SearchResult, error) {
	o := queryOptions{
		topK:            s.defaults.TopK,
		threshold:       s.defaults.Threshold,
		includeMetadata: true,
		contextLength:   s.defaults.ContextLength,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return s.search(ctx, query, o)
}

func (s *Service) search(ctx context.Context, query string, o queryOptions) ([]models.SearchResult, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	hits, err := s.store.Search(ctx, query, o.topK, o.threshold)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, h := range hits {
		if len(o.filter) > 0 && !h.Document.Matches(o.filter) {
			continue
		}
		r := models.SearchResult{Content: h.Content, Similarity: h.Similarity}
		if o.includeMetadata {
			doc := h.Document
			r.Metadata = &doc
		}
		results = append(results, r)
	}
	s.logger.Debug("search", zap.String("query", utils.Truncate(query, 80)), zap.Int("results", len(results)))
	return results, nil
}

// GenerateAnswer retrieves context for question. Result blocks are appended in rank order
// while they fit the context budget; a block that does not fit is skipped, not cut.
// Confidence is the mean similarity of every retrieved result.
func (s *Service) GenerateAnswer(ctx context.Context, question string, opts ...QueryOption) (*models.Answer, error) {
	o := queryOptions{
		topK:            s.defaults.AnswerTopK,
		threshold:       s.defaults.Threshold,
		includeMetadata: true,
		contextLength:   s.defaults.ContextLength,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.includeMetadata = true

	results, err := s.search(ctx, question, o)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &models.Answer{Answer: NoAnswer, Sources: []models.Source{}}, nil
	}

	var b strings.Builder
	sources := make([]models.Source, 0, len(results))
	used := 0
	total := 0.0
	for _, r := range results {
		total += r.Similarity

		fileName := r.Metadata.String(models.MetaFileName)
		label := fileName
		if label == "" {
			label = "Document"
		}
		block := "Source: " + label + "\n" + r.Content + "\n\n"
		n := utils.RuneLen(block)
		if used+n > o.contextLength {
			continue
		}
		b.WriteString(block)
		used += n
		sources = append(sources, models.Source{
			FileName:   fileName,
			Similarity: r.Similarity,
			Excerpt:    utils.Truncate(r.Content, excerptLength),
		})
	}

	return &models.Answer{
		Context:      b.String(),
		Sources:      sources,
		Confidence:   total / float64(len(results)),
		TotalResults: len(results),
	}, nil
}
