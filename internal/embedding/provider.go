package embedding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/ragstore/pkg/utils"
)

// Provider defaults.
const (
	DefaultMaxChars  = 512
	DefaultBatchSize = 10
	DefaultCacheSize = 10000
)

// Provider lazily loads a model runtime and turns text into unit-length vectors.
// Results are cached by normalized text.
type Provider struct {
	load      Loader
	logger    *zap.Logger
	cache     *EmbeddingCache
	maxChars  int
	batchSize int

	mu       sync.Mutex
	embedder Embedder
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the logger for model load and batch progress.
func WithLogger(logger *zap.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// WithCacheSize sets the LRU capacity.
func WithCacheSize(n int) ProviderOption {
	return func(p *Provider) {
		if n > 0 {
			p.cache = NewEmbeddingCache(n)
		}
	}
}

// WithMaxChars sets how many characters of normalized text reach the model.
func WithMaxChars(n int) ProviderOption {
	return func(p *Provider) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// WithBatchSize sets the default EmbedBatch batch size.
func WithBatchSize(n int) ProviderOption {
	return func(p *Provider) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// NewProvider returns a Provider that loads its model with load on first use.
func NewProvider(load Loader, opts ...ProviderOption) *Provider {
	p := &Provider{
		load:      load,
		cache:     NewEmbeddingCache(DefaultCacheSize),
		maxChars:  DefaultMaxChars,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.LoggerOrNop(p.logger)
	return p
}

// Initialize loads the model once. A failed load leaves the provider unloaded so a later call retries.
func (p *Provider) Initialize(ctx context.Context) error {
	_, err := p.model(ctx)
	return err
}

func (p *Provider) model(ctx context.Context) (Embedder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.embedder != nil {
		return p.embedder, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.load == nil {
		return nil, errors.New("no embedding model configured")
	}
	p.logger.Info("loading embedding model")
	e, err := p.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding model: %w", err)
	}
	p.embedder = e
	p.logger.Info("embedding model loaded", zap.Int("dimensions", e.Dimensions()))
	return e, nil
}

// Ready reports whether the model is loaded.
func (p *Provider) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.embedder != nil
}

// Embed normalizes text, runs the model and returns an L2-normalized vector.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	e, err := p.model(ctx)
	if err != nil {
		return nil, err
	}
	key := NormalizeText(text, p.maxChars)
	if cached, ok := p.cache.Get(key); ok {
		return slices.Clone(cached), nil
	}

	vec, err := e.Embed(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	if len(vec) == 0 {
		return nil, errors.New("model returned an empty embedding")
	}
	utils.NormalizeL2(vec)
	p.cache.Set(key, vec)
	return slices.Clone(vec), nil
}

// EmbedBatch embeds texts in batches of batchSize (the provider default when <= 0).
// Texts within a batch are embedded concurrently; batches run one after another.
// The output is index-aligned with texts.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = p.batchSize
	}
	if err := p.Initialize(ctx); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				vec, err := p.Embed(gctx, texts[i])
				if err != nil {
					return fmt.Errorf("text %d: %w", i, err)
				}
				out[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		p.logger.Debug("embedded batch", zap.Int("done", end), zap.Int("total", len(texts)))
	}
	return out, nil
}

// Dimensions returns the model dimension, or 0 before the model is loaded.
func (p *Provider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.embedder == nil {
		return 0
	}
	return p.embedder.Dimensions()
}

// Close releases the model. The provider may be initialized again afterwards.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.embedder == nil {
		return nil
	}
	err := p.embedder.Close()
	p.embedder = nil
	return err
}

// NormalizeText lower-cases text, collapses whitespace, trims, and keeps at most maxChars characters.
func NormalizeText(text string, maxChars int) string {
	s := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	return utils.Prefix(s, maxChars)
}
