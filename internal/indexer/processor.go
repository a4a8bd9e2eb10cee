package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ragstore/internal/extract"
	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/pkg/utils"
)

// Processor extracts, cleans and chunks files.
type Processor struct {
	extractor *extract.Extractor
	chunker   *Chunker
	logger    *zap.Logger
	now       func() time.Time
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithLogger sets a logger for skipped files and short-content warnings.
func WithLogger(l *zap.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = l }
}

// WithChunker replaces the default chunker.
func WithChunker(c *Chunker) ProcessorOption {
	return func(p *Processor) {
		if c != nil {
			p.chunker = c
		}
	}
}

// NewProcessor returns a processor. extractor may be nil, in which case a default one is used.
func NewProcessor(extractor *extract.Extractor, opts ...ProcessorOption) *Processor {
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	p := &Processor{
		extractor: extractor,
		chunker:   DefaultChunker(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.LoggerOrNop(p.logger)
	return p
}

// Chunker returns the chunker used for processed files.
func (p *Processor) Chunker() *Chunker {
	return p.chunker
}

// IsSupported reports whether name has an extractable extension.
func (p *Processor) IsSupported(name string) bool {
	return extract.IsSupported(name)
}

// ProcessFile extracts the text of path, cleans it and chunks it. Unsupported extensions
// fail with extract.ErrUnsupportedFormat before the file is read.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*models.ProcessedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	p.logger.Debug("processing file", zap.String("path", absPath))

	text, err := p.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", filepath.Base(absPath), err)
	}
	content := CleanContent(text)
	fileName := filepath.Base(absPath)
	metadata := map[string]any{
		models.MetaFileName:    fileName,
		models.MetaFilePath:    absPath,
		models.MetaFileType:    strings.ToLower(filepath.Ext(absPath)),
		models.MetaProcessedAt: p.now().UTC().Format(time.RFC3339Nano),
		models.MetaWordCount:   WordCount(content),
		models.MetaSource:      "file",
	}
	if utils.RuneLen(content) < DefaultMinChunkChars {
		p.logger.Warn("file content is very short", zap.String("file", fileName), zap.Int("chars", utils.RuneLen(content)))
	}
	return &models.ProcessedDocument{
		Content:  content,
		Chunks:   p.chunker.Chunk(content),
		Metadata: metadata,
	}, nil
}

// ProcessDirectory processes every supported file under dir, recursively.
// Files that fail are logged and skipped.
func (p *Processor) ProcessDirectory(ctx context.Context, dir string) ([]*models.ProcessedDocument, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var results []*models.ProcessedDocument
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			p.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(walkErr))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || !p.IsSupported(d.Name()) {
			return nil
		}
		doc, err := p.ProcessFile(ctx, path)
		if err != nil {
			p.logger.Warn("failed to process file", zap.String("path", path), zap.Error(err))
			return nil
		}
		results = append(results, doc)
		return nil
	})
	if err != nil {
		return results, err
	}
	return results, nil
}
