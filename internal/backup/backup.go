// Package backup writes and restores timestamped copies of the RAG store.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/ragstore/internal/models"
	"github.com/hyperjump/ragstore/internal/storage"
	"github.com/hyperjump/ragstore/pkg/utils"
)

// Files written into every backup directory.
const (
	DataFile   = "rag_data.json"
	StatsFile  = "stats.json"
	ReadmeFile = "README.md"
	DirPrefix  = "rag_backup_"
)

// Source is what Create reads from.
type Source interface {
	ExportData(ctx context.Context) (*models.Snapshot, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// Target is what Restore writes into.
type Target interface {
	ClearAll(ctx context.Context) error
	ImportData(ctx context.Context, snap *models.Snapshot) error
	Stats(ctx context.Context) (models.Stats, error)
}

// Manager creates and restores backups.
type Manager struct {
	fio    storage.FileIO
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithFileIO replaces the filesystem implementation.
func WithFileIO(fio storage.FileIO) Option {
	return func(m *Manager) { m.fio = fio }
}

// WithClock sets the time source used for directory names.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a backup manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{fio: storage.NewFileIO(), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = utils.LoggerOrNop(m.logger)
	return m
}

// DirName returns the backup directory name for t, e.g. rag_backup_2024-05-01T10-20-30-123Z.
func DirName(t time.Time) string {
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return DirPrefix + strings.NewReplacer(":", "-", ".", "-").Replace(ts)
}

// Create writes a new backup under root and returns its directory. Extra files (config,
// .env) are copied in when they exist and skipped otherwise.
func (m *Manager) Create(ctx context.Context, src Source, root string, extraFiles ...string) (string, error) {
	snap, err := src.ExportData(ctx)
	if err != nil {
		return "", fmt.Errorf("export data: %w", err)
	}
	stats, err := src.Stats(ctx)
	if err != nil {
		return "", fmt.Errorf("read stats: %w", err)
	}

	dir := filepath.Join(root, DirName(m.now()))
	if err := m.fio.MkdirAll(ctx, dir, 0755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	if err := m.writeJSON(ctx, filepath.Join(dir, DataFile), snap); err != nil {
		return "", err
	}
	if err := m.writeJSON(ctx, filepath.Join(dir, StatsFile), stats); err != nil {
		return "", err
	}

	var copied []string
	for _, src := range extraFiles {
		if src == "" {
			continue
		}
		data, err := m.fio.ReadFile(ctx, src)
		if err != nil {
			m.logger.Warn("skipping backup file", zap.String("file", src), zap.Error(err))
			continue
		}
		name := filepath.Base(src)
		if err := m.fio.WriteFile(ctx, filepath.Join(dir, name), data, 0600); err != nil {
			return "", fmt.Errorf("copy %s: %w", name, err)
		}
		copied = append(copied, name)
	}

	readme := renderReadme(m.now(), stats, copied, dir)
	if err := m.fio.WriteFile(ctx, filepath.Join(dir, ReadmeFile), []byte(readme), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", ReadmeFile, err)
	}

	m.logger.Info("backup created",
		zap.String("dir", dir),
		zap.Int("documents", stats.TotalDocuments),
		zap.Int("embeddings", stats.TotalEmbeddings),
	)
	return dir, nil
}

// Restore replaces the target's contents with the snapshot in dir and returns the new stats.
func (m *Manager) Restore(ctx context.Context, dst Target, dir string) (*models.Stats, error) {
	snap, err := m.Load(ctx, dir)
	if err != nil {
		return nil, err
	}
	m.logger.Info("restoring backup",
		zap.String("dir", dir),
		zap.Int("documents", len(snap.Documents)),
		zap.Int("embeddings", len(snap.Embeddings)),
		zap.Time("exportedAt", snap.ExportedAt),
	)

	if err := dst.ClearAll(ctx); err != nil {
		return nil, fmt.Errorf("clear store: %w", err)
	}
	if err := dst.ImportData(ctx, snap); err != nil {
		return nil, fmt.Errorf("import backup: %w", err)
	}
	stats, err := dst.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Load reads the snapshot stored in a backup directory.
func (m *Manager) Load(ctx context.Context, dir string) (*models.Snapshot, error) {
	data, err := m.fio.ReadFile(ctx, filepath.Join(dir, DataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("not a backup directory (missing %s): %s", DataFile, dir)
		}
		return nil, fmt.Errorf("read backup: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse backup: %w", err)
	}
	return &snap, nil
}

func (m *Manager) writeJSON(ctx context.Context, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := m.fio.WriteFile(ctx, path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func renderReadme(t time.Time, stats models.Stats, extra []string, dir string) string {
	var b strings.Builder
	b.WriteString("# RAG store backup\n\n")
	fmt.Fprintf(&b, "**Created:** %s\n", t.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Documents:** %d\n", stats.TotalDocuments)
	fmt.Fprintf(&b, "**Embeddings:** %d\n\n", stats.TotalEmbeddings)
	b.WriteString("## Contents\n\n")
	fmt.Fprintf(&b, "- `%s`: full store export (documents, embeddings, metadata)\n", DataFile)
	fmt.Fprintf(&b, "- `%s`: store statistics at backup time\n", StatsFile)
	for _, name := range extra {
		fmt.Fprintf(&b, "- `%s`: copied configuration\n", name)
	}
	b.WriteString("\n## Restore\n\n")
	fmt.Fprintf(&b, "```bash\nragstore restore %q\n```\n", dir)
	return b.String()
}
