package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	retry "github.com/sethvargo/go-retry"
)

// FileIO defines the filesystem operations the vector store and backups use.
type FileIO interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
	// WriteFile replaces name as a whole: readers see either the old or the new content.
	WriteFile(ctx context.Context, name string, data []byte, perm os.FileMode) error
	MkdirAll(ctx context.Context, path string, perm os.FileMode) error
	Exists(ctx context.Context, path string) bool
}

// Retry settings for transient I/O errors.
const (
	DefaultRetryBase = 100 * time.Millisecond
	DefaultRetries   = 3
)

type osFileIO struct {
	base    time.Duration
	retries uint64
}

// NewFileIO returns a FileIO backed by the os package. Transient errors are retried
// with Fibonacci backoff; permanent ones are returned immediately.
func NewFileIO() FileIO {
	return &osFileIO{base: DefaultRetryBase, retries: DefaultRetries}
}

func (f *osFileIO) do(ctx context.Context, task func() error) error {
	b := retry.WithMaxRetries(f.retries, retry.NewFibonacci(f.base))
	return retry.Do(ctx, b, func(context.Context) error {
		err := task()
		if ShouldRetry(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (f *osFileIO) ReadFile(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := f.do(ctx, func() error {
		var err error
		data, err = os.ReadFile(name)
		return err
	})
	return data, err
}

func (f *osFileIO) WriteFile(ctx context.Context, name string, data []byte, perm os.FileMode) error {
	return f.do(ctx, func() error {
		return writeFileAtomic(name, data, perm)
	})
}

func (f *osFileIO) MkdirAll(ctx context.Context, path string, perm os.FileMode) error {
	return f.do(ctx, func() error {
		return os.MkdirAll(path, perm)
	})
}

func (f *osFileIO) Exists(_ context.Context, path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeFileAtomic writes to a temp file in the same directory and renames it over name.
func writeFileAtomic(name string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, name); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// ShouldRetry reports whether err is transient (non-nil and not a known permanent failure).
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, os.ErrExist) {
		return false
	}
	switch {
	case errors.Is(err, syscall.EROFS),
		errors.Is(err, syscall.ENOSPC),
		errors.Is(err, syscall.EACCES),
		errors.Is(err, syscall.EPERM),
		errors.Is(err, syscall.ENAMETOOLONG),
		errors.Is(err, syscall.ENOTDIR),
		errors.Is(err, syscall.EISDIR),
		errors.Is(err, syscall.ELOOP),
		errors.Is(err, syscall.EINVAL):
		return false
	}
	if strings.Contains(err.Error(), "read-only file system") {
		return false
	}
	return true
}
