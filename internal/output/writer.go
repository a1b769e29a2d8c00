// Package output writes the finished catalog document and the run summary.
package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Digital-Shane/catalog-tidy/internal/catalog"
	"github.com/Digital-Shane/catalog-tidy/internal/log"
	"github.com/gofrs/flock"
)

const (
	defaultLockTimeout = 10 * time.Second
	lockRetryDelay     = 100 * time.Millisecond
)

// ErrLocked reports that another run holds the output lock.
var ErrLocked = errors.New("output file is locked by another run")

// Writer serializes a catalog as pretty JSON. An empty Path writes to Stdout.
type Writer struct {
	Path        string
	Stdout      io.Writer
	LockTimeout time.Duration
	logger      *slog.Logger
}

// NewWriter creates a writer for path.
func NewWriter(path string, stdout io.Writer, logger *slog.Logger) *Writer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Writer{
		Path:        path,
		Stdout:      stdout,
		LockTimeout: defaultLockTimeout,
		logger:      log.NewComponentLogger(logger, "output"),
	}
}

// Encode renders the catalog document.
func Encode(cat *catalog.Catalog) ([]byte, error) {
	doc := cat
	if doc == nil || doc.Shows == nil {
		doc = &catalog.Catalog{Shows: []*catalog.Show{}}
		if cat != nil {
			doc.Shows = append(doc.Shows, cat.Shows...)
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return append(data, '\n'), nil
}

// Write replaces the output document with cat. File writes hold a lock on
// <path>.lock and land through a rename so readers never see a partial file.
func (w *Writer) Write(ctx context.Context, cat *catalog.Catalog) error {
	data, err := Encode(cat)
	if err != nil {
		return err
	}
	if w.Path == "" {
		_, err := w.Stdout.Write(data)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	lock := flock.New(w.Path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, w.LockTimeout)
	defer cancel()
	ok, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%s: %w", w.Path, ErrLocked)
		}
		return fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", w.Path, ErrLocked)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			w.logger.Warn("failed to release output lock", slog.String("path", w.Path), slog.String("error", err.Error()))
		}
	}()

	if err := writeAtomic(w.Path, data); err != nil {
		return err
	}
	w.logger.Info("catalog written", slog.String("path", w.Path), slog.Int("bytes", len(data)))
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
