package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Digital-Shane/catalog-tidy/internal/catalog"
	"github.com/Digital-Shane/catalog-tidy/internal/log"
	"github.com/Digital-Shane/catalog-tidy/internal/media"
	"github.com/Digital-Shane/treeview"
)

// traversalCap bounds how many filesystem nodes a single scan may visit.
const traversalCap = 2000000

type treeBuilderFunc func(context.Context, string, bool, ...treeview.Option[treeview.FileInfo]) (*treeview.Tree[treeview.FileInfo], error)

var localTreeBuilder treeBuilderFunc = treeview.NewTreeFromFileSystem

// Local walks a directory tree on disk.
type Local struct {
	Root           string
	FollowSymlinks bool
	logger         *slog.Logger
}

var _ Source = (*Local)(nil)

// NewLocal creates a source rooted at root.
func NewLocal(root string, logger *slog.Logger) *Local {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Local{Root: root, logger: log.NewComponentLogger(logger, "source.local")}
}

// Entries returns one entry per video file. Paths are relative to Root and
// slash separated; the root directory itself is not part of any chain.
func (l *Local) Entries(ctx context.Context) ([]catalog.Entry, error) {
	root, err := filepath.Abs(l.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", l.Root, err)
	}

	t, err := localTreeBuilder(ctx, root, l.FollowSymlinks,
		treeview.WithTraversalCap[treeview.FileInfo](traversalCap),
		treeview.WithFilterFunc(mediaFilter(root)),
	)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	var entries []catalog.Entry
	for ni := range t.All(ctx) {
		info := ni.Node.Data()
		if info.IsDir() {
			continue
		}
		rel, err := filepath.Rel(root, info.Path)
		if err != nil || strings.HasPrefix(rel, "..") {
			l.logger.Warn("entry outside root", slog.String("path", info.Path))
			continue
		}
		rel = filepath.ToSlash(rel)
		entries = append(entries, catalog.Entry{Names: splitKey(rel), Path: rel})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sortEntries(entries)
	l.logger.Debug("scan complete", slog.String("root", root), slog.Int("entries", len(entries)))
	return entries, nil
}

// mediaFilter keeps directories and video files, skipping hidden names and
// macOS resource forks. The root always passes.
func mediaFilter(root string) func(treeview.FileInfo) bool {
	return func(info treeview.FileInfo) bool {
		name := info.Name()
		if info.IsDir() {
			return info.Path == root || !strings.HasPrefix(name, ".")
		}
		if strings.HasPrefix(name, ".") {
			return false
		}
		return media.IsVideo(name)
	}
}
