// Package source discovers media leaves and reports them as ancestry chains
// the catalog builder can fold.
package source

import (
	"context"
	"slices"
	"strings"

	"github.com/Digital-Shane/catalog-tidy/internal/catalog"
)

// Source lists every media leaf below its root. A listing error aborts the run.
type Source interface {
	Entries(ctx context.Context) ([]catalog.Entry, error)
}

// splitKey turns a slash separated relative path into an ancestry chain,
// dropping empty segments left by doubled or trailing slashes.
func splitKey(key string) []string {
	parts := strings.Split(key, "/")
	names := parts[:0]
	for _, part := range parts {
		if part != "" {
			names = append(names, part)
		}
	}
	return names
}

func sortEntries(entries []catalog.Entry) {
	slices.SortStableFunc(entries, func(a, b catalog.Entry) int {
		return strings.Compare(a.Path, b.Path)
	})
}
