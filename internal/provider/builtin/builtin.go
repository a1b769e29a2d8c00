// Package builtin registers the bundled catalog backends. It lives apart from
// package provider to avoid import cycles.
package builtin

import (
	"fmt"

	"github.com/Digital-Shane/catalog-tidy/internal/provider"
	"github.com/Digital-Shane/catalog-tidy/internal/provider/omdb"
	"github.com/Digital-Shane/catalog-tidy/internal/provider/tmdb"
	"github.com/Digital-Shane/catalog-tidy/internal/provider/tvdb"
)

// DefaultBackend is used when no backend is configured.
const DefaultBackend = "tmdb"

// LoadBuiltinProviders registers tmdb, tvdb and omdb into reg.
func LoadBuiltinProviders(reg *provider.Registry) error {
	backends := []struct {
		name     string
		factory  provider.Factory
		priority int
	}{
		{"tmdb", tmdb.Factory, 100},
		{"tvdb", tvdb.Factory, 90},
		{"omdb", omdb.Factory, 80},
	}

	for _, b := range backends {
		if err := reg.Register(b.name, b.factory, b.priority); err != nil {
			return fmt.Errorf("failed to register %s backend: %w", b.name, err)
		}
	}
	return nil
}
