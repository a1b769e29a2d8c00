package builtin

import (
	"strings"
	"testing"

	"github.com/Digital-Shane/catalog-tidy/internal/provider"
	"github.com/google/go-cmp/cmp"
)

func TestLoadBuiltinProviders(t *testing.T) {
	reg := provider.NewRegistry()
	if err := LoadBuiltinProviders(reg); err != nil {
		t.Fatalf("LoadBuiltinProviders() error = %v", err)
	}

	if diff := cmp.Diff([]string{"tmdb", "tvdb", "omdb"}, reg.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := reg.Get(DefaultBackend); !ok {
		t.Errorf("default backend %q not registered", DefaultBackend)
	}

	if err := LoadBuiltinProviders(reg); err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Errorf("second LoadBuiltinProviders() error = %v, want duplicate error", err)
	}
}

func TestBuiltinBackendsRequireAPIKey(t *testing.T) {
	reg := provider.NewRegistry()
	if err := LoadBuiltinProviders(reg); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"tmdb", "omdb"} {
		if _, err := reg.New(name, provider.BackendConfig{}); err == nil {
			t.Errorf("New(%s) without api key should fail", name)
		}
	}
}
