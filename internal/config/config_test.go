package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at fresh temp dirs so no
// real config or .env leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	return home
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".", cfg.Source.Root)
	assert.Equal(t, "tmdb", cfg.Provider.Backend)
	assert.Equal(t, 1, cfg.Provider.Workers)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.True(t, cfg.Provider.Lookup)
	assert.Equal(t, IDSchemeCounter, cfg.IDs.Scheme)
	assert.Equal(t, "", cfg.Output.Path)
	assert.Equal(t, 30, cfg.Log.RetentionDays)
	assert.NoError(t, cfg.Validate())
}

func TestConfigPath(t *testing.T) {
	home := isolate(t)

	path, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".catalog-tidy", "config.json"), path)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"source": {"bucket": "media", "prefix": "anime/"},
		"provider": {"backend": "tvdb", "workers": 4, "timeout": "3s"},
		"ids": {"scheme": "uuid"}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "media", cfg.Source.Bucket)
	assert.Equal(t, "anime/", cfg.Source.Prefix)
	assert.Equal(t, "tvdb", cfg.Provider.Backend)
	assert.Equal(t, 4, cfg.Provider.Workers)
	assert.Equal(t, 3*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, IDSchemeUUID, cfg.IDs.Scheme)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, "en-US", cfg.Provider.Language)
	assert.True(t, cfg.Output.Summary)
}

func TestLoadMalformedFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"provider": `), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("CATALOG_TIDY_PROVIDER_BACKEND", "omdb")
	t.Setenv("CATALOG_TIDY_PROVIDER_WORKERS", "3")
	t.Setenv("CATALOG_TIDY_PROBE_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "omdb", cfg.Provider.Backend)
	assert.Equal(t, 3, cfg.Provider.Workers)
	assert.True(t, cfg.Probe.Enabled)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(".env", []byte("CATALOG_TIDY_OUTPUT_PATH=catalog.json\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("CATALOG_TIDY_OUTPUT_PATH") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "catalog.json", cfg.Output.Path)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("CATALOG_TIDY_PROVIDER_BACKEND", "omdb")

	flags := pflag.NewFlagSet("build", pflag.ContinueOnError)
	flags.String("backend", "", "")
	flags.Int("workers", 1, "")
	require.NoError(t, flags.Parse([]string{"--backend", "tvdb"}))

	cfg, err := Load("",
		FlagBinding{Key: "provider.backend", Flag: flags.Lookup("backend")},
		FlagBinding{Key: "provider.workers", Flag: flags.Lookup("workers")},
	)
	require.NoError(t, err)
	assert.Equal(t, "tvdb", cfg.Provider.Backend)
	// Unset flags do not clobber lower layers.
	assert.Equal(t, 1, cfg.Provider.Workers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad_scheme", func(c *Config) { c.IDs.Scheme = "sequential" }},
		{"zero_workers", func(c *Config) { c.Provider.Workers = 0 }},
		{"zero_timeout", func(c *Config) { c.Provider.Timeout = 0 }},
		{"negative_retention", func(c *Config) { c.Log.RetentionDays = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAPIKeyFallsBackToBackendEnv(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("TMDB_API_KEY", " env-key ")
	assert.Equal(t, "env-key", cfg.APIKey())

	cfg.Provider.APIKey = "file-key"
	assert.Equal(t, "file-key", cfg.APIKey())

	cfg.Provider.APIKey = ""
	cfg.Provider.Backend = "tvdb"
	assert.Equal(t, "", cfg.APIKey())
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	cfg := DefaultConfig()
	cfg.Provider.Backend = "tvdb"
	cfg.Provider.Timeout = 5 * time.Second
	cfg.Provider.CacheDuration = 2 * time.Hour
	cfg.Output.Path = "out.json"

	require.NoError(t, cfg.Save(""))

	path, err := ConfigPath()
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
