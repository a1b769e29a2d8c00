// Package config loads catalog-tidy settings from file, environment and flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. CATALOG_TIDY_PROVIDER_BACKEND.
const EnvPrefix = "CATALOG_TIDY"

// ID schemes accepted by ids.scheme.
const (
	IDSchemeCounter = "counter"
	IDSchemeUUID    = "uuid"
)

// Config holds every setting a build run needs.
type Config struct {
	Source   SourceConfig   `mapstructure:"source" json:"source"`
	Provider ProviderConfig `mapstructure:"provider" json:"provider"`
	Probe    ProbeConfig    `mapstructure:"probe" json:"probe"`
	IDs      IDConfig       `mapstructure:"ids" json:"ids"`
	Output   OutputConfig   `mapstructure:"output" json:"output"`
	Log      LogConfig      `mapstructure:"log" json:"log"`
}

// SourceConfig selects the local root or an object store bucket.
type SourceConfig struct {
	Root      string `mapstructure:"root" json:"root"`
	Bucket    string `mapstructure:"bucket" json:"bucket"`
	Prefix    string `mapstructure:"prefix" json:"prefix"`
	Endpoint  string `mapstructure:"endpoint" json:"endpoint"`
	AccessKey string `mapstructure:"access_key" json:"access_key"`
	SecretKey string `mapstructure:"secret_key" json:"secret_key"`
	Region    string `mapstructure:"region" json:"region"`
	UseSSL    bool   `mapstructure:"use_ssl" json:"use_ssl"`
}

// ProviderConfig configures the catalog API backend and the resolver.
type ProviderConfig struct {
	Backend       string        `mapstructure:"backend" json:"backend"`
	APIKey        string        `mapstructure:"api_key" json:"api_key"`
	Language      string        `mapstructure:"language" json:"language"`
	Workers       int           `mapstructure:"workers" json:"workers"`
	Timeout       time.Duration `mapstructure:"timeout" json:"timeout"`
	Lookup        bool          `mapstructure:"lookup" json:"lookup"`
	CacheEnabled  bool          `mapstructure:"cache_enabled" json:"cache_enabled"`
	CacheDuration time.Duration `mapstructure:"cache_duration" json:"cache_duration"`
}

// ProbeConfig toggles ffprobe media inspection.
type ProbeConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

// IDConfig picks the identifier generator.
type IDConfig struct {
	Scheme string `mapstructure:"scheme" json:"scheme"`
}

// OutputConfig controls where the catalog goes and whether a summary prints.
type OutputConfig struct {
	Path    string `mapstructure:"path" json:"path"`
	Summary bool   `mapstructure:"summary" json:"summary"`
}

// LogConfig configures the slog logger and the lookup journal.
type LogConfig struct {
	Level         string `mapstructure:"level" json:"level"`
	Format        string `mapstructure:"format" json:"format"`
	Journal       bool   `mapstructure:"journal" json:"journal"`
	RetentionDays int    `mapstructure:"retention_days" json:"retention_days"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Root:   ".",
			UseSSL: true,
		},
		Provider: ProviderConfig{
			Backend:       "tmdb",
			Language:      "en-US",
			Workers:       1,
			Timeout:       10 * time.Second,
			Lookup:        true,
			CacheEnabled:  true,
			CacheDuration: 24 * time.Hour,
		},
		IDs:    IDConfig{Scheme: IDSchemeCounter},
		Output: OutputConfig{Summary: true},
		Log: LogConfig{
			Level:         "info",
			Format:        "console",
			Journal:       true,
			RetentionDays: 30,
		},
	}
}

// ConfigDir returns ~/.catalog-tidy.
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".catalog-tidy"), nil
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// FlagBinding ties a config key to a command line flag. Flags only override
// the file and environment when set explicitly.
type FlagBinding struct {
	Key  string
	Flag *pflag.Flag
}

// Load merges defaults, the config file, a .env file in the working directory,
// CATALOG_TIDY_* environment variables and flags, in increasing precedence.
// An empty path uses ConfigPath; a missing file is not an error.
func Load(path string, flags ...FlagBinding) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	for _, b := range flags {
		if b.Flag == nil {
			continue
		}
		if err := v.BindPFlag(b.Key, b.Flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", b.Flag.Name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("source.root", d.Source.Root)
	v.SetDefault("source.bucket", d.Source.Bucket)
	v.SetDefault("source.prefix", d.Source.Prefix)
	v.SetDefault("source.endpoint", d.Source.Endpoint)
	v.SetDefault("source.access_key", d.Source.AccessKey)
	v.SetDefault("source.secret_key", d.Source.SecretKey)
	v.SetDefault("source.region", d.Source.Region)
	v.SetDefault("source.use_ssl", d.Source.UseSSL)

	v.SetDefault("provider.backend", d.Provider.Backend)
	v.SetDefault("provider.api_key", d.Provider.APIKey)
	v.SetDefault("provider.language", d.Provider.Language)
	v.SetDefault("provider.workers", d.Provider.Workers)
	v.SetDefault("provider.timeout", d.Provider.Timeout)
	v.SetDefault("provider.lookup", d.Provider.Lookup)
	v.SetDefault("provider.cache_enabled", d.Provider.CacheEnabled)
	v.SetDefault("provider.cache_duration", d.Provider.CacheDuration)

	v.SetDefault("probe.enabled", d.Probe.Enabled)
	v.SetDefault("ids.scheme", d.IDs.Scheme)
	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.summary", d.Output.Summary)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.journal", d.Log.Journal)
	v.SetDefault("log.retention_days", d.Log.RetentionDays)
}

// Validate rejects settings no run could use.
func (cfg *Config) Validate() error {
	switch cfg.IDs.Scheme {
	case IDSchemeCounter, IDSchemeUUID:
	default:
		return fmt.Errorf("ids.scheme must be %q or %q, got %q", IDSchemeCounter, IDSchemeUUID, cfg.IDs.Scheme)
	}
	if cfg.Provider.Workers < 1 {
		return fmt.Errorf("provider.workers must be at least 1, got %d", cfg.Provider.Workers)
	}
	if cfg.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive, got %s", cfg.Provider.Timeout)
	}
	if cfg.Log.RetentionDays < 0 {
		return fmt.Errorf("log.retention_days must not be negative, got %d", cfg.Log.RetentionDays)
	}
	return nil
}

// APIKey returns the configured key, falling back to <BACKEND>_API_KEY
// (for example TMDB_API_KEY) from the environment.
func (cfg *Config) APIKey() string {
	if key := strings.TrimSpace(cfg.Provider.APIKey); key != "" {
		return key
	}
	backend := strings.ToUpper(strings.TrimSpace(cfg.Provider.Backend))
	if backend == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(backend + "_API_KEY"))
}

// Save writes the configuration as JSON. An empty path uses ConfigPath.
func (cfg *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := cfg.MarshalIndent()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MarshalIndent renders the configuration as indented JSON with durations
// in their string form so the file reads back through viper.
func (cfg *Config) MarshalIndent() ([]byte, error) {
	type providerJSON struct {
		ProviderConfig
		Timeout       string `json:"timeout"`
		CacheDuration string `json:"cache_duration"`
	}
	doc := struct {
		Source   SourceConfig `json:"source"`
		Provider providerJSON `json:"provider"`
		Probe    ProbeConfig  `json:"probe"`
		IDs      IDConfig     `json:"ids"`
		Output   OutputConfig `json:"output"`
		Log      LogConfig    `json:"log"`
	}{
		Source: cfg.Source,
		Provider: providerJSON{
			ProviderConfig: cfg.Provider,
			Timeout:        cfg.Provider.Timeout.String(),
			CacheDuration:  cfg.Provider.CacheDuration.String(),
		},
		Probe:  cfg.Probe,
		IDs:    cfg.IDs,
		Output: cfg.Output,
		Log:    cfg.Log,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return append(data, '\n'), nil
}
