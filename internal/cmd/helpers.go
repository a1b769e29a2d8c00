package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Digital-Shane/catalog-tidy/internal/catalog"
	"github.com/Digital-Shane/catalog-tidy/internal/config"
	"github.com/Digital-Shane/catalog-tidy/internal/log"
	"github.com/Digital-Shane/catalog-tidy/internal/source"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// persistentBindings maps root flags onto config keys.
var persistentBindings = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
}

// loadConfig loads the config file and layers any explicitly set flags of cmd
// named in bindings on top.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	var flags []config.FlagBinding
	for _, set := range []map[string]string{persistentBindings, bindings} {
		for name, key := range set {
			if f := cmd.Flags().Lookup(name); f != nil {
				flags = append(flags, config.FlagBinding{Key: key, Flag: f})
			}
		}
	}

	cfg, err := config.Load(configPath, flags...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	return log.New(log.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
}

// newSource picks the object store when a bucket is configured, otherwise
// the local root.
func newSource(cfg *config.Config, logger *slog.Logger) (source.Source, error) {
	if cfg.Source.Bucket != "" {
		return newObjectStore(source.ObjectStoreConfig{
			Endpoint:  cfg.Source.Endpoint,
			AccessKey: cfg.Source.AccessKey,
			SecretKey: cfg.Source.SecretKey,
			Region:    cfg.Source.Region,
			UseSSL:    cfg.Source.UseSSL,
			Bucket:    cfg.Source.Bucket,
			Prefix:    cfg.Source.Prefix,
		}, logger)
	}
	return source.NewLocal(cfg.Source.Root, logger), nil
}

// newObjectStore is swapped out in tests.
var newObjectStore = func(cfg source.ObjectStoreConfig, logger *slog.Logger) (source.Source, error) {
	return source.NewObjectStore(cfg, logger)
}

func newIDGenerator(cfg *config.Config) catalog.IDGenerator {
	if cfg.IDs.Scheme == config.IDSchemeUUID {
		return catalog.NewUUIDGenerator()
	}
	return catalog.NewCounter()
}

// invocationArgs reconstructs the explicitly set flags and positional
// arguments for the lookup journal.
func invocationArgs(cmd *cobra.Command, args []string) []string {
	var out []string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		out = append(out, "--"+f.Name+"="+f.Value.String())
	})
	return append(out, args...)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
