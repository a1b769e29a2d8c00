package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Digital-Shane/catalog-tidy/internal/catalog"
	"github.com/Digital-Shane/catalog-tidy/internal/config"
	"github.com/Digital-Shane/catalog-tidy/internal/core"
	"github.com/Digital-Shane/catalog-tidy/internal/log"
	"github.com/Digital-Shane/catalog-tidy/internal/output"
	"github.com/Digital-Shane/catalog-tidy/internal/provider"
	"github.com/Digital-Shane/catalog-tidy/internal/provider/builtin"
	"github.com/Digital-Shane/catalog-tidy/internal/provider/ffprobe"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [root]",
	Short: "Scan media files and write the catalog",
	Long: `Scan a directory (default: the configured root or the current directory) or an
object store bucket, fold every video file into the Show / Season / Episode catalog,
optionally enrich it from the configured metadata backend, and write the JSON document.

Lookup failures never fail a build; listing and output errors do.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuildCommand,
}

var (
	buildNoLookup bool
	buildUUID     bool
)

// buildBindings maps build flags onto config keys.
var buildBindings = map[string]string{
	"bucket":  "source.bucket",
	"prefix":  "source.prefix",
	"output":  "output.path",
	"backend": "provider.backend",
	"workers": "provider.workers",
	"probe":   "probe.enabled",
}

// newRegistry supplies the catalog backends. Tests replace it.
var newRegistry = func() (*provider.Registry, error) {
	reg := provider.NewRegistry()
	if err := builtin.LoadBuiltinProviders(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// newProber is swapped out in tests so no ffprobe binary is needed.
var newProber = func(logger *slog.Logger) catalogProber {
	return ffprobe.New(logger)
}

type catalogProber interface {
	ProbeCatalog(ctx context.Context, cat *catalog.Catalog, root string) int
}

func runBuildCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, buildBindings)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Source.Root = args[0]
	}
	if buildNoLookup {
		cfg.Provider.Lookup = false
	}
	if buildUUID {
		cfg.IDs.Scheme = config.IDSchemeUUID
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	if err := log.Initialize(cfg.Log.Journal, cfg.Log.RetentionDays); err != nil {
		logger.Warn("failed to prune lookup journals", slog.String("error", err.Error()))
	}
	if err := log.StartSession("build", invocationArgs(cmd, args)); err != nil {
		logger.Warn("failed to start lookup journal", slog.String("error", err.Error()))
	}
	defer func() {
		if err := log.EndSession(); err != nil {
			logger.Warn("failed to write lookup journal", slog.String("error", err.Error()))
		}
	}()

	return runBuild(commandContext(cmd), cmd, cfg, logger)
}

func runBuild(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	started := time.Now()

	src, err := newSource(cfg, logger)
	if err != nil {
		return err
	}
	entries, err := src.Entries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list media: %w", err)
	}

	builder := catalog.NewBuilder(
		catalog.WithIDGenerator(newIDGenerator(cfg)),
		catalog.WithLogger(logger),
	)
	cat := builder.Build(entries)
	stats := builder.Stats()
	logger.Info("catalog built",
		slog.Int("shows", len(cat.Shows)),
		slog.Int("entries", stats.Added),
		slog.Int("skipped", stats.Skipped))

	if cfg.Probe.Enabled {
		if cfg.Source.Bucket != "" {
			logger.Warn("media probing needs local files; skipping for object store source")
		} else {
			probed := newProber(logger).ProbeCatalog(ctx, cat, cfg.Source.Root)
			logger.Info("media probed", slog.Int("episodes", probed))
		}
	}

	var outcomes []core.Outcome
	backend := ""
	if cfg.Provider.Lookup {
		resolver, finish, err := newResolver(cfg, logger)
		if err != nil {
			return err
		}
		if resolver != nil {
			backend = cfg.Provider.Backend
			resolveWithProgress(ctx, resolver, cat, logger)
			outcomes = resolver.Outcomes()
			finish()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	writer := output.NewWriter(cfg.Output.Path, cmd.OutOrStdout(), logger)
	if err := writer.Write(ctx, cat); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}

	if cfg.Output.Summary {
		summary := output.Summary{
			Catalog:  cat,
			Stats:    stats,
			Outcomes: outcomes,
			Backend:  backend,
			Elapsed:  time.Since(started),
		}
		if err := output.PrintSummary(cmd.ErrOrStderr(), summary); err != nil {
			logger.Warn("failed to print summary", slog.String("error", err.Error()))
		}
	}
	return nil
}

// newResolver wires the configured backend, its response cache and a per
// worker handle factory. A nil resolver means enrichment is disabled.
func newResolver(cfg *config.Config, logger *slog.Logger) (*core.Resolver, func(), error) {
	reg, err := newRegistry()
	if err != nil {
		return nil, nil, err
	}
	backend := cfg.Provider.Backend
	if backend == "" {
		backend = builtin.DefaultBackend
	}
	if _, ok := reg.Get(backend); !ok {
		return nil, nil, fmt.Errorf("unknown metadata backend %q (available: %v)", backend, reg.List())
	}

	backendCfg := provider.BackendConfig{
		APIKey:   cfg.APIKey(),
		Language: cfg.Provider.Language,
		Logger:   logger,
	}
	if backendCfg.APIKey == "" {
		logger.Warn("no API key configured; skipping metadata lookup", slog.String("backend", backend))
		return nil, nil, nil
	}

	api, err := reg.New(backend, backendCfg)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, nil, err
		}
		logger.Warn("metadata backend unavailable; skipping lookup", slog.String("backend", backend), slog.String("error", err.Error()))
		return nil, nil, nil
	}

	finish := func() {}
	newAPI := func() (provider.CatalogAPI, error) { return reg.New(backend, backendCfg) }
	if cfg.Provider.CacheEnabled {
		shared := provider.NewCached(api, cfg.Provider.CacheDuration)
		if path, err := provider.CacheFile(backend); err == nil {
			if err := shared.Load(path); err != nil {
				logger.Warn("ignoring unreadable response cache", slog.String("error", err.Error()))
			}
		}
		api = shared
		newAPI = func() (provider.CatalogAPI, error) {
			handle, err := reg.New(backend, backendCfg)
			if err != nil {
				return nil, err
			}
			return provider.NewCachedWithStore(handle, shared.Store()), nil
		}
		finish = func() {
			if err := shared.Save(); err != nil {
				logger.Warn("failed to save response cache", slog.String("error", err.Error()))
			}
		}
	}

	if cfg.Provider.Workers <= 1 {
		newAPI = nil
	}
	resolver := core.NewResolver(core.ResolverConfig{
		API:         api,
		NewAPI:      newAPI,
		Workers:     cfg.Provider.Workers,
		CallTimeout: cfg.Provider.Timeout,
		Logger:      logger,
	})
	return resolver, finish, nil
}

// resolveWithProgress drains resolver events, logging progress at debug level.
func resolveWithProgress(ctx context.Context, resolver *core.Resolver, cat *catalog.Catalog, logger *slog.Logger) {
	var last core.ResolveSummary
	for event := range resolver.Start(ctx, cat) {
		last = event.Summary
		if event.Err != nil {
			logger.Debug("lookup failed", slog.String("show", last.LastShow), slog.String("error", event.Err.Error()))
			continue
		}
		if !last.Done {
			logger.Debug("lookup progress",
				slog.Int("processed", last.ProcessedShows),
				slog.Int("total", last.TotalShows),
				slog.Int("active_workers", last.ActiveWorkers))
		}
	}
	logger.Info("metadata lookup finished",
		slog.Int("matched", last.MatchedShows),
		slog.Int("shows", last.TotalShows),
		slog.Int("errors", last.ErrorCount),
		slog.Bool("canceled", last.Canceled))
}

func init() {
	buildCmd.Flags().String("bucket", "", "Object store bucket to list instead of a local directory")
	buildCmd.Flags().String("prefix", "", "Key prefix inside the bucket")
	buildCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	buildCmd.Flags().String("backend", "", "Metadata backend: tmdb, tvdb or omdb")
	buildCmd.Flags().Int("workers", 1, "Shows resolved concurrently")
	buildCmd.Flags().Bool("probe", false, "Probe local files with ffprobe for codec details")
	buildCmd.Flags().BoolVar(&buildNoLookup, "no-lookup", false, "Skip metadata lookup")
	buildCmd.Flags().BoolVar(&buildUUID, "uuid", false, "Use random UUIDs instead of sequential IDs")
	rootCmd.AddCommand(buildCmd)
}
