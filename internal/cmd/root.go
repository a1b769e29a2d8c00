package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "catalog-tidy",
	Short: "Build a normalized TV catalog from media file names",
	Long: `catalog-tidy turns a directory tree or an object store listing of media files
into a Show / Season / Episode catalog. Titles, season numbers and episode numbers
are inferred from release names, then optionally enriched from TMDB, TVDB or OMDb.

The catalog is written as JSON to stdout or to the configured output file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

var (
	configPath string
	logLevel   string
	logFormat  string
)

func init() {
	// Global flags for all commands
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.catalog-tidy/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json")
}
