// Package main provides the portfolio CLI: filtering and summarizing the
// project dataset, validating it, and serving the HTTP API.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jonathan/portfolio-engine/internal/config"
	"github.com/jonathan/portfolio-engine/internal/filter"
	"github.com/jonathan/portfolio-engine/internal/observability"
	"github.com/jonathan/portfolio-engine/internal/portfolio"
)

// rootOptions holds the persistent flags and the configuration resolved
// from them before any subcommand runs.
type rootOptions struct {
	configPath string
	projects   string
	hierarchy  string
	verbose    bool
	jsonOut    bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Portfolio filter and achievement engine",
		Long: `portfolio filters and summarizes a project portfolio dataset and serves
the filter and achievement engines over HTTP.

Configuration is read from --config, then PORTFOLIO_* environment variables,
then flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.setup,
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to JSON config file")
	flags.StringVarP(&opts.projects, "projects", "p", "", "Path to the project dataset JSON")
	flags.StringVar(&opts.hierarchy, "hierarchy", "", "Path to the tag hierarchy (JSON or YAML)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&opts.jsonOut, "json", false, "Print JSON instead of tables")

	cmd.AddCommand(
		newFilterCmd(opts),
		newFacetsCmd(opts),
		newStatsCmd(opts),
		newMarkersCmd(opts),
		newValidateCmd(opts),
		newExportTagsCmd(opts),
		newBadgesCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

// setup resolves configuration (file, environment, flags, defaults) and
// builds the logger.
func (o *rootOptions) setup(cmd *cobra.Command, _ []string) error {
	cfg := &config.Config{}
	if o.configPath != "" {
		loaded, err := config.LoadConfig(o.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return err
	}

	if o.projects != "" {
		cfg.Projects = o.projects
	}
	if o.hierarchy != "" {
		cfg.TagHierarchy = o.hierarchy
	}
	if o.verbose {
		cfg.Verbose = true
	}

	merged := cfg.MergeWithDefaults(config.Defaults())
	if err := merged.Validate(); err != nil {
		return err
	}
	o.cfg = merged

	logger, err := newLogger(merged)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.logger = logger
	logger.Debug("configuration resolved",
		zap.String("command", cmd.Name()),
		zap.String("projects", merged.Projects),
		zap.String("tag_hierarchy", merged.TagHierarchy),
	)
	return nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// loadDataset loads the configured project file and optional hierarchy.
func (o *rootOptions) loadDataset() (*portfolio.Dataset, error) {
	if o.cfg.Projects == "" {
		return nil, fmt.Errorf("no project dataset: pass --projects or set PORTFOLIO_PROJECTS")
	}
	ds, err := portfolio.LoadDataset(o.cfg.Projects, o.cfg.TagHierarchy)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	o.logger.Debug("dataset loaded", zap.Int("projects", len(ds.Projects)), zap.Int("tag_roots", len(ds.Hierarchy)))
	return ds, nil
}

func (o *rootOptions) loadCatalog() (*filter.Catalog, error) {
	ds, err := o.loadDataset()
	if err != nil {
		return nil, err
	}
	return filter.NewCatalog(ds.Projects, ds.Hierarchy), nil
}

func (o *rootOptions) printer(cmd *cobra.Command) *observability.Printer {
	return observability.NewPrinter(cmd.OutOrStdout())
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
