package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/portfolio-engine/internal/filter"
	"github.com/jonathan/portfolio-engine/internal/server"
	"github.com/jonathan/portfolio-engine/internal/server/ratelimit"
	"github.com/jonathan/portfolio-engine/internal/store"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port  int
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start an HTTP server exposing the filter engine over the loaded dataset and
per-visitor achievement sessions.

Badge state is kept in SQLite when db_path is configured, in PostgreSQL when
database_url is configured, and in memory otherwise. With --watch the dataset
is reloaded when its files change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				opts.cfg.Port = port
			}
			if cmd.Flags().Changed("watch") {
				opts.cfg.Watch = watch
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the dataset when its files change")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions) error {
	catalog, err := opts.loadCatalog()
	if err != nil {
		return err
	}

	badgeStore, closeStore, err := openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer closeStore()

	rl, err := ratelimit.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load rate limit config: %w", err)
	}

	srv := server.New(catalog, serverConfig(opts, badgeStore, rl))
	return srv.Run(ctx)
}

func serverConfig(opts *rootOptions, badgeStore store.Store, rl *ratelimit.Config) server.Config {
	cfg := server.Config{
		Port:      opts.cfg.Port,
		Logger:    opts.logger,
		RateLimit: rl,
		Sessions: server.SessionConfig{
			Store:        badgeStore,
			DismissDelay: opts.cfg.DismissDelay.Std(),
			TTL:          opts.cfg.SessionTTL.Std(),
			MaxSessions:  opts.cfg.MaxSessions,
		},
	}

	if opts.cfg.Watch {
		cfg.Reload = func() (*filter.Catalog, error) {
			return opts.loadCatalog()
		}
		cfg.WatchPaths = []string{opts.cfg.Projects}
		if opts.cfg.TagHierarchy != "" {
			cfg.WatchPaths = append(cfg.WatchPaths, opts.cfg.TagHierarchy)
		}
	}
	return cfg
}

// openStore picks the badge store from configuration. The returned func
// releases it.
func openStore(ctx context.Context, opts *rootOptions) (store.Store, func(), error) {
	switch {
	case opts.cfg.DBPath != "":
		s, err := store.NewSQLiteStore(opts.cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open badge database: %w", err)
		}
		opts.logger.Info("badge store", zap.String("backend", "sqlite"), zap.String("path", opts.cfg.DBPath))
		return s, func() { _ = s.Close() }, nil

	case opts.cfg.DatabaseURL != "":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		s, err := store.ConnectPostgres(connectCtx, opts.cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to badge database: %w", err)
		}
		opts.logger.Info("badge store", zap.String("backend", "postgres"))
		return s, s.Close, nil

	default:
		opts.logger.Info("badge store", zap.String("backend", "memory"))
		return store.NewMemoryStore(), func() {}, nil
	}
}
