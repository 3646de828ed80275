// app.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/subcommands"

	"github.com/gewnthar/samsync/config"
	"github.com/gewnthar/samsync/database"
	"github.com/gewnthar/samsync/geo"
	"github.com/gewnthar/samsync/logging"
	"github.com/gewnthar/samsync/scraper"
	"github.com/gewnthar/samsync/services"
)

// register adds every subcommand to c.
func register(c *subcommands.Commander) {
	c.Register(&bootstrapCmd{}, "sync")
	c.Register(&updateCmd{}, "sync")

	c.Register(&statsCmd{}, "inspect")
	c.Register(&resolveCmd{}, "inspect")

	c.Register(&serveCmd{}, "server")
}

// The CLI lives for one command, so the global flags stay package level.
var configPath = flag.String("config", "", "Path to the YAML config file (default: config.yaml, config/config.yaml, /etc/samsync/config.yaml)")

// app holds what a subcommand needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	store  *database.Store
	logger *slog.Logger
}

// openApp loads configuration, sets up logging and opens and migrates the store.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger := slog.Default()

	store, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return &app{cfg: cfg, store: store, logger: logger}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close database", "error", err)
	}
}

func (a *app) syncService() *services.SyncService {
	fetcher := scraper.NewDownloader(a.cfg.Fetch, a.logger)
	return services.NewSyncService(a.cfg, a.store, fetcher, geo.NewResolver(a.logger), a.logger)
}

// withApp runs fn with an opened app and turns its error into an exit status.
func withApp(ctx context.Context, fn func(a *app) subcommands.ExitStatus) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()
	return fn(a)
}
