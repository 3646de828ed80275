// cmd_serve.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/google/subcommands"

	"github.com/gewnthar/samsync/handlers"
	"github.com/gewnthar/samsync/services"
)

type serveCmd struct {
	port     string
	readOnly bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the query API and run scheduled updates" }
func (*serveCmd) Usage() string {
	return `samsync serve [-port <port>] [-read-only]

  Serves /api/opportunities, /api/stats and the admin endpoints. When
  server.update_interval is set, an incremental update of every region runs
  on that interval.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.port, "port", "", "Port to listen on (default: server.port)")
	f.BoolVar(&c.readOnly, "read-only", false, "Disable the sync endpoint and the scheduler")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, func(a *app) subcommands.ExitStatus {
		port := a.cfg.Server.Port
		if c.port != "" {
			port = c.port
		}

		var syncer handlers.Syncer
		stopScheduler := func() {}
		if !c.readOnly {
			svc := a.syncService()
			syncer = svc
			stopScheduler = startScheduler(ctx, svc, a.cfg.Server.UpdateInterval)
		}
		// The store closes when this returns; a scheduled run must not outlive it.
		defer stopScheduler()

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           handlers.NewRouter(handlers.NewHandler(a.store, syncer)),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("server starting", "addr", srv.Addr, "read_only", c.readOnly)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("server failed", "error", err)
				return subcommands.ExitFailure
			}
		case <-ctx.Done():
			a.logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("server shutdown failed", "error", err)
				return subcommands.ExitFailure
			}
		}
		return subcommands.ExitSuccess
	})
}

type updateScheduler interface {
	StartUpdateScheduler(ctx context.Context, interval time.Duration, req services.IncrementalRequest)
}

// startScheduler runs the update scheduler in the background. The returned stop cancels it and waits for
// any run in progress to finish.
func startScheduler(ctx context.Context, s updateScheduler, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.StartUpdateScheduler(ctx, interval, services.IncrementalRequest{})
	}()
	return func() {
		cancel()
		<-done
	}
}
