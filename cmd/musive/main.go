package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deusflow/musive/internal/api"
	"github.com/deusflow/musive/internal/app"
	"github.com/deusflow/musive/internal/config"
	"github.com/deusflow/musive/internal/logger"
	"github.com/deusflow/musive/internal/scheduler"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg == nil {
		return
	}

	log := logger.Init(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("musive stopped", "err", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	application, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()

	runner := application.Runner

	switch {
	case cfg.DryRun:
		d, err := runner.Preview(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(d)

	case cfg.Once:
		d, err := runner.RunAndDeliver(ctx)
		log.Info("run finished", "run_id", d.RunID, "count", len(d.Items), "collected", d.Collected, "removed", d.Removed)
		return err
	}

	return serve(ctx, cfg, application, log)
}

func serve(ctx context.Context, cfg *config.Config, application *app.App, log *slog.Logger) error {
	runner := application.Runner

	sched := scheduler.New(cfg.Schedule, application.Location, log)
	err := sched.Add(ctx, func(ctx context.Context) error {
		_, err := runner.RunAndDeliver(ctx)
		if errors.Is(err, app.ErrRunInProgress) {
			log.Warn("cron skipped: a run is already in progress")
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	sched.Start()

	deps := api.Deps{Runner: runner, Stats: application.Budget}
	if application.History != nil {
		deps.History = application.History
	}
	srv := api.NewServer(api.NewHandler(deps, log), cfg.HTTPPort)
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
		log.Error("http server error", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sched.Stop(shutdownCtx)
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("http shutdown failed", "err", shutdownErr)
	}
	return err
}
