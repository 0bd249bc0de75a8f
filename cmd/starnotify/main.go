// Package main is the entry point for the starnotify service.
//
// It loads configuration, builds the measurement catalog, notification
// channels and triggers, then runs the trigger runner, the optional NATS
// measurement feed and the HTTP API until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"starnotify/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.SlogLevel())
	slog.SetDefault(logger)
	logger.Info("starnotify starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runner.Run(gctx, a.exposures)
	})
	if a.feed != nil {
		g.Go(func() error {
			if err := a.feed.Start(gctx); err != nil {
				return fmt.Errorf("starting measurement feed: %w", err)
			}
			a.registry.Subscribe(gctx, a.feed.ConfigChanges())
			return nil
		})
	}
	g.Go(func() error {
		return a.server.ListenAndServe(gctx, ":"+cfg.Server.Port, cfg.Server.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("starnotify stopped")
	return nil
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
