// Package main implements the send-test CLI tool, which delivers the test
// message through the configured channels.
//
// Usage:
//
//	go run ./cmd/tools/send-test --channel=pushover
//	go run ./cmd/tools/send-test --channel=all --timeout=20s
//
// Channels are configured from the same environment as the service
// (PUSHOVER_*, NTFY_*, SMTP_*, EMAIL_*); a .env file is honored.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"starnotify/internal/config"
	"starnotify/internal/notifications"
	"starnotify/internal/notifications/core"
	"starnotify/internal/types"
)

func main() {
	channel := flag.String("channel", "all", "Channel to test: pushover, ntfy, email or all")
	timeout := flag.Duration("timeout", core.DefaultDispatchTimeout, "Per-send timeout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	typed := &slogAdapter{logger: logger}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	notifiers, err := notifications.FromConfig(cfg, typed)
	if err != nil {
		logger.Error("failed to build channels", "error", err)
		os.Exit(1)
	}

	targets, err := selectChannels(notifiers, *channel)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dispatcher := core.NewDispatcher(typed, core.WithTimeout(*timeout))
	failed := 0
	for _, ch := range targets {
		start := time.Now()
		sent, err := dispatcher.Dispatch(ctx, notifiers[ch], core.TestMessage())
		switch {
		case err != nil:
			fmt.Printf("  %-8s ERROR  %v\n", ch, err)
			failed++
		case !sent:
			fmt.Printf("  %-8s FAILED (see log)\n", ch)
			failed++
		default:
			fmt.Printf("  %-8s sent   %s\n", ch, time.Since(start).Round(time.Millisecond))
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// selectChannels resolves the --channel flag against the configured channels.
func selectChannels(notifiers map[types.ChannelType]types.Notifier, want string) ([]types.ChannelType, error) {
	if want != "all" {
		ch := types.ChannelType(want)
		if _, ok := notifiers[ch]; !ok {
			return nil, fmt.Errorf("channel %q is not configured", want)
		}
		return []types.ChannelType{ch}, nil
	}

	out := make([]types.ChannelType, 0, len(notifiers))
	for ch := range notifiers {
		out = append(out, ch)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no channels are configured")
	}
	slices.Sort(out)
	return out, nil
}

// slogAdapter wraps *slog.Logger to implement types.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}
