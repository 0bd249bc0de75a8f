// Package scheduler drives triggers from the stream of completed exposures.
//
// Every light exposure is offered to every trigger. Triggers that want to fire
// execute concurrently; a trigger still executing from an earlier exposure is
// skipped rather than queued, since the next exposure re-evaluates anyway.
// Exposures carry their session number, so a trigger handed exposures out of
// order can tell a stale count from the start of a new session.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"starnotify/internal/triggers"
	"starnotify/internal/types"
)

// Runner offers exposures to a fixed set of triggers.
type Runner struct {
	triggers []triggers.Trigger
	logger   *slog.Logger

	mu      sync.Mutex
	running map[types.TriggerID]bool
}

// RunnerConfig holds the configuration for creating a Runner.
type RunnerConfig struct {
	Triggers []triggers.Trigger
	Logger   *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		triggers: cfg.Triggers,
		logger:   logger,
		running:  make(map[types.TriggerID]bool),
	}
}

// Triggers returns the runner's triggers.
func (r *Runner) Triggers() []triggers.Trigger {
	return r.triggers
}

// OnExposure executes every trigger whose ShouldTrigger accepts exp and waits
// for them. Errors from all executions are joined; evaluation problems
// never reach here, so these are dispatch timeouts and cancellations.
func (r *Runner) OnExposure(ctx context.Context, exp types.Exposure) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)

	for _, t := range r.triggers {
		if !t.ShouldTrigger(exp) {
			continue
		}
		if !r.acquire(t.ID()) {
			r.logger.WarnContext(ctx, "trigger still executing, skipping exposure",
				"trigger_id", string(t.ID()), "light_count", exp.LightCount)
			continue
		}

		g.Go(func() error {
			defer r.release(t.ID())
			if err := t.Execute(ctx, exp); err != nil {
				r.logger.ErrorContext(ctx, "trigger execution failed",
					"trigger_id", string(t.ID()),
					"channel", string(t.Channel()),
					"session", exp.Session,
					"light_count", exp.LightCount,
					"error", err,
				)
				mu.Lock()
				errs = append(errs, fmt.Errorf("trigger %s: %w", t.ID(), err))
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}

// Run consumes exposures until ctx is done or the channel is closed. Only
// light frames are offered to triggers. Exposures are handled without waiting
// for earlier ones to finish; Run returns after in-flight handling completes.
func (r *Runner) Run(ctx context.Context, exposures <-chan types.Exposure) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	r.logger.InfoContext(ctx, "trigger runner started", "triggers", len(r.triggers))
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "trigger runner stopped")
			return ctx.Err()
		case exp, ok := <-exposures:
			if !ok {
				r.logger.InfoContext(ctx, "exposure stream closed")
				return nil
			}
			if !exp.Snapshot.IsLight() {
				continue
			}
			wg.Go(func() {
				// Failures are logged per trigger; the next exposure re-evaluates.
				_ = r.OnExposure(ctx, exp)
			})
		}
	}
}

func (r *Runner) acquire(id types.TriggerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running[id] {
		return false
	}
	r.running[id] = true
	return true
}

func (r *Runner) release(id types.TriggerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, id)
}
