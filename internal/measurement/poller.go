package measurement

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"starnotify/internal/types"
)

const (
	// DefaultPollInterval is the delay between source queries.
	DefaultPollInterval = 150 * time.Millisecond

	// DefaultMaxWait bounds a single Acquire.
	DefaultMaxWait = 15 * time.Second
)

// Poller waits, within a bound, for the source to expose a completed
// measurement. At most one poll loop runs at a time; callers that arrive
// while a loop is in flight wait for it and share its result.
type Poller struct {
	source   types.MeasurementSource
	interval time.Duration
	logger   *slog.Logger

	group singleflight.Group
	skip  atomic.Bool
	wake  chan struct{}
}

// NewPoller creates a Poller over source. A non-positive interval selects
// DefaultPollInterval.
func NewPoller(source types.MeasurementSource, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:   source,
		interval: interval,
		logger:   logger,
		wake:     make(chan struct{}, 1),
	}
}

// Acquire returns the newest completed snapshot, or false when none became
// available within maxWait, a skip was requested, or ctx ended. Absence is a
// normal outcome. The shared loop ignores the starting caller's cancellation
// and ends only on its own deadline or a Skip, so callers that joined it are
// not cut short.
func (p *Poller) Acquire(ctx context.Context, maxWait time.Duration) (*types.Snapshot, bool) {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	loopCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan("latest", func() (any, error) {
		return p.poll(loopCtx, maxWait), nil
	})

	select {
	case res := <-ch:
		snap, _ := res.Val.(*types.Snapshot)
		return snap, snap != nil
	case <-ctx.Done():
		return nil, false
	}
}

// Skip aborts the in-flight loop, or the next one if none is running, and
// asks the source to drop any wait it is serving.
func (p *Poller) Skip() {
	p.skip.Store(true)
	select {
	case p.wake <- struct{}{}:
	default:
	}
	p.source.RequestInterrupt()
}

func (p *Poller) poll(ctx context.Context, maxWait time.Duration) *types.Snapshot {
	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()
	tick := time.NewTicker(p.interval)
	defer tick.Stop()

	for {
		if p.skip.CompareAndSwap(true, false) {
			select {
			case <-p.wake:
			default:
			}
			p.logger.DebugContext(ctx, "measurement poll skipped")
			return nil
		}

		if snap, ok := p.source.LatestMeasurement(); ok && snap.Complete() {
			return snap
		}

		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			p.logger.InfoContext(ctx, "no completed measurement available", "max_wait", maxWait)
			return nil
		case <-p.wake:
		case <-tick.C:
		}
	}
}
