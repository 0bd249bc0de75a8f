// Package source receives measurements from the imaging application and
// exposes the latest one to the notification core.
package source

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"

	"starnotify/internal/types"
)

// DefaultHistorySize is how many snapshots History keeps.
const DefaultHistorySize = 100

var validate = validator.New(validator.WithRequiredStructEnabled())

// History is an in-memory record of the session's measurements. It
// implements types.MeasurementSource.
type History struct {
	capacity int
	logger   *slog.Logger

	mu        sync.RWMutex
	items     []*types.Snapshot
	session   uint64
	lights    int
	lastLight *types.Snapshot
	subs      []chan types.Exposure

	interrupts atomic.Int64
}

var _ types.MeasurementSource = (*History)(nil)

// NewHistory creates a History keeping at most capacity snapshots.
func NewHistory(capacity int, logger *slog.Logger) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &History{capacity: capacity, logger: logger}
}

// Add records a snapshot. Light frames advance the light count and are
// announced to subscribers.
func (h *History) Add(ctx context.Context, snap *types.Snapshot) error {
	if snap == nil {
		return types.NewAppError(types.ErrCodeValidationInvalidSnapshot, "measurement is empty", nil)
	}
	if err := validate.Struct(snap); err != nil {
		var verrs validator.ValidationErrors
		fields := []string{}
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
		}
		return types.NewAppError(types.ErrCodeValidationInvalidSnapshot, "measurement is incomplete", err).
			WithDetails(map[string]any{"fields": fields})
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.items = append(h.items, snap)
	if len(h.items) > h.capacity {
		h.items = h.items[len(h.items)-h.capacity:]
	}
	light := snap.IsLight()
	h.logger.DebugContext(ctx, "measurement recorded",
		"path", snap.Path, "image_type", snap.ImageType, "light", light)
	if !light {
		return nil
	}

	h.lights++
	h.lastLight = snap
	exp := types.Exposure{Session: h.session, LightCount: h.lights, Snapshot: snap}
	for _, ch := range h.subs {
		select {
		case ch <- exp:
		default:
			h.logger.WarnContext(ctx, "exposure subscriber is behind, dropping event", "light_count", exp.LightCount)
		}
	}
	return nil
}

// LatestMeasurement returns the most recent light frame.
func (h *History) LatestMeasurement() (*types.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastLight, h.lastLight != nil
}

// RequestInterrupt records that a consumer gave up waiting. History never
// blocks, so there is nothing to release.
func (h *History) RequestInterrupt() {
	n := h.interrupts.Add(1)
	h.logger.Debug("measurement wait interrupted", "interrupts", n)
}

// Interrupts returns how many times RequestInterrupt was called.
func (h *History) Interrupts() int64 {
	return h.interrupts.Load()
}

// LightCount returns the number of light frames in the current session.
func (h *History) LightCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lights
}

// Recent returns up to limit snapshots, newest first. A non-positive limit
// returns everything kept.
func (h *History) Recent(limit int) []*types.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if limit <= 0 || limit > len(h.items) {
		limit = len(h.items)
	}
	out := make([]*types.Snapshot, 0, limit)
	for i := len(h.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.items[i])
	}
	return out
}

// Session returns the current session number.
func (h *History) Session() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.session
}

// Reset starts a new session. Exposures announced afterwards carry the next
// session number.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session++
	h.items = nil
	h.lights = 0
	h.lastLight = nil
}

// Subscribe returns a channel announcing light exposures. Events are dropped
// when the channel's buffer is full.
func (h *History) Subscribe(buffer int) <-chan types.Exposure {
	ch := make(chan types.Exposure, buffer)
	h.mu.Lock()
	h.subs = append(h.subs, ch)
	h.mu.Unlock()
	return ch
}

// Close closes every subscription channel. Add must not be called afterwards.
func (h *History) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		close(ch)
	}
	h.subs = nil
}
