package triggers

import (
	"context"
	"sync"

	"starnotify/internal/types"
)

// AfterExposures notifies on every Nth completed light exposure.
type AfterExposures struct {
	id       types.TriggerID
	every    int
	notifier types.Notifier
	deps     Deps

	// Sound and Priority are passed through to the transport.
	Sound    string
	Priority types.Priority

	mu        sync.Mutex
	session   uint64
	lastFired int
}

var _ Trigger = (*AfterExposures)(nil)

// NewAfterExposures creates a trigger firing every n light exposures. n below
// 1 is treated as 1.
func NewAfterExposures(id types.TriggerID, n int, notifier types.Notifier, deps Deps) *AfterExposures {
	if n < 1 {
		n = 1
	}
	return &AfterExposures{id: id, every: n, notifier: notifier, deps: deps.withDefaults()}
}

func (t *AfterExposures) ID() types.TriggerID        { return t.id }
func (t *AfterExposures) Channel() types.ChannelType { return t.notifier.Channel() }

// ShouldTrigger reports whether exp is a multiple of N above the last fired
// count of its session. Exposures from an earlier session never fire.
func (t *AfterExposures) ShouldTrigger(exp types.Exposure) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.observe(exp.Session) {
		return false
	}
	return exp.LightCount > t.lastFired && exp.LightCount > 0 && exp.LightCount%t.every == 0
}

// Execute records exp as fired and sends the latest measurement. The last
// fired count only moves forward, so executions finishing out of order
// cannot re-arm an earlier count.
func (t *AfterExposures) Execute(ctx context.Context, exp types.Exposure) error {
	t.mu.Lock()
	if t.observe(exp.Session) && exp.LightCount > t.lastFired {
		t.lastFired = exp.LightCount
	}
	t.mu.Unlock()

	snap, ok := t.deps.Acquirer.Acquire(ctx, t.deps.MaxWait)
	if !ok {
		snap = nil
	}

	msg := t.deps.Renderer.Render(t.id, types.SourceAfterExposures, snap)
	msg.Sound = t.Sound
	msg.Priority = t.Priority
	t.deps.Logger.InfoContext(ctx, "sending exposure notification",
		"trigger_id", string(t.id), "light_count", exp.LightCount, "channel", string(t.Channel()))

	_, err := t.deps.Dispatcher.Dispatch(ctx, t.notifier, msg)
	return err
}

// observe moves the trigger to session, clearing the last fired count when
// session is newer. It reports false for an earlier session. t.mu must be
// held.
func (t *AfterExposures) observe(session uint64) bool {
	switch {
	case session < t.session:
		return false
	case session > t.session:
		t.session = session
		t.lastFired = 0
	}
	return true
}

// Status reports the trigger's configuration and last fired exposure.
func (t *AfterExposures) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		ID:             t.id,
		Channel:        t.Channel(),
		Mode:           types.SourceAfterExposures,
		AfterExposures: t.every,
		Session:        t.session,
		LastFired:      t.lastFired,
	}
}

// Clone copies the trigger under a new id with no firing history.
func (t *AfterExposures) Clone(id types.TriggerID) *AfterExposures {
	out := NewAfterExposures(id, t.every, t.notifier, t.deps)
	out.Sound = t.Sound
	out.Priority = t.Priority
	return out
}
