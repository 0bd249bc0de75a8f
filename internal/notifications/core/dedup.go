package core

import (
	"sync"
	"time"

	"starnotify/internal/types"
)

// DuplicateSuppressor remembers, per trigger, the timestamp of the last
// measurement a notification was sent for.
type DuplicateSuppressor struct {
	mu   sync.Mutex
	last map[types.TriggerID]time.Time
}

// NewDuplicateSuppressor returns an empty suppressor.
func NewDuplicateSuppressor() *DuplicateSuppressor {
	return &DuplicateSuppressor{last: make(map[types.TriggerID]time.Time)}
}

// ShouldSkip reports whether ts was already acted on by id, that is, whether
// it is not strictly newer than the stored timestamp. With commit set, a
// non-duplicate ts becomes the stored timestamp; without it the call only
// peeks. A zero ts is never a duplicate and is never stored.
func (d *DuplicateSuppressor) ShouldSkip(id types.TriggerID, ts time.Time, commit bool) bool {
	if ts.IsZero() {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	prev, seen := d.last[id]
	if seen && !ts.After(prev) {
		return true
	}
	if commit {
		d.last[id] = ts
	}
	return false
}

// Last returns the stored timestamp for id.
func (d *DuplicateSuppressor) Last(id types.TriggerID) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ts, ok := d.last[id]
	return ts, ok
}
