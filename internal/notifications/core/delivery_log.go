package core

import (
	"context"
	"sync"
)

// MemoryDeliveryLog keeps the most recent attempts in a fixed-size ring.
type MemoryDeliveryLog struct {
	mu    sync.Mutex
	ring  []DeliveryRecord
	next  int
	count int
}

var _ DeliveryLog = (*MemoryDeliveryLog)(nil)

// NewMemoryDeliveryLog returns a log holding up to capacity records.
func NewMemoryDeliveryLog(capacity int) *MemoryDeliveryLog {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryDeliveryLog{ring: make([]DeliveryRecord, capacity)}
}

// Record stores rec, evicting the oldest record when full.
func (l *MemoryDeliveryLog) Record(_ context.Context, rec DeliveryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring[l.next] = rec
	l.next = (l.next + 1) % len(l.ring)
	if l.count < len(l.ring) {
		l.count++
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (l *MemoryDeliveryLog) Recent(_ context.Context, limit int) ([]DeliveryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > l.count {
		limit = l.count
	}
	out := make([]DeliveryRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.next - i + len(l.ring)) % len(l.ring)
		out = append(out, l.ring[idx])
	}
	return out, nil
}
