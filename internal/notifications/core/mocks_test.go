package core

import (
	"context"
	"sync"
	"time"

	"starnotify/internal/types"
)

// ============ Mock Implementations ============

type logEntry struct {
	level string
	msg   string
	args  []any
}

type mockLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	fields  []any
}

func newMockLogger() *mockLogger {
	return &mockLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l *mockLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, args: append(append([]any{}, l.fields...), args...)})
}

func (l *mockLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }
func (l *mockLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *mockLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *mockLogger) Error(msg string, args ...any) { l.log("error", msg, args) }

func (l *mockLogger) With(args ...any) types.Logger {
	return &mockLogger{mu: l.mu, entries: l.entries, fields: append(append([]any{}, l.fields...), args...)}
}

func (l *mockLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range *l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

type mockNotifier struct {
	channel types.ChannelType
	send    func(ctx context.Context, msg types.Message) error

	mu   sync.Mutex
	sent []types.Message
}

func (n *mockNotifier) Channel() types.ChannelType { return n.channel }

func (n *mockNotifier) Send(ctx context.Context, msg types.Message) error {
	n.mu.Lock()
	n.sent = append(n.sent, msg)
	n.mu.Unlock()
	if n.send != nil {
		return n.send(ctx, msg)
	}
	return nil
}

type mockCanceler struct {
	mu    sync.Mutex
	skips int
}

func (c *mockCanceler) Skip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skips++
}

func (c *mockCanceler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.skips
}

type recordedDelivery struct {
	channel types.ChannelType
	result  MetricResult
}

type mockMetrics struct {
	mu          sync.Mutex
	deliveries  []recordedDelivery
	latencies   int
	evaluations map[types.TriggerID][]bool
}

func (m *mockMetrics) RecordDelivery(_ context.Context, channel types.ChannelType, result MetricResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, recordedDelivery{channel, result})
}

func (m *mockMetrics) RecordLatency(context.Context, types.ChannelType, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies++
}

func (m *mockMetrics) RecordEvaluation(_ context.Context, trigger types.TriggerID, fulfilled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.evaluations == nil {
		m.evaluations = make(map[types.TriggerID][]bool)
	}
	m.evaluations[trigger] = append(m.evaluations[trigger], fulfilled)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
