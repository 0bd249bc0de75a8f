package types

import (
	"context"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// Logger defines the structured logging interface used by the notification
// packages.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// MeasurementSource supplies the newest completed measurement.
type MeasurementSource interface {
	// LatestMeasurement returns the newest snapshot without blocking, or
	// false when nothing has been recorded yet.
	LatestMeasurement() (*Snapshot, bool)

	// RequestInterrupt asks the source to abandon any wait it is serving.
	RequestInterrupt()
}

// Message is a rendered notification handed to a Notifier.
type Message struct {
	TriggerID TriggerID
	Source    TriggerSource
	Title     string
	Body      string
	ImagePath string
	Priority  Priority
	Sound     string
}

// Notifier delivers rendered messages over one transport. Implementations
// log transport detail themselves; callers only observe success or failure.
type Notifier interface {
	Channel() ChannelType
	Send(ctx context.Context, msg Message) error
}
