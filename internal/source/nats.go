package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"starnotify/internal/measurement"
	"starnotify/internal/types"
)

// Sink receives decoded snapshots. *History implements it.
type Sink interface {
	Add(ctx context.Context, snap *types.Snapshot) error
}

// NATSConfig configures a NATSSubscriber.
type NATSConfig struct {
	URL           string
	Subject       string
	ConfigSubject string
	User          string
	Password      string
	Name          string
}

// NATSSubscriber decodes JSON snapshots published by the imaging application
// into a Sink. When ConfigSubject is set, configuration changes published
// there are forwarded to the channel returned by ConfigChanges.
type NATSSubscriber struct {
	cfg    NATSConfig
	sink   Sink
	logger *slog.Logger

	conn    *nats.Conn
	mu      sync.Mutex
	subs    []*nats.Subscription
	changes chan measurement.ConfigChanged
}

// NewNATSSubscriber creates a subscriber. Connect must be called before Start.
func NewNATSSubscriber(cfg NATSConfig, sink Sink, logger *slog.Logger) *NATSSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "starnotify"
	}
	return &NATSSubscriber{
		cfg:     cfg,
		sink:    sink,
		logger:  logger,
		changes: make(chan measurement.ConfigChanged, 16),
	}
}

// Connect dials the server. The connection reconnects indefinitely.
func (s *NATSSubscriber) Connect(extra ...nats.Option) error {
	opts := []nats.Option{
		nats.Name(s.cfg.Name),
		nats.Timeout(10 * time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			s.logger.Error("nats async error", "subject", subject, "error", err)
		}),
	}
	if s.cfg.User != "" {
		opts = append(opts, nats.UserInfo(s.cfg.User, s.cfg.Password))
	}
	opts = append(opts, extra...)

	nc, err := nats.Connect(s.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	s.conn = nc
	return nil
}

// Start subscribes to the configured subjects. Handlers run under ctx.
func (s *NATSSubscriber) Start(ctx context.Context) error {
	if s.conn == nil {
		return errors.New("nats subscriber is not connected")
	}

	sub, err := s.conn.Subscribe(s.cfg.Subject, func(msg *nats.Msg) { s.handleMeasurement(ctx, msg) })
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.cfg.Subject, err)
	}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	if s.cfg.ConfigSubject != "" {
		csub, err := s.conn.Subscribe(s.cfg.ConfigSubject, func(msg *nats.Msg) { s.handleConfig(ctx, msg) })
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", s.cfg.ConfigSubject, err)
		}
		s.mu.Lock()
		s.subs = append(s.subs, csub)
		s.mu.Unlock()
	}

	s.logger.InfoContext(ctx, "nats subscriber started",
		"subject", s.cfg.Subject, "config_subject", s.cfg.ConfigSubject)
	return nil
}

// ConfigChanges returns the feed of configuration changes received.
func (s *NATSSubscriber) ConfigChanges() <-chan measurement.ConfigChanged {
	return s.changes
}

func (s *NATSSubscriber) handleMeasurement(ctx context.Context, msg *nats.Msg) {
	var snap types.Snapshot
	if err := json.Unmarshal(msg.Data, &snap); err != nil {
		s.logger.WarnContext(ctx, "discarding undecodable measurement", "subject", msg.Subject, "error", err)
		return
	}
	if err := s.sink.Add(ctx, &snap); err != nil {
		s.logger.WarnContext(ctx, "measurement rejected", "subject", msg.Subject, "error", err)
	}
}

type configMessage struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *NATSSubscriber) handleConfig(ctx context.Context, msg *nats.Msg) {
	var cm configMessage
	if err := json.Unmarshal(msg.Data, &cm); err != nil || cm.Key == "" {
		s.logger.WarnContext(ctx, "discarding invalid configuration change", "subject", msg.Subject, "error", err)
		return
	}
	select {
	case s.changes <- measurement.ConfigChanged{Key: cm.Key, Value: cm.Value}:
	case <-ctx.Done():
	}
}

// Name identifies the subscriber in health reports.
func (s *NATSSubscriber) Name() string { return "nats" }

// Check reports whether the connection is up.
func (s *NATSSubscriber) Check(context.Context) error {
	if s.conn == nil || !s.conn.IsConnected() {
		return errors.New("nats connection is down")
	}
	return nil
}

// Stop unsubscribes and drains the connection.
func (s *NATSSubscriber) Stop() error {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	if s.conn != nil {
		if err := s.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
