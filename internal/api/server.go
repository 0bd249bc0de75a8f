// Package api exposes the notification service over HTTP: measurement ingest,
// property toggles, trigger status, delivery history, channel tests, health
// and metrics. Routing uses chi.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"starnotify/internal/measurement"
	"starnotify/internal/notifications/core"
	"starnotify/internal/triggers"
	"starnotify/internal/types"
)

// MetricsCollector records API request telemetry.
type MetricsCollector interface {
	RecordRequest(method, route, status string, duration time.Duration)
}

// Ingestor accepts measurements and tracks the session. *source.History
// implements it.
type Ingestor interface {
	Add(ctx context.Context, snap *types.Snapshot) error
	LightCount() int
	Recent(limit int) []*types.Snapshot
	Reset()
}

// TriggerLister returns the configured triggers. *scheduler.Runner
// implements it.
type TriggerLister interface {
	Triggers() []triggers.Trigger
}

// Sender dispatches one message through a notifier. *core.Dispatcher
// implements it.
type Sender interface {
	Dispatch(ctx context.Context, n types.Notifier, msg types.Message) (bool, error)
}

// Measurements waits a bounded time for a complete measurement.
// *measurement.Poller implements it.
type Measurements interface {
	Acquire(ctx context.Context, maxWait time.Duration) (*types.Snapshot, bool)
}

// Server holds the API's dependencies.
type Server struct {
	Registry     *measurement.Registry
	Ingestor     Ingestor
	Triggers     TriggerLister
	Deliveries   core.DeliveryLog
	Notifiers    map[types.ChannelType]types.Notifier
	Sender       Sender
	Logger       *slog.Logger
	Metrics      MetricsCollector
	HealthProbes []HealthProbe

	// Measurements and Renderer back POST /v1/channels/{channel}/send.
	// MaxWait bounds the wait for a measurement; zero leaves the default to
	// Measurements.
	Measurements Measurements
	Renderer     *core.Renderer
	MaxWait      time.Duration

	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler

	// RequestTimeout bounds each request. Zero selects defaultRequestTimeout.
	RequestTimeout time.Duration

	router *chi.Mux
}

// NewServer validates the required dependencies. Routes are mounted by
// MountRoutes.
func NewServer(s Server) (*Server, error) {
	if s.Registry == nil {
		return nil, errors.New("registry must not be nil")
	}
	if s.Ingestor == nil {
		return nil, errors.New("ingestor must not be nil")
	}
	if s.Logger == nil {
		return nil, errors.New("logger must not be nil")
	}
	if s.Notifiers == nil {
		s.Notifiers = map[types.ChannelType]types.Notifier{}
	}
	s.router = chi.NewRouter()
	return &s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down within
// shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.Logger.Info("server shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.Logger.Info("server shutdown complete")
	return nil
}
