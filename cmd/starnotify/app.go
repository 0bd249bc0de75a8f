package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"starnotify/internal/api"
	"starnotify/internal/conditions"
	"starnotify/internal/config"
	"starnotify/internal/db"
	"starnotify/internal/measurement"
	"starnotify/internal/notifications"
	"starnotify/internal/notifications/core"
	"starnotify/internal/scheduler"
	"starnotify/internal/source"
	"starnotify/internal/triggers"
	"starnotify/internal/types"
)

const exposureBuffer = 16

// app holds the wired service components.
type app struct {
	registry  *measurement.Registry
	history   *source.History
	runner    *scheduler.Runner
	exposures <-chan types.Exposure
	feed      *source.NATSSubscriber
	server    *api.Server

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()
	typed := &slogAdapter{logger: logger}

	a.registry = measurement.NewRegistry(logger)
	if err := measurement.RegisterDefaults(a.registry, cfg.Properties.Disabled); err != nil {
		return nil, fmt.Errorf("registering properties: %w", err)
	}

	a.history = source.NewHistory(cfg.Poller.HistorySize, logger)
	a.closers = append(a.closers, a.history.Close)
	a.exposures = a.history.Subscribe(exposureBuffer)
	poller := measurement.NewPoller(a.history, cfg.Poller.Interval, logger)

	metrics, metricsHandler, requestMetrics, err := newMetrics(ctx, cfg.Metrics, typed)
	if err != nil {
		return nil, err
	}

	var probes []api.HealthProbe
	deliveries, probe, closeDB, err := newDeliveryLog(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if closeDB != nil {
		a.closers = append(a.closers, closeDB)
	}
	if probe != nil {
		probes = append(probes, probe)
	}

	notifiers, err := notifications.FromConfig(cfg, typed)
	if err != nil {
		return nil, err
	}

	renderer := core.NewRenderer(a.registry, cfg.Properties.AttachImage)
	dispatcher := core.NewDispatcher(typed,
		core.WithTimeout(cfg.Dispatch.Timeout),
		core.WithCanceler(poller),
		core.WithMetrics(metrics),
		core.WithDeliveryLog(deliveries),
	)

	defs, err := triggers.ParseDefinitions([]byte(cfg.TriggersJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing trigger definitions: %w", err)
	}
	ts, err := triggers.Build(defs, notifiers, a.registry, triggers.Deps{
		Acquirer:   poller,
		MaxWait:    cfg.Poller.MaxWait,
		Evaluator:  conditions.NewEvaluator(a.registry, logger),
		Renderer:   renderer,
		Dispatcher: dispatcher,
		Suppressor: core.NewDuplicateSuppressor(),
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building triggers: %w", err)
	}
	a.runner = scheduler.NewRunner(scheduler.RunnerConfig{Triggers: ts, Logger: logger})
	logger.Info("triggers configured", "count", len(ts), "channels", len(notifiers))

	if cfg.NATS.URL != "" {
		a.feed = source.NewNATSSubscriber(source.NATSConfig{
			URL:           cfg.NATS.URL,
			Subject:       cfg.NATS.Subject,
			ConfigSubject: cfg.NATS.ConfigSubject,
			User:          cfg.NATS.User,
			Password:      cfg.NATS.Password.Unmask(),
			Name:          cfg.Service,
		}, a.history, logger)
		if err := a.feed.Connect(); err != nil {
			return nil, fmt.Errorf("connecting to nats: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := a.feed.Stop(); err != nil {
				logger.Warn("nats shutdown error", "error", err)
			}
		})
		probes = append(probes, a.feed)
	}

	srv, err := api.NewServer(api.Server{
		Registry:       a.registry,
		Ingestor:       a.history,
		Triggers:       a.runner,
		Deliveries:     deliveries,
		Notifiers:      notifiers,
		Sender:         dispatcher,
		Measurements:   poller,
		Renderer:       renderer,
		MaxWait:        cfg.Poller.MaxWait,
		Logger:         logger,
		Metrics:        requestMetrics,
		HealthProbes:   probes,
		MetricsHandler: metricsHandler,
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.MountRoutes()
	a.server = srv

	ok = true
	return a, nil
}

// newMetrics selects the telemetry backend. The Prometheus backend also
// returns the /metrics handler and API request metrics.
func newMetrics(ctx context.Context, cfg config.MetricsConfig, logger types.Logger) (core.NotificationMetrics, http.Handler, api.MetricsCollector, error) {
	switch cfg.Backend {
	case config.MetricsPrometheus:
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
		return core.NewPrometheusNotificationMetrics(reg), handler, api.NewPrometheusRequestMetrics(reg), nil

	case config.MetricsCloudWatch:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loading aws config: %w", err)
		}
		client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
			}
		})
		return core.NewCloudWatchNotificationMetrics(client, cfg.Namespace, logger), nil, nil, nil

	default:
		return core.NoopMetrics{}, nil, nil, nil
	}
}

// newDeliveryLog returns the PostgreSQL delivery log when a database is
// configured, otherwise an in-memory ring.
func newDeliveryLog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (core.DeliveryLog, api.HealthProbe, func(), error) {
	if cfg.Database.URL.Empty() {
		logger.Info("no database configured, keeping deliveries in memory", "capacity", cfg.Dispatch.DeliveryLogSize)
		return core.NewMemoryDeliveryLog(cfg.Dispatch.DeliveryLogSize), nil, nil, nil
	}

	pool, err := db.Connect(ctx, cfg.Database.URL.Unmask(), db.PoolOptions{
		MaxConns:          cfg.Database.MaxConns,
		MinConns:          cfg.Database.MinConns,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	repo := db.NewDeliveryRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	return repo, db.HealthProbe{DB: pool}, pool.Close, nil
}
