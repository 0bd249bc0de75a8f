// Package config defines the process configuration for starnotify.
// Configuration is loaded once at startup and is immutable thereafter.
//
// Values are resolved in priority order:
//
//	OS Environment (Highest) -> Dotenv File -> Struct defaults (Lowest)
//
// A missing required value or an invalid format fails startup.
package config

import (
	"log/slog"
	"strings"
	"time"

	"starnotify/internal/types"
)

// SecretString is an alias for types.SecretString so that credentials never
// appear in logs.
type SecretString = types.SecretString

// Config is the top-level configuration. Sub-components receive only the
// section they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"oneof=local dev prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"starnotify"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server     ServerConfig
	Poller     PollerConfig
	Dispatch   DispatchConfig
	Properties PropertiesConfig
	Pushover   PushoverConfig
	Ntfy       NtfyConfig
	Email      EmailConfig
	NATS       NATSConfig
	Database   DatabaseConfig
	Metrics    MetricsConfig

	// TriggersJSON holds the trigger definitions, see triggers.ParseDefinitions.
	TriggersJSON string `envconfig:"TRIGGERS_JSON" validate:"omitempty,json"`

	// Injected via ldflags, not env.
	Build BuildInfo
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
}

// PollerConfig tunes measurement acquisition and the in-process history.
type PollerConfig struct {
	Interval    time.Duration `envconfig:"POLL_INTERVAL" default:"150ms" validate:"gt=0"`
	MaxWait     time.Duration `envconfig:"POLL_MAX_WAIT" default:"15s" validate:"gt=0"`
	HistorySize int           `envconfig:"HISTORY_SIZE" default:"100" validate:"min=1"`
}

// DispatchConfig bounds notification sends.
type DispatchConfig struct {
	Timeout         time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"40s" validate:"gt=0"`
	DeliveryLogSize int           `envconfig:"DELIVERY_LOG_SIZE" default:"200" validate:"min=1"`
}

// PropertiesConfig seeds the measurement catalog.
type PropertiesConfig struct {
	Disabled    []string `envconfig:"DISABLED_PROPERTIES"`
	AttachImage bool     `envconfig:"ATTACH_IMAGE" default:"true"`
}

// PushoverConfig holds the Pushover application credentials. The channel is
// enabled when both Token and User are set.
type PushoverConfig struct {
	APIURL   string       `envconfig:"PUSHOVER_API_URL" default:"https://api.pushover.net/1/messages.json" validate:"url"`
	Token    SecretString `envconfig:"PUSHOVER_TOKEN" validate:"required_with=User"`
	User     SecretString `envconfig:"PUSHOVER_USER" validate:"required_with=Token"`
	Sound    string       `envconfig:"PUSHOVER_SOUND" default:"pushover"`
	Priority string       `envconfig:"PUSHOVER_PRIORITY" default:"normal" validate:"oneof=lowest low normal high highest"`
}

func (c PushoverConfig) Enabled() bool { return !c.Token.Empty() && !c.User.Empty() }

// NtfyConfig holds the ntfy topic settings. The channel is enabled when a
// topic is set.
type NtfyConfig struct {
	Server   string       `envconfig:"NTFY_SERVER" default:"https://ntfy.sh" validate:"url"`
	Topic    string       `envconfig:"NTFY_TOPIC"`
	Token    SecretString `envconfig:"NTFY_TOKEN"`
	Username SecretString `envconfig:"NTFY_USERNAME"`
	Password SecretString `envconfig:"NTFY_PASSWORD" validate:"required_with=Username"`
	Priority string       `envconfig:"NTFY_PRIORITY" default:"normal" validate:"oneof=lowest low normal high highest"`
}

func (c NtfyConfig) Enabled() bool { return c.Topic != "" }

// EmailConfig holds the SMTP settings. The channel is enabled when a host is
// set.
type EmailConfig struct {
	Host     string        `envconfig:"SMTP_HOST"`
	Port     int           `envconfig:"SMTP_PORT" default:"587" validate:"min=1,max=65535"`
	Username SecretString  `envconfig:"SMTP_USERNAME"`
	Password SecretString  `envconfig:"SMTP_PASSWORD"`
	From     string        `envconfig:"EMAIL_FROM" validate:"required_with=Host,omitempty,email"`
	To       []string      `envconfig:"EMAIL_TO" validate:"required_with=Host,dive,email"`
	Subject  string        `envconfig:"EMAIL_SUBJECT" default:"N.I.N.A."`
	Timeout  time.Duration `envconfig:"EMAIL_TIMEOUT" default:"45s" validate:"gt=0"`
}

func (c EmailConfig) Enabled() bool { return c.Host != "" }

// NATSConfig configures the measurement feed. An empty URL disables it.
type NATSConfig struct {
	URL           string       `envconfig:"NATS_URL" validate:"omitempty,url"`
	Subject       string       `envconfig:"NATS_SUBJECT" default:"starnotify.measurements" validate:"required"`
	ConfigSubject string       `envconfig:"NATS_CONFIG_SUBJECT" default:"starnotify.config"`
	User          string       `envconfig:"NATS_USER"`
	Password      SecretString `envconfig:"NATS_PASSWORD"`
}

// DatabaseConfig configures the optional delivery log database. When URL is
// empty, deliveries are kept in memory.
type DatabaseConfig struct {
	URL               SecretString  `envconfig:"DATABASE_URL" validate:"omitempty,url"`
	MaxConns          int32         `envconfig:"DB_MAX_CONNS" default:"4" validate:"min=1"`
	MinConns          int32         `envconfig:"DB_MIN_CONNS" default:"0" validate:"min=0,ltefield=MaxConns"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// Metric backends.
const (
	MetricsNone       = "none"
	MetricsPrometheus = "prometheus"
	MetricsCloudWatch = "cloudwatch"
)

// MetricsConfig selects where delivery telemetry goes.
type MetricsConfig struct {
	Backend   string `envconfig:"METRICS_BACKEND" default:"prometheus" validate:"oneof=none prometheus cloudwatch"`
	Namespace string `envconfig:"METRIC_NAMESPACE" default:"StarNotify"`

	// Used by the cloudwatch backend only.
	AWSRegion   string `envconfig:"AWS_REGION" default:"us-east-1"`
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrParsing indicates an environment value could not be converted to
	// its target type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation indicates the configuration failed struct validation.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
)
