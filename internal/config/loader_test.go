package config

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// TestLoadDefaults verifies that Load succeeds with no environment at all and
// applies the documented defaults.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Environment != "local" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "local")
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Poller.Interval != 150*time.Millisecond {
		t.Errorf("Poller.Interval = %v, want 150ms", cfg.Poller.Interval)
	}
	if cfg.Poller.MaxWait != 15*time.Second {
		t.Errorf("Poller.MaxWait = %v, want 15s", cfg.Poller.MaxWait)
	}
	if cfg.Dispatch.Timeout != 40*time.Second {
		t.Errorf("Dispatch.Timeout = %v, want 40s", cfg.Dispatch.Timeout)
	}
	if cfg.Email.Timeout != 45*time.Second {
		t.Errorf("Email.Timeout = %v, want 45s", cfg.Email.Timeout)
	}
	if cfg.Email.Subject != "N.I.N.A." {
		t.Errorf("Email.Subject = %q, want %q", cfg.Email.Subject, "N.I.N.A.")
	}
	if !cfg.Properties.AttachImage {
		t.Error("Properties.AttachImage should default to true")
	}
	if cfg.Metrics.Backend != MetricsPrometheus {
		t.Errorf("Metrics.Backend = %q, want %q", cfg.Metrics.Backend, MetricsPrometheus)
	}
	if cfg.Pushover.Enabled() || cfg.Ntfy.Enabled() || cfg.Email.Enabled() {
		t.Error("no channel should be enabled without credentials")
	}
	if time.Local != time.UTC {
		t.Errorf("time.Local = %v, want UTC", time.Local)
	}
}

// TestLoadChannels verifies that channel sections are populated and enabled
// from the environment.
func TestLoadChannels(t *testing.T) {
	t.Setenv("PUSHOVER_TOKEN", "app-token")
	t.Setenv("PUSHOVER_USER", "user-key")
	t.Setenv("PUSHOVER_PRIORITY", "high")
	t.Setenv("NTFY_TOPIC", "observatory")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("EMAIL_FROM", "rig@example.com")
	t.Setenv("EMAIL_TO", "a@example.com,b@example.com")
	t.Setenv("DISABLED_PROPERTIES", "Mean,Median")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !cfg.Pushover.Enabled() {
		t.Error("Pushover should be enabled")
	}
	if cfg.Pushover.Token.Unmask() != "app-token" {
		t.Errorf("Pushover.Token.Unmask() = %q", cfg.Pushover.Token.Unmask())
	}
	if cfg.Pushover.Priority != "high" {
		t.Errorf("Pushover.Priority = %q, want high", cfg.Pushover.Priority)
	}
	if !cfg.Ntfy.Enabled() || cfg.Ntfy.Server != "https://ntfy.sh" {
		t.Errorf("Ntfy = %+v, want enabled on https://ntfy.sh", cfg.Ntfy)
	}
	if !cfg.Email.Enabled() {
		t.Error("Email should be enabled")
	}
	if len(cfg.Email.To) != 2 || cfg.Email.To[1] != "b@example.com" {
		t.Errorf("Email.To = %v", cfg.Email.To)
	}
	if strings.Join(cfg.Properties.Disabled, ",") != "Mean,Median" {
		t.Errorf("Properties.Disabled = %v", cfg.Properties.Disabled)
	}
}

// TestLoadSecretsRedacted verifies credentials do not leak through fmt.
func TestLoadSecretsRedacted(t *testing.T) {
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("NATS_PASSWORD", "hunter2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if s := cfg.NATS.Password.String(); s == "hunter2" {
		t.Error("NATS.Password.String() leaked the secret")
	}
	if cfg.NATS.Password.Unmask() != "hunter2" {
		t.Errorf("NATS.Password.Unmask() = %q", cfg.NATS.Password.Unmask())
	}
}

// TestLoadValidationErrors verifies that invalid values are rejected with an
// ErrValidation ConfigError.
func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown environment", map[string]string{"APP_ENV": "staging"}},
		{"unknown log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"pushover token without user", map[string]string{"PUSHOVER_TOKEN": "tok"}},
		{"bad pushover priority", map[string]string{"PUSHOVER_PRIORITY": "emergency"}},
		{"smtp without recipients", map[string]string{"SMTP_HOST": "smtp.example.com", "EMAIL_FROM": "rig@example.com"}},
		{"bad recipient", map[string]string{"SMTP_HOST": "smtp.example.com", "EMAIL_FROM": "rig@example.com", "EMAIL_TO": "nobody"}},
		{"unknown metrics backend", map[string]string{"METRICS_BACKEND": "statsd"}},
		{"triggers not json", map[string]string{"TRIGGERS_JSON": "[{"}},
		{"zero poll interval", map[string]string{"POLL_INTERVAL": "0s"}},
		{"min conns above max", map[string]string{"DB_MAX_CONNS": "2", "DB_MIN_CONNS": "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load should fail")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error type = %T, want *ConfigError", err)
			}
			if cfgErr.Type != ErrValidation {
				t.Errorf("ConfigError.Type = %q, want %q", cfgErr.Type, ErrValidation)
			}
		})
	}
}

// TestLoadParsingError verifies that unparseable values surface as ErrParsing.
func TestLoadParsingError(t *testing.T) {
	t.Setenv("DISPATCH_TIMEOUT", "forty seconds")

	_, err := Load()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type = %T, want *ConfigError", err)
	}
	if cfgErr.Type != ErrParsing {
		t.Errorf("ConfigError.Type = %q, want %q", cfgErr.Type, ErrParsing)
	}
	if !strings.Contains(cfgErr.Error(), "PARSING_FAILED") {
		t.Errorf("Error() = %q, want type prefix", cfgErr.Error())
	}
	if errors.Unwrap(cfgErr) == nil {
		t.Error("Unwrap() should return the envconfig error")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := Config{LogLevel: in}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

// TestNewBuildInfoDefaults verifies the linker-injected defaults during test runs.
func TestNewBuildInfoDefaults(t *testing.T) {
	info := NewBuildInfo()

	if info.Version != "dev" {
		t.Errorf("NewBuildInfo().Version = %q, want %q", info.Version, "dev")
	}
	if info.Commit != "none" {
		t.Errorf("NewBuildInfo().Commit = %q, want %q", info.Commit, "none")
	}
	if info.BuildTime != "unknown" {
		t.Errorf("NewBuildInfo().BuildTime = %q, want %q", info.BuildTime, "unknown")
	}
}
