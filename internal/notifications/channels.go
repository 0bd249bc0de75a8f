// Package notifications assembles the configured delivery channels.
package notifications

import (
	"fmt"
	"net/http"
	"time"

	"starnotify/internal/config"
	"starnotify/internal/external"
	"starnotify/internal/notifications/email"
	"starnotify/internal/notifications/ntfy"
	"starnotify/internal/notifications/pushover"
	"starnotify/internal/types"
)

const (
	userAgent        = "starnotify/1.0"
	transportTimeout = 30 * time.Second
)

// FromConfig builds one Notifier per configured channel. Pushover and ntfy
// share an HTTP client but each gets its own circuit breaker.
func FromConfig(cfg *config.Config, logger types.Logger) (map[types.ChannelType]types.Notifier, error) {
	out := make(map[types.ChannelType]types.Notifier)
	httpClient := &http.Client{Timeout: transportTimeout}

	if cfg.Pushover.Enabled() {
		if !pushover.ValidSound(cfg.Pushover.Sound) {
			return nil, fmt.Errorf("unknown pushover sound %q", cfg.Pushover.Sound)
		}
		client := external.NewClient(httpClient, "pushover", userAgent)
		out[types.ChannelPushover] = pushover.NewChannel(client, pushover.Config{
			APIURL:   cfg.Pushover.APIURL,
			Token:    cfg.Pushover.Token,
			User:     cfg.Pushover.User,
			Sound:    cfg.Pushover.Sound,
			Priority: types.Priority(cfg.Pushover.Priority),
		}, logger)
	}

	if cfg.Ntfy.Enabled() {
		client := external.NewClient(httpClient, "ntfy", userAgent)
		out[types.ChannelNtfy] = ntfy.NewChannel(client, ntfy.Config{
			Server:   cfg.Ntfy.Server,
			Topic:    cfg.Ntfy.Topic,
			Token:    cfg.Ntfy.Token,
			Username: cfg.Ntfy.Username,
			Password: cfg.Ntfy.Password,
			Priority: types.Priority(cfg.Ntfy.Priority),
		}, logger)
	}

	if cfg.Email.Enabled() {
		ch, err := email.NewChannel(email.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			To:       cfg.Email.To,
			Subject:  cfg.Email.Subject,
			Timeout:  cfg.Email.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating email channel: %w", err)
		}
		out[types.ChannelEmail] = ch
	}

	return out, nil
}
