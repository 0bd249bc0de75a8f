// Package email delivers messages over SMTP.
package email

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/wneessen/go-mail"

	"starnotify/internal/types"
)

const (
	// DefaultSubject is used when neither the config nor the message sets one.
	DefaultSubject = "N.I.N.A."

	// DefaultTimeout bounds connect, auth and send.
	DefaultTimeout = 45 * time.Second

	implicitTLSPort = 465
)

// Config describes the SMTP relay and the envelope.
type Config struct {
	Host     string
	Port     int
	Username types.SecretString
	Password types.SecretString
	From     string
	To       []string
	Subject  string
	Timeout  time.Duration
}

// Sender is the part of *mail.Client the channel uses.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Channel is a types.Notifier for SMTP.
type Channel struct {
	sender Sender
	cfg    Config
	logger types.Logger
}

var _ types.Notifier = (*Channel)(nil)

// NewChannel creates an SMTP client from cfg. Authentication is used only
// when both username and password are set. Port 465 uses implicit TLS, other
// ports upgrade with STARTTLS when the server offers it.
func NewChannel(cfg Config, logger types.Logger) (*Channel, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Port == implicitTLSPort {
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if !cfg.Username.Empty() && !cfg.Password.Empty() {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username.Unmask()),
			mail.WithPassword(cfg.Password.Unmask()),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating smtp client for %s: %w", cfg.Host, err)
	}
	return NewChannelWithSender(client, cfg, logger), nil
}

// NewChannelWithSender creates a channel over an existing sender.
func NewChannelWithSender(sender Sender, cfg Config, logger types.Logger) *Channel {
	return &Channel{sender: sender, cfg: cfg, logger: logger.With("channel", string(types.ChannelEmail))}
}

// Channel identifies the transport.
func (c *Channel) Channel() types.ChannelType { return types.ChannelEmail }

// Send builds a plain-text mail, attaching the image when present, and sends
// it in a single SMTP session.
func (c *Channel) Send(ctx context.Context, msg types.Message) error {
	m, err := c.buildMessage(msg)
	if err != nil {
		return types.NewAppError(types.ErrCodeValidationInvalidRequest, "invalid email envelope", err)
	}

	if err := c.sender.DialAndSendWithContext(ctx, m); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("smtp delivery via %s:%d failed", c.cfg.Host, c.cfg.Port), err)
	}
	c.logger.Debug("email sent", "host", c.cfg.Host, "to", redactAddresses(c.cfg.To))
	return nil
}

func (c *Channel) buildMessage(msg types.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(c.cfg.From); err != nil {
		return nil, fmt.Errorf("sender %q: %w", c.cfg.From, err)
	}
	if len(c.cfg.To) == 0 {
		return nil, fmt.Errorf("no recipients configured")
	}
	if err := m.To(c.cfg.To...); err != nil {
		return nil, fmt.Errorf("recipients: %w", err)
	}

	subject := c.cfg.Subject
	if subject == "" {
		subject = msg.Title
	}
	if subject == "" {
		subject = DefaultSubject
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	if msg.ImagePath != "" {
		if _, err := os.Stat(msg.ImagePath); err != nil {
			c.logger.Warn("sending without attachment", "image_path", msg.ImagePath, "error", err)
		} else {
			m.AttachFile(msg.ImagePath)
		}
	}
	return m, nil
}
