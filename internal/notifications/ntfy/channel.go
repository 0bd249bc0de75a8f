// Package ntfy publishes messages to an ntfy topic.
package ntfy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"starnotify/internal/external"
	"starnotify/internal/types"
)

// DefaultServer is the public ntfy instance.
const DefaultServer = "https://ntfy.sh"

var priorityHeader = map[types.Priority]string{
	types.PriorityLowest:  "min",
	types.PriorityLow:     "low",
	types.PriorityNormal:  "default",
	types.PriorityHigh:    "high",
	types.PriorityHighest: "max",
}

// Config addresses a topic. Token takes precedence over Username/Password.
type Config struct {
	Server   string
	Topic    string
	Token    types.SecretString
	Username types.SecretString
	Password types.SecretString
	Priority types.Priority
}

// Channel is a types.Notifier for ntfy.
type Channel struct {
	client *external.Client
	cfg    Config
	logger types.Logger
}

var _ types.Notifier = (*Channel)(nil)

// NewChannel creates an ntfy channel.
func NewChannel(client *external.Client, cfg Config, logger types.Logger) *Channel {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	cfg.Server = strings.TrimRight(cfg.Server, "/")
	return &Channel{client: client, cfg: cfg, logger: logger.With("channel", string(types.ChannelNtfy))}
}

// Channel identifies the transport.
func (c *Channel) Channel() types.ChannelType { return types.ChannelNtfy }

func (c *Channel) topicURL() string {
	return c.cfg.Server + "/" + c.cfg.Topic
}

// Send publishes the text, then the image as a second message when present.
// Only a failed text publish fails the send.
func (c *Channel) Send(ctx context.Context, msg types.Message) error {
	priority := msg.Priority
	if priority == "" {
		priority = c.cfg.Priority
	}
	header, ok := priorityHeader[priority]
	if !ok {
		header = "default"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.topicURL(), strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("creating ntfy request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("X-Priority", header)
	if msg.Title != "" {
		req.Header.Set("X-Title", msg.Title)
	}
	if err := c.do(req); err != nil {
		return err
	}

	if msg.ImagePath != "" {
		if err := c.sendImage(ctx, msg.ImagePath); err != nil {
			c.logger.Error("failed to publish ntfy image", "image_path", msg.ImagePath, "error", err)
		}
	}
	return nil
}

func (c *Channel) sendImage(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.topicURL(), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("X-Filename", filepath.Base(path))
	return c.do(req)
}

func (c *Channel) do(req *http.Request) error {
	c.authorize(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return types.NewAppError(types.ErrCodeUpstreamRejected,
			fmt.Sprintf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))), nil)
	}
	return nil
}

func (c *Channel) authorize(req *http.Request) {
	switch {
	case !c.cfg.Token.Empty():
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token.Unmask())
	case !c.cfg.Username.Empty() && !c.cfg.Password.Empty():
		req.SetBasicAuth(c.cfg.Username.Unmask(), c.cfg.Password.Unmask())
	}
}
