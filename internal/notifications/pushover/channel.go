// Package pushover delivers messages through the Pushover messages API.
package pushover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"starnotify/internal/external"
	"starnotify/internal/types"
)

// DefaultAPIURL is the Pushover message endpoint.
const DefaultAPIURL = "https://api.pushover.net/1/messages.json"

// maxAttachmentBytes is the largest attachment Pushover accepts.
const maxAttachmentBytes = 5 << 20

// Emergency priority messages repeat until acknowledged.
const (
	emergencyRetrySeconds  = 60
	emergencyExpireSeconds = 3600
)

// Sounds lists the notification sounds Pushover knows. "Default" leaves the
// choice to the user's device settings.
var Sounds = []string{
	"Default", "Pushover", "Bike", "Bugle", "CashRegister", "Classical", "Cosmic",
	"Falling", "Gamelan", "Incoming", "Intermission", "Magic", "Mechanical",
	"Pianobar", "Siren", "SpaceAlarm", "Tugboat", "Alien", "Climb", "Persistent",
	"Echo", "Updown", "Vibrate", "None",
}

// ValidSound reports whether s names a known sound, case-insensitively.
func ValidSound(s string) bool {
	if s == "" {
		return true
	}
	for _, known := range Sounds {
		if strings.EqualFold(known, s) {
			return true
		}
	}
	return false
}

var priorityValues = map[types.Priority]int{
	types.PriorityLowest:  -2,
	types.PriorityLow:     -1,
	types.PriorityNormal:  0,
	types.PriorityHigh:    1,
	types.PriorityHighest: 2,
}

// Config holds the Pushover application token and user key.
type Config struct {
	APIURL   string
	Token    types.SecretString
	User     types.SecretString
	Sound    string
	Priority types.Priority
}

// Channel is a types.Notifier for Pushover.
type Channel struct {
	client *external.Client
	cfg    Config
	logger types.Logger
}

var _ types.Notifier = (*Channel)(nil)

// NewChannel creates a Pushover channel.
func NewChannel(client *external.Client, cfg Config, logger types.Logger) *Channel {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return &Channel{client: client, cfg: cfg, logger: logger.With("channel", string(types.ChannelPushover))}
}

// Channel identifies the transport.
func (c *Channel) Channel() types.ChannelType { return types.ChannelPushover }

type apiResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

// Send posts msg as a multipart form. The message counts as delivered only
// when the API answers with status 1.
func (c *Channel) Send(ctx context.Context, msg types.Message) error {
	body, contentType, err := c.buildForm(msg)
	if err != nil {
		return fmt.Errorf("building pushover request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, body)
	if err != nil {
		return fmt.Errorf("creating pushover request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamInvalidResponse, "reading pushover response", err)
	}

	var result apiResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamInvalidResponse,
			fmt.Sprintf("pushover returned %d with unreadable body", resp.StatusCode), err)
	}
	if resp.StatusCode != http.StatusOK || result.Status != 1 {
		return types.NewAppError(types.ErrCodeUpstreamRejected,
			fmt.Sprintf("pushover rejected message: %s", strings.Join(result.Errors, "; ")), nil).
			WithDetails(map[string]any{"status_code": resp.StatusCode, "request": result.Request})
	}

	c.logger.Debug("pushover accepted message", "request", result.Request)
	return nil
}

func (c *Channel) buildForm(msg types.Message) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	priority := msg.Priority
	if priority == "" {
		priority = c.cfg.Priority
	}
	level, ok := priorityValues[priority]
	if !ok {
		level = 0
	}

	fields := [][2]string{
		{"token", c.cfg.Token.Unmask()},
		{"user", c.cfg.User.Unmask()},
		{"message", msg.Body},
		{"priority", strconv.Itoa(level)},
	}
	if msg.Title != "" {
		fields = append(fields, [2]string{"title", msg.Title})
	}
	sound := msg.Sound
	if sound == "" {
		sound = c.cfg.Sound
	}
	if sound != "" && !strings.EqualFold(sound, "default") {
		fields = append(fields, [2]string{"sound", strings.ToLower(sound)})
	}
	if level == 2 {
		fields = append(fields,
			[2]string{"retry", strconv.Itoa(emergencyRetrySeconds)},
			[2]string{"expire", strconv.Itoa(emergencyExpireSeconds)},
		)
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if msg.ImagePath != "" {
		if err := c.attach(w, msg.ImagePath); err != nil {
			c.logger.Warn("sending without attachment", "image_path", msg.ImagePath, "error", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (c *Channel) attach(w *multipart.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > maxAttachmentBytes {
		return fmt.Errorf("attachment is %d bytes, limit is %d", info.Size(), maxAttachmentBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	part, err := w.CreateFormFile("attachment", filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}
