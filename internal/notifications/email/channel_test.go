package email

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"starnotify/internal/types"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)       {}
func (nopLogger) Info(string, ...any)        {}
func (nopLogger) Warn(string, ...any)        {}
func (nopLogger) Error(string, ...any)       {}
func (l nopLogger) With(...any) types.Logger { return l }

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	f.sent = append(f.sent, messages...)
	return f.err
}

func baseConfig() Config {
	return Config{Host: "smtp.example.org", Port: 587, From: "rig@example.org", To: []string{"astro@example.org"}}
}

func rendered(t *testing.T, m *mail.Msg) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSend_BuildsPlainMessage(t *testing.T) {
	sender := &fakeSender{}
	ch := NewChannelWithSender(sender, baseConfig(), nopLogger{})

	require.NoError(t, ch.Send(context.Background(), types.Message{Body: "HFR: 2.5\nStars: 100"}))
	require.Len(t, sender.sent, 1)

	m := sender.sent[0]
	rcpts, err := m.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"astro@example.org"}, rcpts)
	assert.Equal(t, []string{DefaultSubject}, m.GetGenHeader(mail.HeaderSubject))
	assert.Contains(t, rendered(t, m), "Stars: 100")
}

func TestSend_SubjectPrecedence(t *testing.T) {
	sender := &fakeSender{}
	cfg := baseConfig()
	ch := NewChannelWithSender(sender, cfg, nopLogger{})
	require.NoError(t, ch.Send(context.Background(), types.Message{Title: "Rig alert", Body: "x"}))
	assert.Equal(t, []string{"Rig alert"}, sender.sent[0].GetGenHeader(mail.HeaderSubject))

	cfg.Subject = "Observatory"
	ch = NewChannelWithSender(sender, cfg, nopLogger{})
	require.NoError(t, ch.Send(context.Background(), types.Message{Title: "Rig alert", Body: "x"}))
	assert.Equal(t, []string{"Observatory"}, sender.sent[1].GetGenHeader(mail.HeaderSubject))
}

func TestSend_Attachment(t *testing.T) {
	sender := &fakeSender{}
	ch := NewChannelWithSender(sender, baseConfig(), nopLogger{})
	path := filepath.Join(t.TempDir(), "preview.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0o600))

	require.NoError(t, ch.Send(context.Background(), types.Message{Body: "x", ImagePath: path}))
	assert.Len(t, sender.sent[0].GetAttachments(), 1)

	require.NoError(t, ch.Send(context.Background(), types.Message{Body: "x", ImagePath: "/missing.jpg"}))
	assert.Empty(t, sender.sent[1].GetAttachments())
}

func TestSend_InvalidEnvelope(t *testing.T) {
	sender := &fakeSender{}
	cfg := baseConfig()
	cfg.To = nil
	ch := NewChannelWithSender(sender, cfg, nopLogger{})

	err := ch.Send(context.Background(), types.Message{Body: "x"})
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationInvalidRequest, appErr.Code)
	assert.Empty(t, sender.sent)
}

func TestSend_SMTPFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("535 authentication failed")}
	ch := NewChannelWithSender(sender, baseConfig(), nopLogger{})

	err := ch.Send(context.Background(), types.Message{Body: "x"})
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamUnavailable, appErr.Code)
	assert.Contains(t, appErr.Error(), "smtp.example.org:587")
}

func TestNewChannel(t *testing.T) {
	cfg := baseConfig()
	cfg.Username = "user"
	cfg.Password = "pass"
	ch, err := NewChannel(cfg, nopLogger{})
	require.NoError(t, err)
	assert.Equal(t, types.ChannelEmail, ch.Channel())

	_, err = NewChannel(Config{Port: 25}, nopLogger{})
	assert.Error(t, err, "host is required")
}
