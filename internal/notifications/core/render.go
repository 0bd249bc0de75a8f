package core

import (
	"strconv"
	"strings"
	"sync/atomic"

	"starnotify/internal/measurement"
	"starnotify/internal/types"
)

const (
	// EmptyMessageBody is sent when no enabled property has a value.
	EmptyMessageBody = "StarMessage - no new image in history found"

	// AfterExposuresFooter closes messages sent by exposure-count triggers.
	AfterExposuresFooter = "Condition: Send StarMessage after exposures fulfilled!"

	// TestMessageBody is the body of a channel test message.
	TestMessageBody = "Test message from N.I.N.A"

	// DefaultTitle is used where a transport needs a subject line.
	DefaultTitle = "N.I.N.A."

	// ImageConfigKey toggles image attachment through the registry feed.
	ImageConfigKey = "Image"

	fulfilledSuffix = "    -> Condition fulfilled"
)

// Renderer turns a snapshot into message text, one line per enabled
// property that has a value.
type Renderer struct {
	registry    *measurement.Registry
	attachImage atomic.Bool
}

// NewRenderer creates a Renderer and binds ImageConfigKey on the registry.
func NewRenderer(registry *measurement.Registry, attachImage bool) *Renderer {
	r := &Renderer{registry: registry}
	r.attachImage.Store(attachImage)
	registry.Bind(ImageConfigKey, func(value string) error {
		on, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		r.attachImage.Store(on)
		return nil
	})
	return r
}

// AttachImage reports whether preview images are attached.
func (r *Renderer) AttachImage() bool { return r.attachImage.Load() }

// Render builds the message for id. By-condition messages mark the
// properties whose condition was fulfilled for id.
func (r *Renderer) Render(id types.TriggerID, source types.TriggerSource, snap *types.Snapshot) types.Message {
	var lines []string
	if snap != nil {
		for _, p := range r.registry.Properties() {
			if !p.Enabled() {
				continue
			}
			v, ok := p.Value(snap)
			if !ok {
				continue
			}
			line := p.DisplayName + ": " + v.String()
			if source == types.SourceByCondition && p.Fulfilled(id) {
				line += fulfilledSuffix
			}
			lines = append(lines, line)
		}
	}

	body := EmptyMessageBody
	if len(lines) > 0 {
		body = strings.Join(lines, "\n")
	}
	if source == types.SourceAfterExposures {
		body += "\n" + AfterExposuresFooter
	}

	msg := types.Message{
		TriggerID: id,
		Source:    source,
		Title:     DefaultTitle,
		Body:      body,
	}
	if snap != nil && snap.PreviewPath != "" && r.AttachImage() {
		msg.ImagePath = snap.PreviewPath
	}
	return msg
}

// TestMessage returns the fixed channel test message.
func TestMessage() types.Message {
	return types.Message{
		TriggerID: "test",
		Source:    types.SourceDefault,
		Title:     DefaultTitle,
		Body:      TestMessageBody,
	}
}
