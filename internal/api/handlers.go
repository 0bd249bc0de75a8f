package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"starnotify/internal/measurement"
	"starnotify/internal/notifications/core"
	"starnotify/internal/notifications/pushover"
	"starnotify/internal/triggers"
	"starnotify/internal/types"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func listLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, types.NewAppError(types.ErrCodeValidationInvalidRequest, "limit must be a positive integer", err)
	}
	return min(n, maxListLimit), nil
}

type ingestResponse struct {
	LightCount int `json:"light_count"`
}

func (s *Server) handleIngestMeasurement(w http.ResponseWriter, r *http.Request) {
	var snap types.Snapshot
	if err := DecodeJSON(w, r, &snap); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.Ingestor.Add(r.Context(), &snap); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusAccepted, APIResponse{Data: ingestResponse{LightCount: s.Ingestor.LightCount()}})
}

func (s *Server) handleListMeasurements(w http.ResponseWriter, r *http.Request) {
	limit, err := listLimit(r)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: s.Ingestor.Recent(limit)})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	s.Ingestor.Reset()
	s.Logger.InfoContext(r.Context(), "session reset")
	w.WriteHeader(http.StatusNoContent)
}

type propertyView struct {
	Name        string           `json:"name"`
	DisplayName string           `json:"display_name"`
	Type        types.ValueType  `json:"type"`
	Enabled     bool             `json:"enabled"`
	Operators   []types.Operator `json:"operators"`
}

func viewProperty(p *measurement.Property) propertyView {
	return propertyView{
		Name:        p.Name,
		DisplayName: p.DisplayName,
		Type:        p.Type,
		Enabled:     p.Enabled(),
		Operators:   types.OperatorsFor(p.Type),
	}
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	props := s.Registry.Properties()
	out := make([]propertyView, 0, len(props))
	for _, p := range props {
		out = append(out, viewProperty(p))
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: out})
}

type setPropertyRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleSetProperty(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	prop, ok := s.Registry.Lookup(name)
	if !ok {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundProperty, fmt.Sprintf("property %q is not registered", name), nil))
		return
	}

	var req setPropertyRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if req.Enabled == nil {
		Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidRequest, "enabled is required", nil))
		return
	}

	if err := s.Registry.Apply(measurement.ConfigChanged{Key: name, Value: strconv.FormatBool(*req.Enabled)}); err != nil {
		Error(w, r, err)
		return
	}
	s.Logger.InfoContext(r.Context(), "property toggled", "property", name, "enabled", *req.Enabled)
	JSON(w, r, http.StatusOK, APIResponse{Data: viewProperty(prop)})
}

type applyConfigRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleApplyConfig(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req applyConfigRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.Registry.Apply(measurement.ConfigChanged{Key: key, Value: req.Value}); err != nil {
		Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) triggerList() []triggers.Trigger {
	if s.Triggers == nil {
		return nil
	}
	return s.Triggers.Triggers()
}

func (s *Server) handleListTriggers(w http.ResponseWriter, r *http.Request) {
	ts := s.triggerList()
	out := make([]triggers.Status, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Status())
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: out})
}

func (s *Server) handleGetTrigger(w http.ResponseWriter, r *http.Request) {
	id := types.TriggerID(chi.URLParam(r, "id"))
	t, ok := triggers.Find(s.triggerList(), id)
	if !ok {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundTrigger, fmt.Sprintf("trigger %q not found", id), nil))
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: t.Status()})
}

func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	if s.Deliveries == nil {
		JSON(w, r, http.StatusOK, APIResponse{Data: []core.DeliveryRecord{}})
		return
	}
	limit, err := listLimit(r)
	if err != nil {
		Error(w, r, err)
		return
	}
	recs, err := s.Deliveries.Recent(r.Context(), limit)
	if err != nil {
		Error(w, r, err)
		return
	}
	if recs == nil {
		recs = []core.DeliveryRecord{}
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: recs})
}

type testChannelResponse struct {
	Channel types.ChannelType `json:"channel"`
	Sent    bool              `json:"sent"`
}

func (s *Server) handleTestChannel(w http.ResponseWriter, r *http.Request) {
	channel := types.ChannelType(chi.URLParam(r, "channel"))
	n, ok := s.Notifiers[channel]
	if !ok || s.Sender == nil {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundChannel, fmt.Sprintf("channel %q is not configured", channel), nil))
		return
	}

	sent, err := s.Sender.Dispatch(r.Context(), n, core.TestMessage())
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: testChannelResponse{Channel: channel, Sent: sent}})
}

// manualTriggerID labels on-demand sends in the delivery log.
const manualTriggerID types.TriggerID = "manual"

type sendMeasurementRequest struct {
	Sound    string         `json:"sound,omitempty"`
	Priority types.Priority `json:"priority,omitempty"`
}

type sendMeasurementResponse struct {
	Channel     types.ChannelType `json:"channel"`
	Sent        bool              `json:"sent"`
	Measurement bool              `json:"measurement"`
}

// handleSendMeasurement sends the current measurement through one channel
// regardless of any trigger. The body is optional.
func (s *Server) handleSendMeasurement(w http.ResponseWriter, r *http.Request) {
	channel := types.ChannelType(chi.URLParam(r, "channel"))
	n, ok := s.Notifiers[channel]
	if !ok || s.Sender == nil || s.Renderer == nil {
		Error(w, r, types.NewAppError(types.ErrCodeNotFoundChannel, fmt.Sprintf("channel %q is not configured", channel), nil))
		return
	}

	var req sendMeasurementRequest
	if r.ContentLength != 0 {
		if err := DecodeJSON(w, r, &req); err != nil {
			Error(w, r, err)
			return
		}
	}
	if !req.Priority.Valid() {
		Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidRequest, fmt.Sprintf("unknown priority %q", req.Priority), nil))
		return
	}
	if req.Sound != "" && (channel != types.ChannelPushover || !pushover.ValidSound(req.Sound)) {
		Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidRequest,
			fmt.Sprintf("sound %q is not supported by channel %s", req.Sound, channel), nil))
		return
	}

	var snap *types.Snapshot
	if s.Measurements != nil {
		if got, ok := s.Measurements.Acquire(r.Context(), s.MaxWait); ok {
			snap = got
		}
	}

	msg := s.Renderer.Render(manualTriggerID, types.SourceDefault, snap)
	msg.Sound = req.Sound
	msg.Priority = req.Priority

	s.Logger.InfoContext(r.Context(), "sending current measurement",
		"channel", string(channel), "measurement", snap != nil)
	sent, err := s.Sender.Dispatch(r.Context(), n, msg)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: sendMeasurementResponse{Channel: channel, Sent: sent, Measurement: snap != nil}})
}
