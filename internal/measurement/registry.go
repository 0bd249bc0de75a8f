// Package measurement holds the catalog of observable imaging properties, the
// parser that turns their text form into comparable values, and the poller
// that resolves the newest completed measurement.
package measurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"starnotify/internal/types"
)

// ErrUnknownConfigKey is wrapped by Apply when no setter is bound to a key.
var ErrUnknownConfigKey = errors.New("unknown configuration key")

// Accessor reads one property from a snapshot. It reports false when the
// snapshot does not carry the value.
type Accessor func(s *types.Snapshot) (types.Value, bool)

// Definition describes a property at registration time.
type Definition struct {
	Name        string
	DisplayName string
	Type        types.ValueType
	Accessor    Accessor
	Enabled     bool
}

// Property is a registered measurement property. Name, DisplayName and Type
// are fixed after registration; the enabled flag and per-trigger fulfillment
// may change concurrently.
type Property struct {
	Name        string
	DisplayName string
	Type        types.ValueType

	read    Accessor
	enabled atomic.Bool

	mu        sync.Mutex
	fulfilled map[types.TriggerID]bool
}

// Enabled reports whether the property is enabled in configuration.
func (p *Property) Enabled() bool { return p.enabled.Load() }

// Value reads the property from s.
func (p *Property) Value(s *types.Snapshot) (types.Value, bool) {
	if s == nil {
		return types.Value{}, false
	}
	return p.read(s)
}

// Fulfilled reports whether the last evaluation by id satisfied a condition
// on this property.
func (p *Property) Fulfilled(id types.TriggerID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fulfilled[id]
}

func (p *Property) setFulfilled(id types.TriggerID, v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !v {
		delete(p.fulfilled, id)
		return
	}
	p.fulfilled[id] = true
}

// ConfigChanged is a single configuration update, for example
// {Key: "HFR", Value: "false"}.
type ConfigChanged struct {
	Key   string
	Value string
}

// Setter applies the value of a ConfigChanged event.
type Setter func(value string) error

// Registry is the set of known properties plus the key to setter table used
// to route configuration changes.
type Registry struct {
	mu      sync.RWMutex
	order   []*Property
	byName  map[string]*Property
	setters map[string]Setter
	logger  *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byName:  make(map[string]*Property),
		setters: make(map[string]Setter),
		logger:  logger,
	}
}

// Register adds a property and binds its name as a configuration key that
// toggles the enabled flag.
func (r *Registry) Register(def Definition) (*Property, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("property name is required")
	}
	if !def.Type.Valid() {
		return nil, fmt.Errorf("property %q: unknown value type %q", def.Name, def.Type)
	}
	if def.Accessor == nil {
		return nil, fmt.Errorf("property %q: accessor is required", def.Name)
	}
	display := def.DisplayName
	if display == "" {
		display = def.Name
	}

	p := &Property{
		Name:        def.Name,
		DisplayName: display,
		Type:        def.Type,
		read:        def.Accessor,
		fulfilled:   make(map[types.TriggerID]bool),
	}
	p.enabled.Store(def.Enabled)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[def.Name]; exists {
		return nil, fmt.Errorf("property %q already registered", def.Name)
	}
	if _, exists := r.setters[def.Name]; exists {
		return nil, fmt.Errorf("configuration key %q already bound", def.Name)
	}
	r.order = append(r.order, p)
	r.byName[def.Name] = p
	r.setters[def.Name] = func(value string) error {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("property %q: %w", p.Name, err)
		}
		p.enabled.Store(enabled)
		return nil
	}
	return p, nil
}

// Bind routes configuration key to setter. A later Bind for the same key
// replaces the earlier one.
func (r *Registry) Bind(key string, setter Setter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setters[key] = setter
}

// Lookup returns the property registered under name.
func (r *Registry) Lookup(name string) (*Property, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// Properties returns all properties in registration order.
func (r *Registry) Properties() []*Property {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Property, len(r.order))
	copy(out, r.order)
	return out
}

// SetEnabled toggles a property by name.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	p, ok := r.Lookup(name)
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundProperty, fmt.Sprintf("property %q is not registered", name), nil)
	}
	p.enabled.Store(enabled)
	return nil
}

// ResetFulfilled clears every fulfillment flag owned by id.
func (r *Registry) ResetFulfilled(id types.TriggerID) {
	for _, p := range r.Properties() {
		p.setFulfilled(id, false)
	}
}

// MarkFulfilled records that id's condition on the named property held.
func (r *Registry) MarkFulfilled(id types.TriggerID, name string) {
	if p, ok := r.Lookup(name); ok {
		p.setFulfilled(id, true)
	}
}

// Apply dispatches one configuration change through the setter table.
func (r *Registry) Apply(ev ConfigChanged) error {
	r.mu.RLock()
	setter, ok := r.setters[ev.Key]
	r.mu.RUnlock()
	if !ok {
		return types.NewAppError(types.ErrCodeValidationUnknownConfigKey,
			fmt.Sprintf("no setting named %q", ev.Key), ErrUnknownConfigKey)
	}
	if err := setter(ev.Value); err != nil {
		return types.NewAppError(types.ErrCodeValidationInvalidRequest,
			fmt.Sprintf("invalid value for %q", ev.Key), err)
	}
	return nil
}

// Subscribe applies events from feed until ctx is done or feed is closed.
// Failures are logged; the feed keeps flowing.
func (r *Registry) Subscribe(ctx context.Context, feed <-chan ConfigChanged) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-feed:
			if !ok {
				return
			}
			if err := r.Apply(ev); err != nil {
				r.logger.WarnContext(ctx, "configuration change rejected",
					"key", ev.Key, "value", ev.Value, "error", err)
				continue
			}
			r.logger.DebugContext(ctx, "configuration change applied", "key", ev.Key, "value", ev.Value)
		}
	}
}
