package measurement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starnotify/internal/types"
)

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

func starsAccessor(s *types.Snapshot) (types.Value, bool) {
	return integer(s.Stars)
}

func TestRegistry_RegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Register(Definition{Name: "Stars", Type: types.ValueInteger, Accessor: starsAccessor})
	require.NoError(t, err)

	_, err = r.Register(Definition{Name: "Stars", Type: types.ValueInteger, Accessor: starsAccessor})
	assert.Error(t, err)
	assert.Len(t, r.Properties(), 1)
}

func TestRegistry_RegisterValidatesDefinition(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Register(Definition{Type: types.ValueInteger, Accessor: starsAccessor})
	assert.Error(t, err, "empty name")

	_, err = r.Register(Definition{Name: "X", Type: "complex", Accessor: starsAccessor})
	assert.Error(t, err, "unknown type")

	_, err = r.Register(Definition{Name: "X", Type: types.ValueInteger})
	assert.Error(t, err, "missing accessor")
}

func TestRegistry_DisplayNameDefaultsToName(t *testing.T) {
	r := NewRegistry(nil)
	p, err := r.Register(Definition{Name: "Stars", Type: types.ValueInteger, Accessor: starsAccessor})
	require.NoError(t, err)
	assert.Equal(t, "Stars", p.DisplayName)
}

func TestRegistry_FulfilledIsPerConsumer(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, RegisterDefaults(r, nil))

	r.MarkFulfilled("push", "HFR")
	r.MarkFulfilled("mail", "HFR")
	r.MarkFulfilled("mail", "Stars")

	hfr, _ := r.Lookup("HFR")
	stars, _ := r.Lookup("Stars")

	r.ResetFulfilled("mail")
	assert.True(t, hfr.Fulfilled("push"))
	assert.False(t, hfr.Fulfilled("mail"))
	assert.False(t, stars.Fulfilled("mail"))
}

func TestRegistry_ApplyTogglesEnabled(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, RegisterDefaults(r, nil))

	require.NoError(t, r.Apply(ConfigChanged{Key: "HFR", Value: "false"}))
	hfr, _ := r.Lookup("HFR")
	assert.False(t, hfr.Enabled())

	require.NoError(t, r.Apply(ConfigChanged{Key: "HFR", Value: "true"}))
	assert.True(t, hfr.Enabled())
}

func TestRegistry_ApplyErrors(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, RegisterDefaults(r, nil))

	err := r.Apply(ConfigChanged{Key: "Nope", Value: "true"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigKey))
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeValidationUnknownConfigKey, appErr.Code)

	err = r.Apply(ConfigChanged{Key: "HFR", Value: "maybe"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeValidationInvalidRequest, appErr.Code)
}

func TestRegistry_BindCustomKey(t *testing.T) {
	r := NewRegistry(nil)
	var got string
	r.Bind("Image", func(v string) error { got = v; return nil })

	require.NoError(t, r.Apply(ConfigChanged{Key: "Image", Value: "true"}))
	assert.Equal(t, "true", got)
}

func TestRegistry_SubscribeAppliesFeed(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, RegisterDefaults(r, nil))

	feed := make(chan ConfigChanged)
	done := make(chan struct{})
	go func() {
		r.Subscribe(context.Background(), feed)
		close(done)
	}()

	feed <- ConfigChanged{Key: "Unknown", Value: "x"}
	feed <- ConfigChanged{Key: "Stars", Value: "false"}
	close(feed)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Subscribe did not return after feed closed")
	}

	stars, _ := r.Lookup("Stars")
	assert.False(t, stars.Enabled())
}

func TestRegistry_SetEnabledUnknown(t *testing.T) {
	r := NewRegistry(nil)
	err := r.SetEnabled("Ghost", true)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundProperty, appErr.Code)
}

func TestRegisterDefaults_DisabledList(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, RegisterDefaults(r, []string{"MAD", "Duration"}))

	mad, _ := r.Lookup("MAD")
	hfr, _ := r.Lookup("HFR")
	assert.False(t, mad.Enabled())
	assert.True(t, hfr.Enabled())

	assert.Error(t, RegisterDefaults(NewRegistry(nil), []string{"Seeing"}))
}

func TestDefaultCatalog_Accessors(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, RegisterDefaults(r, nil))

	snap := &types.Snapshot{
		Path:            "/data/light_001.fits",
		ImageType:       types.ImageTypeLight,
		Timestamp:       time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC),
		Filter:          "Ha",
		Target:          &types.Target{Name: "M31", RA: "00:42:44", Dec: "+41:16:09"},
		RMS:             &types.RMS{Total: 0.8349, RA: 0.5, Dec: 0.25, Scale: 1.5},
		Stars:           intPtr(412),
		HFR:             floatPtr(2.3456),
		MAD:             floatPtr(1.23456),
		FocuserPosition: intPtr(10250),
	}

	tests := []struct {
		name string
		want string
	}{
		{"Time", "2024-05-01T23:00:00Z"},
		{"RMSTotal", "0.83"},
		{"RMSDec", "0.38"},
		{"RMSRa", "0.75"},
		{"HFR", "2.35"},
		{"MAD", "1.23456"},
		{"Stars", "412"},
		{"FocuserPosition", "10250"},
		{"Filter", "Ha"},
		{"Target", "M31  DEC: +41:16:09 RA: 00:42:44"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := r.Lookup(tt.name)
			require.True(t, ok)
			v, ok := p.Value(snap)
			require.True(t, ok)
			assert.Equal(t, tt.want, v.String())
		})
	}

	temp, _ := r.Lookup("Temperature")
	_, ok := temp.Value(snap)
	assert.False(t, ok, "absent optional value")

	_, ok = temp.Value(nil)
	assert.False(t, ok, "nil snapshot")
}
