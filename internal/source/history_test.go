package source

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starnotify/internal/types"
)

func frame(path, imageType string) *types.Snapshot {
	return &types.Snapshot{Path: path, ImageType: imageType, Timestamp: time.Unix(1700000000, 0)}
}

func TestHistory_AddTracksLightFrames(t *testing.T) {
	h := NewHistory(10, nil)
	events := h.Subscribe(4)

	_, ok := h.LatestMeasurement()
	assert.False(t, ok)

	require.NoError(t, h.Add(t.Context(), frame("l1.fits", types.ImageTypeLight)))
	require.NoError(t, h.Add(t.Context(), frame("d1.fits", "DARK")))
	require.NoError(t, h.Add(t.Context(), frame("l2.fits", types.ImageTypeLight)))

	assert.Equal(t, 2, h.LightCount())
	latest, ok := h.LatestMeasurement()
	require.True(t, ok)
	assert.Equal(t, "l2.fits", latest.Path)

	first := <-events
	second := <-events
	assert.Equal(t, 1, first.LightCount)
	assert.Equal(t, "l1.fits", first.Snapshot.Path)
	assert.Equal(t, 2, second.LightCount)
	assert.Empty(t, events, "dark frames are not announced")
}

func TestHistory_AddRejectsIncomplete(t *testing.T) {
	h := NewHistory(10, nil)

	err := h.Add(t.Context(), nil)
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationInvalidSnapshot, appErr.Code)

	err = h.Add(t.Context(), &types.Snapshot{ImageType: types.ImageTypeLight})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, []string{"Path"}, appErr.Details["fields"])
	assert.Equal(t, 0, h.LightCount())
}

func TestHistory_RecentIsBoundedNewestFirst(t *testing.T) {
	h := NewHistory(3, nil)
	for _, p := range []string{"a", "b", "c", "d"} {
		require.NoError(t, h.Add(t.Context(), frame(p, types.ImageTypeLight)))
	}

	paths := func(snaps []*types.Snapshot) []string {
		out := make([]string, len(snaps))
		for i, s := range snaps {
			out[i] = s.Path
		}
		return out
	}
	assert.Equal(t, []string{"d", "c", "b"}, paths(h.Recent(0)))
	assert.Equal(t, []string{"d", "c"}, paths(h.Recent(2)))
	assert.Equal(t, 4, h.LightCount())
}

func TestHistory_ResetStartsNewSession(t *testing.T) {
	h := NewHistory(10, nil)
	events := h.Subscribe(2)
	require.NoError(t, h.Add(t.Context(), frame("a", types.ImageTypeLight)))
	h.Reset()

	assert.Equal(t, 0, h.LightCount())
	assert.Equal(t, uint64(1), h.Session())
	_, ok := h.LatestMeasurement()
	assert.False(t, ok)
	assert.Empty(t, h.Recent(0))

	require.NoError(t, h.Add(t.Context(), frame("b", types.ImageTypeLight)))
	first, second := <-events, <-events
	assert.Equal(t, types.Exposure{Session: 0, LightCount: 1, Snapshot: first.Snapshot}, first)
	assert.Equal(t, uint64(1), second.Session)
	assert.Equal(t, 1, second.LightCount)
}

func TestHistory_SlowSubscriberDropsEvents(t *testing.T) {
	h := NewHistory(10, nil)
	events := h.Subscribe(1)

	require.NoError(t, h.Add(t.Context(), frame("a", types.ImageTypeLight)))
	require.NoError(t, h.Add(t.Context(), frame("b", types.ImageTypeLight)))

	exp := <-events
	assert.Equal(t, 1, exp.LightCount)
	assert.Empty(t, events)

	h.Close()
	_, open := <-events
	assert.False(t, open)
}

func TestHistory_RequestInterruptCounts(t *testing.T) {
	h := NewHistory(10, nil)
	h.RequestInterrupt()
	h.RequestInterrupt()
	assert.Equal(t, int64(2), h.Interrupts())
}
