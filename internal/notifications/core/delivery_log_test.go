package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeliveryLog_RingNewestFirst(t *testing.T) {
	log := NewMemoryDeliveryLog(3)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, log.Record(ctx, DeliveryRecord{ID: id}))
	}

	recs, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"d", "c", "b"}, ids)

	recs, _ = log.Recent(ctx, 1)
	assert.Equal(t, "d", recs[0].ID)
}

func TestMemoryDeliveryLog_Empty(t *testing.T) {
	recs, err := NewMemoryDeliveryLog(0).Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
