package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/room-sync/internal/domain"
	"github.com/cwrk-planet/room-sync/internal/roomstate"
)

func TestObserveStore(t *testing.T) {
	m := New()
	store := roomstate.NewMemoryStore()
	m.ObserveStore(store)

	ctx := context.Background()
	_, _, err := store.Join(ctx, "r1", "u1")
	require.NoError(t, err)
	_, _, err = store.Join(ctx, "r2", "u2")
	require.NoError(t, err)
	_, _, err = store.SetPlayback(ctx, "r1", "u1", domain.PlaybackInput{})
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues(string(domain.EventUserJoined))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues(string(domain.EventPlaybackUpdate))))

	n, err := testutil.GatherAndCount(m.Registry(), "room_sync_rooms", "room_sync_participants")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDrop(t *testing.T) {
	m := New()
	m.Drop(DropNotInRoom)
	m.Drop(DropNotInRoom)
	m.Drop(DropBadPayload)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Dropped.WithLabelValues(DropNotInRoom)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dropped.WithLabelValues(DropBadPayload)))
}
