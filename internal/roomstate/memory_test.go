package roomstate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/room-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(ms int64) *fakeClock {
	return &fakeClock{t: time.UnixMilli(ms)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = time.UnixMilli(ms)
}

func newStore(t *testing.T, clk *fakeClock, opts ...Option) *MemoryStore {
	t.Helper()
	return NewMemoryStore(append([]Option{WithClock(clk.Now)}, opts...)...)
}

func TestMemoryStore_EventLogBounded(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock(1_000)
	s := newStore(t, clk)

	for i := 0; i < 130; i++ {
		_, err := s.Append(ctx, "r1", domain.EventUserActivity, func(ts int64) any {
			return domain.UserActivity{UserID: "u1", Action: fmt.Sprintf("a%d", i), Timestamp: ts}
		})
		require.NoError(t, err)
		clk.Advance(time.Millisecond)
	}

	snap, err := s.Snapshot(ctx, "r1", 0)
	require.NoError(t, err)
	require.Len(t, snap.Updates, DefaultCapacity)

	for i, ev := range snap.Updates {
		act := ev.Data.(domain.UserActivity)
		assert.Equal(t, fmt.Sprintf("a%d", i+30), act.Action)
		if i > 0 {
			assert.Greater(t, ev.Timestamp, snap.Updates[i-1].Timestamp)
		}
	}
}

func TestMemoryStore_CustomCapacity(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock(1_000)
	s := newStore(t, clk, WithCapacity(3))

	for i := 0; i < 5; i++ {
		_, _, err := s.Join(ctx, "r1", fmt.Sprintf("u%d", i))
		require.NoError(t, err)
	}

	snap, err := s.Snapshot(ctx, "r1", 0)
	require.NoError(t, err)
	require.Len(t, snap.Updates, 3)
	assert.Equal(t, "u2", snap.Updates[0].Data.(domain.PeerEvent).UserID)
	assert.Len(t, snap.Users, 5)
}

func TestMemoryStore_SinceIsStrict(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock(1_000)
	s := newStore(t, clk)

	_, _, err := s.Join(ctx, "r1", "u1")
	require.NoError(t, err)
	clk.Set(2_000)
	_, _, err = s.Join(ctx, "r1", "u2")
	require.NoError(t, err)
	clk.Set(3_000)
	_, _, err = s.SetPlayback(ctx, "r1", "u1", domain.PlaybackInput{IsPlaying: true})
	require.NoError(t, err)

	tests := []struct {
		name  string
		since int64
		want  []domain.EventType
	}{
		{name: "everything", since: 0, want: []domain.EventType{domain.EventUserJoined, domain.EventUserJoined, domain.EventPlaybackUpdate}},
		{name: "equal timestamp excluded", since: 2_000, want: []domain.EventType{domain.EventPlaybackUpdate}},
		{name: "just before", since: 1_999, want: []domain.EventType{domain.EventUserJoined, domain.EventPlaybackUpdate}},
		{name: "nothing newer", since: 3_000, want: []domain.EventType{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := s.Snapshot(ctx, "r1", tt.since)
			require.NoError(t, err)
			got := make([]domain.EventType, 0, len(snap.Updates))
			for _, ev := range snap.Updates {
				assert.Greater(t, ev.Timestamp, tt.since)
				got = append(got, ev.Type)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryStore_JoinIsUpsert(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock(1_000)
	s := newStore(t, clk)

	users, _, err := s.Join(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, users)

	clk.Advance(time.Second)
	users, _, err = s.Join(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, users)

	snap, err := s.Snapshot(ctx, "r1", 0)
	require.NoError(t, err)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, int64(1_000), snap.Users[0].JoinedAt, "re-join must not reset joinedAt")
	assert.Len(t, snap.Updates, 2, "each join call logs its own event")
}

func TestMemoryStore_PlaybackFullReplace(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock(1_000)
	s := newStore(t, clk)

	_, _, err := s.SetPlayback(ctx, "r1", "u1", domain.PlaybackInput{CurrentPosition: 42, CurrentTrackIndex: 7})
	require.NoError(t, err)
	clk.Advance(time.Millisecond)
	_, _, err = s.SetPlayback(ctx, "r1", "u2", domain.PlaybackInput{IsPlaying: true})
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx, "r1", 0)
	require.NoError(t, err)
	require.NotNil(t, snap.PlaybackState)
	assert.Equal(t, domain.PlaybackState{
		UserID:    "u2",
		IsPlaying: true,
		Timestamp: 1_001,
	}, *snap.PlaybackState)
}

func TestMemoryStore_LeaveLastParticipantRemovesRoom(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock(1_000)
	s := newStore(t, clk)

	_, _, err := s.Join(ctx, "r1", "u1")
	require.NoError(t, err)
	_, _, err = s.SetPlayback(ctx, "r1", "u1", domain.PlaybackInput{IsPlaying: true})
	require.NoError(t, err)

	res, err := s.Leave(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.True(t, res.Existed)
	assert.True(t, res.Closed)
	assert.Zero(t, res.Remaining)
	assert.Equal(t, domain.EventUserLeft, res.Event.Type)

	clk.Set(5_000)
	snap, err := s.Snapshot(ctx, "r1", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.EmptyRoomUpdates("r1", 5_000), snap)
	assert.Zero(t, s.Stats().Rooms)
}

func TestMemoryStore_LeaveKeepsRoomWithOthers(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, newFakeClock(1_000))

	_, _, _ = s.Join(ctx, "r1", "u1")
	_, _, _ = s.Join(ctx, "r1", "u2")

	res, err := s.Leave(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.False(t, res.Closed)
	assert.Equal(t, 1, res.Remaining)

	users, err := s.Participants(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, users)
}

func TestMemoryStore_LeaveUnknownRoomIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, newFakeClock(1_000))

	var seen int
	s.Observe(func(Change) { seen++ })

	res, err := s.Leave(ctx, "nope", "u1")
	require.NoError(t, err)
	assert.Equal(t, LeaveResult{}, res)
	assert.Zero(t, seen)
	assert.Zero(t, s.Stats().Rooms)
}

func TestMemoryStore_LeaveAbsentUserStillLogs(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, newFakeClock(1_000))

	_, _, _ = s.Join(ctx, "r1", "u1")
	res, err := s.Leave(ctx, "r1", "ghost")
	require.NoError(t, err)
	assert.False(t, res.Closed)

	snap, err := s.Snapshot(ctx, "r1", 0)
	require.NoError(t, err)
	require.Len(t, snap.Updates, 2)
	assert.Equal(t, domain.EventUserLeft, snap.Updates[1].Type)
	assert.Len(t, snap.Users, 1)
}

func TestMemoryStore_TimestampsNeverGoBack(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock(10_000)
	s := newStore(t, clk)

	_, first, err := s.Join(ctx, "r1", "u1")
	require.NoError(t, err)
	clk.Set(9_000)
	_, second, err := s.Join(ctx, "r1", "u2")
	require.NoError(t, err)

	assert.Equal(t, int64(10_000), first.Timestamp)
	assert.Equal(t, int64(10_000), second.Timestamp)
	assert.Equal(t, int64(10_000), s.Now())
}

func TestMemoryStore_AppendBuilderSeesStoredTimestamp(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, newFakeClock(4_242))

	ev, err := s.Append(ctx, "r1", domain.EventMessage, func(ts int64) any {
		return domain.Message{ID: "m1", UserID: "u1", Content: "hi", Timestamp: ts}
	})
	require.NoError(t, err)
	assert.Equal(t, ev.Timestamp, ev.Data.(domain.Message).Timestamp)
}

func TestMemoryStore_ObserversSeeLogOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, newFakeClock(1_000))

	var (
		mu  sync.Mutex
		got []domain.EventType
	)
	s.Observe(func(c Change) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, c.Event.Type)
	})

	_, _, _ = s.Join(ctx, "r1", "u1")
	_, _, _ = s.SetPlayback(ctx, "r1", "u1", domain.PlaybackInput{})
	_, _ = s.Append(ctx, "r1", domain.EventPlaylistChanged, func(int64) any {
		return domain.PlaylistChange{PlaylistID: "p1", ChangedBy: "u1"}
	})
	res, _ := s.Leave(ctx, "r1", "u1")

	assert.True(t, res.Closed)
	assert.Equal(t, []domain.EventType{
		domain.EventUserJoined,
		domain.EventPlaybackUpdate,
		domain.EventPlaylistChanged,
		domain.EventUserLeft,
	}, got)
}

func TestMemoryStore_Validation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, _, err := s.Join(ctx, "", "u1")
	assert.ErrorIs(t, err, domain.ErrEmptyRoomID)
	_, _, err = s.Join(ctx, "r1", "")
	assert.ErrorIs(t, err, domain.ErrEmptyUserID)
	_, err = s.Snapshot(ctx, "", 0)
	assert.ErrorIs(t, err, domain.ErrEmptyRoomID)
}

func TestMemoryStore_ConcurrentAppendsStayBounded(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _, _ = s.SetPlayback(ctx, "r1", fmt.Sprintf("u%d", w), domain.PlaybackInput{CurrentTrackIndex: i})
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, DefaultCapacity, s.Stats().Events)
}
