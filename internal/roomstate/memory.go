package roomstate

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cwrk-planet/room-sync/internal/domain"
)

type room struct {
	participants map[string]domain.Participant
	order        []string // порядок входа
	playback     *domain.PlaybackState
	log          *eventLog
}

func (r *room) userIDs() []string {
	return slices.Clone(r.order)
}

type MemoryStore struct {
	mu        sync.RWMutex
	rooms     map[string]*room
	capacity  int
	now       func() time.Time
	last      int64
	observers []Observer
}

type Option func(*MemoryStore)

func WithCapacity(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		rooms:    make(map[string]*room),
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *MemoryStore) Observe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Now: текущее время хранилища в мс; не меньше последней выданной метки.
func (s *MemoryStore) Now() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return max(s.now().UnixMilli(), s.last)
}

func (s *MemoryStore) Snapshot(_ context.Context, roomID string, since int64) (domain.RoomUpdates, error) {
	if roomID == "" {
		return domain.RoomUpdates{}, domain.ErrEmptyRoomID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := max(s.now().UnixMilli(), s.last)
	r, ok := s.rooms[roomID]
	if !ok {
		return domain.EmptyRoomUpdates(roomID, now), nil
	}

	users := make([]domain.Participant, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, r.participants[id])
	}
	var pb *domain.PlaybackState
	if r.playback != nil {
		cp := *r.playback
		pb = &cp
	}

	return domain.RoomUpdates{
		RoomID:        roomID,
		Users:         users,
		PlaybackState: pb,
		Updates:       r.log.since(since),
		Timestamp:     now,
	}, nil
}

func (s *MemoryStore) Join(_ context.Context, roomID, userID string) ([]string, domain.Event, error) {
	if err := validate(roomID, userID); err != nil {
		return nil, domain.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.stamp()
	r := s.materialize(roomID)
	if _, ok := r.participants[userID]; !ok {
		r.participants[userID] = domain.Participant{UserID: userID, JoinedAt: ts}
		r.order = append(r.order, userID)
	}
	ev := s.record(roomID, r, domain.EventUserJoined, domain.PeerEvent{UserID: userID, RoomID: roomID}, ts, false)

	return r.userIDs(), ev, nil
}

func (s *MemoryStore) Leave(_ context.Context, roomID, userID string) (LeaveResult, error) {
	if err := validate(roomID, userID); err != nil {
		return LeaveResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return LeaveResult{}, nil
	}

	if _, joined := r.participants[userID]; joined {
		delete(r.participants, userID)
		r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == userID })
	}

	closed := len(r.participants) == 0
	if closed {
		delete(s.rooms, roomID)
	}
	ev := s.record(roomID, r, domain.EventUserLeft, domain.PeerEvent{UserID: userID, RoomID: roomID}, s.stamp(), closed)

	return LeaveResult{
		Event:     ev,
		Remaining: len(r.participants),
		Closed:    closed,
		Existed:   true,
	}, nil
}

func (s *MemoryStore) SetPlayback(_ context.Context, roomID, userID string, in domain.PlaybackInput) (domain.PlaybackState, domain.Event, error) {
	if err := validate(roomID, userID); err != nil {
		return domain.PlaybackState{}, domain.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.stamp()
	r := s.materialize(roomID)
	state := domain.NewPlaybackState(userID, in, ts)
	r.playback = &state
	ev := s.record(roomID, r, domain.EventPlaybackUpdate, state, ts, false)

	return state, ev, nil
}

func (s *MemoryStore) Append(_ context.Context, roomID string, typ domain.EventType, build func(ts int64) any) (domain.Event, error) {
	if roomID == "" {
		return domain.Event{}, domain.ErrEmptyRoomID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.stamp()
	r := s.materialize(roomID)
	var data any
	if build != nil {
		data = build(ts)
	}

	return s.record(roomID, r, typ, data, ts, false), nil
}

func (s *MemoryStore) Participants(_ context.Context, roomID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return []string{}, nil
	}
	return r.userIDs(), nil
}

func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Rooms: len(s.rooms)}
	for _, r := range s.rooms {
		st.Participants += len(r.participants)
		st.Events += r.log.len()
	}
	return st
}

// --- helpers; вызываются под s.mu ---

func (s *MemoryStore) stamp() int64 {
	ts := s.now().UnixMilli()
	if ts < s.last {
		ts = s.last
	}
	s.last = ts
	return ts
}

func (s *MemoryStore) materialize(roomID string) *room {
	r, ok := s.rooms[roomID]
	if !ok {
		r = &room{
			participants: make(map[string]domain.Participant),
			log:          newEventLog(s.capacity),
		}
		s.rooms[roomID] = r
	}
	return r
}

func (s *MemoryStore) record(roomID string, r *room, typ domain.EventType, data any, ts int64, closed bool) domain.Event {
	ev := domain.Event{Type: typ, Data: data, Timestamp: ts}
	r.log.append(ev)

	ch := Change{RoomID: roomID, Event: ev, Closed: closed}
	for _, o := range s.observers {
		o(ch)
	}
	return ev
}

func validate(roomID, userID string) error {
	if roomID == "" {
		return domain.ErrEmptyRoomID
	}
	if userID == "" {
		return domain.ErrEmptyUserID
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
