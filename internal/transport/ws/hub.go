package ws

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"

	"github.com/cwrk-planet/room-sync/internal/domain"
	"github.com/cwrk-planet/room-sync/internal/metrics"
	"github.com/cwrk-planet/room-sync/internal/roomstate"
	"github.com/cwrk-planet/room-sync/pkg/logger"
)

var ErrUnknownConn = errors.New("connection is not registered")

type Conn interface {
	ID() string
	UserID() string
	Send(msg Message) error
	Close() error
}

type session struct {
	conn   Conn
	roomID string
}

// Hub: реестр push-соединений и подписок на комнаты.
// Состояние комнат живёт в roomstate.Store; Hub получает каждое записанное
// событие через Observer и раздаёт его подписчикам комнаты.
//
// Порядок блокировок: store -> hub. Методы Hub не вызывают store под h.mu.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session        // connID -> session
	rooms    map[string]map[string]Conn // roomID -> connID -> conn

	store   roomstate.Store
	metrics *metrics.Metrics
}

func NewHub(store roomstate.Store, m *metrics.Metrics) *Hub {
	h := &Hub{
		sessions: make(map[string]*session),
		rooms:    make(map[string]map[string]Conn),
		store:    store,
		metrics:  m,
	}
	store.Observe(h.deliver)
	return h
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	h.sessions[c.ID()] = &session{conn: c}
	h.mu.Unlock()

	h.metrics.Connections.Inc()
	slog.Info("ws connected", logger.Conn(c.ID()), logger.User(c.UserID()))
}

// Unregister при отключении: неявный выход из комнаты и удаление соединения.
func (h *Hub) Unregister(ctx context.Context, c Conn) {
	h.mu.Lock()
	s, ok := h.sessions[c.ID()]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, c.ID())
	roomID := s.roomID
	h.unsubscribe(roomID, c.ID())
	h.mu.Unlock()

	h.metrics.Connections.Dec()
	if roomID != "" {
		if _, err := h.store.Leave(ctx, roomID, c.UserID()); err != nil {
			logger.FromContext(ctx).Warn("ws leave on disconnect failed", logger.Room(roomID), "err", err)
		}
	}
	slog.Info("ws disconnected", logger.Conn(c.ID()), logger.User(c.UserID()), logger.Room(roomID))
}

// Join переводит соединение в комнату. Если соединение уже в другой комнате,
// сначала выполняется выход из неё. Повторный вход в ту же комнату только
// обновляет участника: без user-left и без удаления комнаты.
func (h *Hub) Join(ctx context.Context, c Conn, roomID string) (JoinAck, error) {
	if roomID == "" {
		return JoinAck{}, domain.ErrEmptyRoomID
	}

	h.mu.Lock()
	s, ok := h.sessions[c.ID()]
	if !ok {
		h.mu.Unlock()
		return JoinAck{}, ErrUnknownConn
	}
	prev := s.roomID
	if prev != roomID {
		h.unsubscribe(prev, c.ID())
		h.subscribe(roomID, c)
		s.roomID = roomID
	}
	h.mu.Unlock()

	if prev != "" && prev != roomID {
		if _, err := h.store.Leave(ctx, prev, c.UserID()); err != nil {
			return JoinAck{}, err
		}
	}

	// подписка уже есть, поэтому user-joined получит и сам инициатор
	users, _, err := h.store.Join(ctx, roomID, c.UserID())
	if err != nil {
		return JoinAck{}, err
	}

	return JoinAck{Success: true, RoomID: roomID, UsersInRoom: users}, nil
}

func (h *Hub) Leave(ctx context.Context, c Conn, roomID string) error {
	h.mu.Lock()
	s, ok := h.sessions[c.ID()]
	if !ok {
		h.mu.Unlock()
		return ErrUnknownConn
	}
	if roomID == "" || s.roomID != roomID {
		h.mu.Unlock()
		return domain.ErrNotInRoom
	}
	h.unsubscribe(roomID, c.ID())
	s.roomID = ""
	h.mu.Unlock()

	_, err := h.store.Leave(ctx, roomID, c.UserID())
	return err
}

func (h *Hub) UpdatePlayback(ctx context.Context, c Conn, req PlaybackRequest) error {
	if err := h.ensureMember(c, req.RoomID); err != nil {
		return err
	}
	_, _, err := h.store.SetPlayback(ctx, req.RoomID, c.UserID(), domain.PlaybackInput{
		IsPlaying:         req.IsPlaying,
		CurrentPosition:   req.CurrentPosition,
		CurrentTrackIndex: req.CurrentTrackIndex,
	})
	return err
}

// SendMessage пересылает полезную нагрузку клиента как есть, добавляя
// userId отправителя и timestamp записи.
func (h *Hub) SendMessage(ctx context.Context, c Conn, roomID string, payload map[string]any) error {
	if err := h.ensureMember(c, roomID); err != nil {
		return err
	}
	_, err := h.store.Append(ctx, roomID, domain.EventMessage, func(ts int64) any {
		out := maps.Clone(payload)
		if out == nil {
			out = make(map[string]any, 2)
		}
		out["userId"] = c.UserID()
		out["timestamp"] = ts
		return out
	})
	return err
}

func (h *Hub) ChangePlaylist(ctx context.Context, c Conn, req PlaylistChangeRequest) error {
	if err := h.ensureMember(c, req.RoomID); err != nil {
		return err
	}
	_, err := h.store.Append(ctx, req.RoomID, domain.EventPlaylistChanged, func(int64) any {
		return domain.PlaylistChange{PlaylistID: req.PlaylistID, ChangedBy: c.UserID()}
	})
	return err
}

func (h *Hub) ReportActivity(ctx context.Context, c Conn, req UserActivityRequest) error {
	if err := h.ensureMember(c, req.RoomID); err != nil {
		return err
	}
	_, err := h.store.Append(ctx, req.RoomID, domain.EventUserActivity, func(ts int64) any {
		return domain.UserActivity{UserID: c.UserID(), Action: req.Action, Timestamp: ts}
	})
	return err
}

// RoomOf возвращает комнату соединения ("" если не в комнате).
func (h *Hub) RoomOf(connID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.sessions[connID]; ok {
		return s.roomID
	}
	return ""
}

func (h *Hub) Stats() (conns, rooms int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions), len(h.rooms)
}

// Close закрывает все соединения; их read loop сам вызовет Unregister.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.sessions))
	for _, s := range h.sessions {
		conns = append(conns, s.conn)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

// deliver: Observer хранилища; вызывается под блокировкой store.
func (h *Hub) deliver(ch roomstate.Change) {
	// последний участник ушёл: сообщать некому
	if ch.Closed && ch.Event.Type == domain.EventUserLeft {
		return
	}
	msg := Message{Type: string(ch.Event.Type), Payload: ch.Event.Data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.rooms[ch.RoomID] {
		if err := c.Send(msg); err != nil {
			h.sendFailed(c, ch.RoomID, err)
			continue
		}
		h.metrics.Delivered.Inc()
	}
}

// sendFailed: переполненную очередь закрываем, уже закрытое соединение
// пропускаем молча (его read loop сам вызовет Unregister).
func (h *Hub) sendFailed(c Conn, roomID string, err error) {
	switch {
	case errors.Is(err, ErrSlowConsumer):
		h.metrics.SlowConsumers.Inc()
		slog.Warn("ws slow consumer, closing", logger.Conn(c.ID()), logger.Room(roomID))
		go func() { _ = c.Close() }()
	case errors.Is(err, ErrConnClosed):
	default:
		slog.Debug("ws send failed", logger.Conn(c.ID()), logger.Room(roomID), "err", err)
	}
}

func (h *Hub) ensureMember(c Conn, roomID string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, ok := h.sessions[c.ID()]
	if !ok {
		return ErrUnknownConn
	}
	if roomID == "" || s.roomID != roomID {
		return domain.ErrNotInRoom
	}
	return nil
}

// под h.mu
func (h *Hub) subscribe(roomID string, c Conn) {
	rs, ok := h.rooms[roomID]
	if !ok {
		rs = make(map[string]Conn)
		h.rooms[roomID] = rs
	}
	rs[c.ID()] = c
}

// под h.mu
func (h *Hub) unsubscribe(roomID, connID string) {
	if roomID == "" {
		return
	}
	if rs, ok := h.rooms[roomID]; ok {
		delete(rs, connID)
		if len(rs) == 0 {
			delete(h.rooms, roomID)
		}
	}
}
