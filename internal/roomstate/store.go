// Package roomstate хранит состояние комнат: участников, последний снимок
// воспроизведения и ограниченный журнал событий. Один экземпляр Store
// передаётся и push-, и pull-транспорту.
package roomstate

import (
	"context"

	"github.com/cwrk-planet/room-sync/internal/domain"
)

const DefaultCapacity = 100

// Change: событие, только что записанное в журнал комнаты.
// Closed == true, если после этого события комната удалена (ушёл последний участник).
type Change struct {
	RoomID string
	Event  domain.Event
	Closed bool
}

// Observer вызывается синхронно внутри критической секции хранилища,
// поэтому порядок вызовов совпадает с порядком журнала. Блокироваться нельзя.
type Observer func(Change)

type LeaveResult struct {
	Event     domain.Event
	Remaining int
	Closed    bool
	Existed   bool
}

type Stats struct {
	Rooms        int
	Participants int
	Events       int
}

type Store interface {
	Snapshot(ctx context.Context, roomID string, since int64) (domain.RoomUpdates, error)
	Join(ctx context.Context, roomID, userID string) ([]string, domain.Event, error)
	Leave(ctx context.Context, roomID, userID string) (LeaveResult, error)
	SetPlayback(ctx context.Context, roomID, userID string, in domain.PlaybackInput) (domain.PlaybackState, domain.Event, error)
	Append(ctx context.Context, roomID string, typ domain.EventType, build func(ts int64) any) (domain.Event, error)
	Participants(ctx context.Context, roomID string) ([]string, error)
	Now() int64
	Observe(o Observer)
	Stats() Stats
}
