package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cwrk-planet/room-sync/internal/domain"
	"github.com/cwrk-planet/room-sync/internal/roomstate"
	"github.com/cwrk-planet/room-sync/pkg/logger"

	"github.com/google/uuid"
)

const DefaultSinceWindow = 5 * time.Second

// SyncService: операции polling-транспорта. Идентичность пользователя
// приходит уже проверенной из транспорта; здесь аутентификации нет.
type SyncService struct {
	store       roomstate.Store
	sinceWindow time.Duration
	newID       func() string
}

func NewSyncService(store roomstate.Store, sinceWindow time.Duration) *SyncService {
	if sinceWindow <= 0 {
		sinceWindow = DefaultSinceWindow
	}
	return &SyncService{
		store:       store,
		sinceWindow: sinceWindow,
		newID:       uuid.NewString,
	}
}

// GetRoomUpdates ничего не меняет. since == nil означает «последние sinceWindow».
func (s *SyncService) GetRoomUpdates(ctx context.Context, roomID string, since *int64) (domain.RoomUpdates, error) {
	var from int64
	if since != nil {
		from = *since
	} else {
		from = s.store.Now() - s.sinceWindow.Milliseconds()
	}

	upd, err := s.store.Snapshot(ctx, roomID, from)
	if err != nil {
		return domain.RoomUpdates{}, fmt.Errorf("store.Snapshot: %w", err)
	}
	return upd, nil
}

func (s *SyncService) UpdatePlayback(ctx context.Context, roomID, userID string, in domain.PlaybackInput) (domain.PlaybackState, error) {
	state, _, err := s.store.SetPlayback(ctx, roomID, userID, in)
	if err != nil {
		return domain.PlaybackState{}, fmt.Errorf("store.SetPlayback: %w", err)
	}
	logger.FromContext(ctx).Debug("sync.playback", logger.Room(roomID), logger.User(userID),
		"playing", state.IsPlaying, "track", state.CurrentTrackIndex)
	return state, nil
}

func (s *SyncService) SendMessage(ctx context.Context, roomID, userID, content string) (domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, domain.ErrEmptyContent
	}
	if userID == "" {
		return domain.Message{}, domain.ErrEmptyUserID
	}

	var msg domain.Message
	_, err := s.store.Append(ctx, roomID, domain.EventMessage, func(ts int64) any {
		msg = domain.Message{
			ID:        s.newID(),
			UserID:    userID,
			Content:   content,
			Timestamp: ts,
		}
		return msg
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("store.Append: %w", err)
	}
	return msg, nil
}

// JoinRoom возвращает идентификаторы всех участников комнаты после входа.
func (s *SyncService) JoinRoom(ctx context.Context, roomID, userID string) ([]string, error) {
	users, _, err := s.store.Join(ctx, roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("store.Join: %w", err)
	}
	logger.FromContext(ctx).Debug("sync.join", logger.Room(roomID), logger.User(userID), "users", len(users))
	return users, nil
}

func (s *SyncService) LeaveRoom(ctx context.Context, roomID, userID string) error {
	res, err := s.store.Leave(ctx, roomID, userID)
	if err != nil {
		return fmt.Errorf("store.Leave: %w", err)
	}
	if res.Closed {
		logger.FromContext(ctx).Debug("sync.room_closed", logger.Room(roomID))
	}
	return nil
}
