package ws

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cwrk-planet/room-sync/internal/domain"
	"github.com/cwrk-planet/room-sync/internal/metrics"
	"github.com/cwrk-planet/room-sync/pkg/logger"
)

// Handle разбирает один кадр клиента и выполняет действие.
// Ошибок клиенту не отправляем: неподходящие сообщения молча отбрасываются,
// но учитываются в метриках и debug-логе.
func (h *Hub) Handle(ctx context.Context, c Conn, data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		h.drop(ctx, "", metrics.DropBadPayload, err)
		return
	}

	var err error
	switch in.Type {
	case TypeJoinRoom:
		var req RoomRequest
		if err = decode(in.Payload, &req); err != nil {
			break
		}
		var ack JoinAck
		if ack, err = h.Join(ctx, c, req.RoomID); err != nil {
			break
		}
		if sendErr := c.Send(Message{Type: TypeAck, ID: in.ID, Payload: ack}); sendErr != nil {
			h.sendFailed(c, req.RoomID, sendErr)
		}

	case TypeLeaveRoom:
		var req RoomRequest
		if err = decode(in.Payload, &req); err == nil {
			err = h.Leave(ctx, c, req.RoomID)
		}

	case TypePlaybackUpdate:
		var req PlaybackRequest
		if err = decode(in.Payload, &req); err == nil {
			err = h.UpdatePlayback(ctx, c, req)
		}

	case TypeSendMessage:
		var payload map[string]any
		if err = decode(in.Payload, &payload); err != nil {
			break
		}
		roomID, _ := payload["roomId"].(string)
		err = h.SendMessage(ctx, c, roomID, payload)

	case TypePlaylistChange:
		var req PlaylistChangeRequest
		if err = decode(in.Payload, &req); err == nil {
			err = h.ChangePlaylist(ctx, c, req)
		}

	case TypeUserActivity:
		var req UserActivityRequest
		if err = decode(in.Payload, &req); err == nil {
			err = h.ReportActivity(ctx, c, req)
		}

	default:
		err = domain.ErrUnknownAction
	}

	if err != nil {
		h.drop(ctx, in.Type, reasonFor(err), err)
	}
}

// drop: логгер в ctx уже несёт conn и user.
func (h *Hub) drop(ctx context.Context, typ, reason string, err error) {
	h.metrics.Drop(reason)
	logger.FromContext(ctx).Debug("ws message dropped",
		"type", typ, "reason", reason, "err", err)
}

var errBadPayload = errors.New("bad payload")

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return errBadPayload
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.Join(errBadPayload, err)
	}
	return nil
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotInRoom), errors.Is(err, domain.ErrEmptyRoomID):
		return metrics.DropNotInRoom
	case errors.Is(err, errBadPayload):
		return metrics.DropBadPayload
	case errors.Is(err, domain.ErrUnknownAction):
		return metrics.DropUnknownType
	default:
		return metrics.DropStoreError
	}
}
