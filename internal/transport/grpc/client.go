package grpcx

import (
	"context"
	"encoding/json"

	"github.com/cwrk-planet/room-sync/internal/domain"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client: тонкая обёртка над SyncService для Go-клиентов (и тестов).
type Client struct {
	cc    grpc.ClientConnInterface
	token string
}

func NewClient(cc grpc.ClientConnInterface, token string) *Client {
	return &Client{cc: cc, token: token}
}

type JoinResult struct {
	Success     bool     `json:"success"`
	RoomID      string   `json:"roomId"`
	UsersInRoom []string `json:"usersInRoom"`
}

func (c *Client) GetRoomUpdates(ctx context.Context, roomID string, since *int64) (domain.RoomUpdates, error) {
	req := map[string]any{"roomId": roomID}
	if since != nil {
		req["since"] = *since
	}
	var out domain.RoomUpdates
	err := c.invoke(ctx, MethodGetRoomUpdates, req, &out)
	return out, err
}

func (c *Client) UpdatePlayback(ctx context.Context, roomID string, in domain.PlaybackInput) (domain.PlaybackState, error) {
	req := map[string]any{
		"roomId":            roomID,
		"isPlaying":         in.IsPlaying,
		"currentPosition":   in.CurrentPosition,
		"currentTrackIndex": in.CurrentTrackIndex,
	}
	var out struct {
		PlaybackState domain.PlaybackState `json:"playbackState"`
	}
	err := c.invoke(ctx, MethodUpdatePlayback, req, &out)
	return out.PlaybackState, err
}

func (c *Client) SendMessage(ctx context.Context, roomID, content string) (domain.Message, error) {
	var out struct {
		Message domain.Message `json:"message"`
	}
	err := c.invoke(ctx, MethodSendMessage, map[string]any{"roomId": roomID, "content": content}, &out)
	return out.Message, err
}

func (c *Client) JoinRoom(ctx context.Context, roomID string) (JoinResult, error) {
	var out JoinResult
	err := c.invoke(ctx, MethodJoinRoom, map[string]any{"roomId": roomID}, &out)
	return out, err
}

func (c *Client) LeaveRoom(ctx context.Context, roomID string) error {
	return c.invoke(ctx, MethodLeaveRoom, map[string]any{"roomId": roomID}, nil)
}

func (c *Client) invoke(ctx context.Context, method string, req map[string]any, dst any) error {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return err
	}
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, mdAuthorization, "Bearer "+c.token)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	raw, err := json.Marshal(out.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
