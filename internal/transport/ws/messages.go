package ws

import "encoding/json"

// События, которые присылает клиент
const (
	TypeJoinRoom       = "join-room"
	TypeLeaveRoom      = "leave-room"
	TypePlaybackUpdate = "playback-update"
	TypeSendMessage    = "send-message"
	TypePlaylistChange = "playlist-change"
	TypeUserActivity   = "user-activity"
)

// Ответ инициатору на join-room; id совпадает с id запроса.
const TypeAck = "ack"

type Message struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type inbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

type RoomRequest struct {
	RoomID string `json:"roomId"`
}

type PlaybackRequest struct {
	RoomID            string  `json:"roomId"`
	IsPlaying         bool    `json:"isPlaying"`
	CurrentPosition   float64 `json:"currentPosition"`
	CurrentTrackIndex int     `json:"currentTrackIndex"`
}

type PlaylistChangeRequest struct {
	RoomID     string `json:"roomId"`
	PlaylistID string `json:"playlistId"`
}

type UserActivityRequest struct {
	RoomID string `json:"roomId"`
	Action string `json:"action"`
}

type JoinAck struct {
	Success     bool     `json:"success"`
	RoomID      string   `json:"roomId"`
	UsersInRoom []string `json:"usersInRoom"`
}
