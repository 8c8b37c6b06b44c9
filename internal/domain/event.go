package domain

// EventType: имя события; одно и то же для журнала комнаты и для push-канала.
type EventType string

const (
	EventUserJoined      EventType = "user-joined"
	EventUserLeft        EventType = "user-left"
	EventPlaybackUpdate  EventType = "playback-update"
	EventMessage         EventType = "message"
	EventPlaylistChanged EventType = "playlist-changed"
	EventUserActivity    EventType = "user-activity"
)

// Event: запись журнала комнаты. Timestamp в миллисекундах Unix,
// назначается хранилищем в момент записи.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp int64     `json:"timestamp"`
}

type PeerEvent struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}

type PlaylistChange struct {
	PlaylistID string `json:"playlistId"`
	ChangedBy  string `json:"changedBy"`
}

type UserActivity struct {
	UserID    string `json:"userId"`
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
}
