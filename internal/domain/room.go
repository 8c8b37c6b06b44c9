package domain

type Participant struct {
	UserID   string `json:"userId"`
	JoinedAt int64  `json:"joinedAt"`
}

// RoomUpdates это ответ на polling-запрос, текущее состояние комнаты
// и события строго после since.
type RoomUpdates struct {
	RoomID        string         `json:"roomId"`
	Users         []Participant  `json:"users"`
	PlaybackState *PlaybackState `json:"playbackState"`
	Updates       []Event        `json:"updates"`
	Timestamp     int64          `json:"timestamp"`
}

// EmptyRoomUpdates: форма ответа для комнаты, о которой ничего не известно.
func EmptyRoomUpdates(roomID string, now int64) RoomUpdates {
	return RoomUpdates{
		RoomID:    roomID,
		Users:     []Participant{},
		Updates:   []Event{},
		Timestamp: now,
	}
}
