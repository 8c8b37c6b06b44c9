package http

import "github.com/cwrk-planet/room-sync/internal/domain"

type PlaybackRequest struct {
	IsPlaying         bool    `json:"isPlaying"`
	CurrentPosition   float64 `json:"currentPosition"`
	CurrentTrackIndex int     `json:"currentTrackIndex"`
}

func (r PlaybackRequest) toInput() domain.PlaybackInput {
	return domain.PlaybackInput{
		IsPlaying:         r.IsPlaying,
		CurrentPosition:   r.CurrentPosition,
		CurrentTrackIndex: r.CurrentTrackIndex,
	}
}

type PlaybackResponse struct {
	Success       bool                 `json:"success"`
	PlaybackState domain.PlaybackState `json:"playbackState"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type SendMessageResponse struct {
	Success bool           `json:"success"`
	Message domain.Message `json:"message"`
}

type JoinRoomResponse struct {
	Success     bool     `json:"success"`
	RoomID      string   `json:"roomId"`
	UsersInRoom []string `json:"usersInRoom"`
}

type LeaveRoomResponse struct {
	Success bool   `json:"success"`
	RoomID  string `json:"roomId"`
}

type ErrorBody struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
