package domain

// PlaybackInput: то, что присылает клиент. Снимок всегда заменяется целиком.
type PlaybackInput struct {
	IsPlaying         bool    `json:"isPlaying"`
	CurrentPosition   float64 `json:"currentPosition"`
	CurrentTrackIndex int     `json:"currentTrackIndex"`
}

type PlaybackState struct {
	UserID            string  `json:"userId"`
	IsPlaying         bool    `json:"isPlaying"`
	CurrentPosition   float64 `json:"currentPosition"`
	CurrentTrackIndex int     `json:"currentTrackIndex"`
	Timestamp         int64   `json:"timestamp"`
}

func NewPlaybackState(userID string, in PlaybackInput, ts int64) PlaybackState {
	return PlaybackState{
		UserID:            userID,
		IsPlaying:         in.IsPlaying,
		CurrentPosition:   in.CurrentPosition,
		CurrentTrackIndex: in.CurrentTrackIndex,
		Timestamp:         ts,
	}
}
