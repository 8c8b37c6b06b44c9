package domain

import "errors"

var (
	ErrEmptyRoomID   = errors.New("room id is required")
	ErrEmptyUserID   = errors.New("user id is required")
	ErrInvalidSince  = errors.New("invalid since timestamp")
	ErrEmptyContent  = errors.New("message content is required")
	ErrNotInRoom     = errors.New("connection is not in the room")
	ErrUnknownAction = errors.New("unknown action")
)
