package domain

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrInvalidPassword     = errors.New("invalid password")
	ErrAlreadyJoined       = errors.New("participant already joined")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotJoined           = errors.New("participant has not joined a room")
)

// Join rejections are surfaced to the rejected participant verbatim, so the
// wording here is part of the wire contract.
const (
	JoinErrorRoomFull        = "Room is full."
	JoinErrorInvalidPassword = "Invalid password."
	JoinErrorInternal        = "Could not join the room."
)

// JoinErrorMessage maps an admission failure to its user-visible message.
func JoinErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrRoomFull):
		return JoinErrorRoomFull
	case errors.Is(err, ErrInvalidPassword):
		return JoinErrorInvalidPassword
	default:
		return JoinErrorInternal
	}
}
