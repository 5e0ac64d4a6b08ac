package ports

import (
	"context"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
)

// JoinResult is returned to the joining participant. Others carries the
// members present before the join so the relay can announce the arrival.
type JoinResult struct {
	RoomID  domain.RoomID
	IsAdmin bool
	Created bool
	Others  []domain.ParticipantID
}

// LeaveResult describes the room after a departure. NewAdmin is non-empty
// only when the admin left and the role was handed to a remaining member.
type LeaveResult struct {
	Destroyed bool
	NewAdmin  domain.ParticipantID
	Remaining []domain.ParticipantID
}

// AdmissionService validates join requests against the room registry and
// owns room lifecycle. Rooms are created on first join and destroyed when the
// last member leaves.
type AdmissionService interface {
	// JoinRoom admits participantID into roomID, creating the room with the
	// given password and limit hint if it does not exist. Fails with
	// domain.ErrRoomFull or domain.ErrInvalidPassword otherwise.
	JoinRoom(ctx context.Context, roomID domain.RoomID, participantID domain.ParticipantID, password string, limitHint int) (*JoinResult, error)

	// Leave removes the participant, destroying the room if it empties and
	// reassigning the admin role if the admin left.
	Leave(ctx context.Context, roomID domain.RoomID, participantID domain.ParticipantID) (*LeaveResult, error)

	// AuthorizeAdminAction reports whether participantID is the current admin
	// of roomID. Callers are untrusted until checked; unauthorized commands
	// are dropped without an error so admin identity is never confirmed to
	// non-admins.
	AuthorizeAdminAction(ctx context.Context, roomID domain.RoomID, participantID domain.ParticipantID) bool

	RoomStats(ctx context.Context, roomID domain.RoomID) (*domain.RoomStats, error)
	ListRooms(ctx context.Context) ([]*domain.RoomStats, error)
}
