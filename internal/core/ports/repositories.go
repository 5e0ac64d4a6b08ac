package ports

import (
	"context"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
)

// RoomRepository is the in-memory room registry. Implementations guard their
// own map access; compound admission decisions (existence check, capacity,
// password) are serialized one level up by the admission service.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	Delete(ctx context.Context, id domain.RoomID) error
	ListActive(ctx context.Context) ([]*domain.Room, error)

	AddMember(ctx context.Context, roomID domain.RoomID, participantID domain.ParticipantID) error
	RemoveMember(ctx context.Context, roomID domain.RoomID, participantID domain.ParticipantID) error
	SetAdmin(ctx context.Context, roomID domain.RoomID, participantID domain.ParticipantID) error
}
