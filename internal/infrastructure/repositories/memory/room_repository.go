package memory

import (
	"context"
	"sync"
	"time"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
	"github.com/suissa/purecore-ninjalive/internal/core/ports"
)

// RoomRepository keeps all room state in process memory. Room state is
// deliberately ephemeral; a restart forgets every room, password and capacity.
type RoomRepository struct {
	rooms map[domain.RoomID]*domain.Room
	mu    sync.RWMutex
}

func NewRoomRepository() ports.RoomRepository {
	return &RoomRepository{
		rooms: make(map[domain.RoomID]*domain.Room),
	}
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.ID]; exists {
		return domain.ErrAlreadyJoined
	}
	r.rooms[room.ID] = room
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[id]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (r *RoomRepository) Delete(ctx context.Context, id domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[id]; !exists {
		return domain.ErrRoomNotFound
	}
	delete(r.rooms, id)
	return nil
}

func (r *RoomRepository) ListActive(ctx context.Context) ([]*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]*domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (r *RoomRepository) AddMember(ctx context.Context, roomID domain.RoomID, participantID domain.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return domain.ErrRoomNotFound
	}
	if room.HasMember(participantID) {
		return domain.ErrAlreadyJoined
	}
	if room.IsFull() {
		return domain.ErrRoomFull
	}
	room.Members[participantID] = time.Now()
	return nil
}

func (r *RoomRepository) RemoveMember(ctx context.Context, roomID domain.RoomID, participantID domain.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return domain.ErrRoomNotFound
	}
	if !room.HasMember(participantID) {
		return domain.ErrParticipantNotFound
	}
	delete(room.Members, participantID)
	return nil
}

func (r *RoomRepository) SetAdmin(ctx context.Context, roomID domain.RoomID, participantID domain.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return domain.ErrRoomNotFound
	}
	if !room.HasMember(participantID) {
		return domain.ErrParticipantNotFound
	}
	room.Admin = participantID
	return nil
}
