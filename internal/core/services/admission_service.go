package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
	"github.com/suissa/purecore-ninjalive/internal/core/ports"
)

type admissionService struct {
	roomRepo ports.RoomRepository
	logger   *zap.SugaredLogger

	// Admissions are serialized: a join is an existence check, a password and
	// capacity check and a membership mutation that must be observed as one
	// step. Two racing joiners to the same id are accepted in arbitrary but
	// serial order; the second simply joins the room the first created.
	mu sync.Mutex
}

func NewAdmissionService(roomRepo ports.RoomRepository, logger *zap.SugaredLogger) ports.AdmissionService {
	return &admissionService{
		roomRepo: roomRepo,
		logger:   logger,
	}
}

func (s *admissionService) JoinRoom(ctx context.Context, roomID domain.RoomID, participantID domain.ParticipantID, password string, limitHint int) (*ports.JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		// First join creates the room under the joiner's settings and makes
		// them admin. There is no separate provisioning step.
		room = domain.NewRoom(roomID, limitHint, password, participantID)
		if err := s.roomRepo.Create(ctx, room); err != nil {
			return nil, err
		}
		s.logger.Infow("room created",
			"room_id", roomID,
			"admin", participantID,
			"capacity", room.Capacity,
			"protected", room.Password != "",
		)
		return &ports.JoinResult{RoomID: roomID, IsAdmin: true, Created: true}, nil
	}

	if room.Password != "" && room.Password != password {
		return nil, domain.ErrInvalidPassword
	}

	others := room.MemberIDs()
	if err := s.roomRepo.AddMember(ctx, roomID, participantID); err != nil {
		return nil, err
	}

	s.logger.Infow("participant joined",
		"room_id", roomID,
		"participant_id", participantID,
		"members", room.MemberCount(),
	)

	return &ports.JoinResult{
		RoomID:  roomID,
		IsAdmin: room.IsAdmin(participantID),
		Others:  others,
	}, nil
}

func (s *admissionService) Leave(ctx context.Context, roomID domain.RoomID, participantID domain.ParticipantID) (*ports.LeaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	wasAdmin := room.IsAdmin(participantID)
	if err := s.roomRepo.RemoveMember(ctx, roomID, participantID); err != nil {
		return nil, err
	}

	if room.MemberCount() == 0 {
		if err := s.roomRepo.Delete(ctx, roomID); err != nil {
			return nil, err
		}
		s.logger.Infow("room destroyed", "room_id", roomID)
		return &ports.LeaveResult{Destroyed: true}, nil
	}

	result := &ports.LeaveResult{Remaining: room.MemberIDs()}
	if wasAdmin {
		// Hand the role to an arbitrary remaining member. The new admin is
		// not notified over the wire; the reassignment is only logged.
		next := result.Remaining[0]
		if err := s.roomRepo.SetAdmin(ctx, roomID, next); err != nil {
			return nil, err
		}
		result.NewAdmin = next
		s.logger.Infow("admin reassigned",
			"room_id", roomID,
			"previous", participantID,
			"admin", next,
		)
	}

	s.logger.Infow("participant left",
		"room_id", roomID,
		"participant_id", participantID,
		"members", room.MemberCount(),
	)
	return result, nil
}

func (s *admissionService) AuthorizeAdminAction(ctx context.Context, roomID domain.RoomID, participantID domain.ParticipantID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return false
	}
	return room.IsAdmin(participantID)
}

func (s *admissionService) RoomStats(ctx context.Context, roomID domain.RoomID) (*domain.RoomStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return roomStats(room), nil
}

func (s *admissionService) ListRooms(ctx context.Context) ([]*domain.RoomStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.roomRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	stats := make([]*domain.RoomStats, 0, len(rooms))
	for _, room := range rooms {
		stats = append(stats, roomStats(room))
	}
	return stats, nil
}

func roomStats(room *domain.Room) *domain.RoomStats {
	return &domain.RoomStats{
		RoomID:       room.ID,
		Members:      room.MemberCount(),
		Capacity:     room.Capacity,
		HasPassword:  room.Password != "",
		Admin:        room.Admin,
		UptimeMillis: time.Since(room.CreatedAt).Milliseconds(),
	}
}
