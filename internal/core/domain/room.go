package domain

import "time"

type RoomID string
type ParticipantID string

// DefaultRoomCapacity is used when a join request carries no usable limit hint.
const DefaultRoomCapacity = 5

// Room is a named, capacity-bounded, optionally password-protected grouping of
// participants. Rooms are created on first join and destroyed when the last
// member leaves; the capacity and password are fixed by whichever participant
// happened to create the room.
type Room struct {
	ID        RoomID
	Members   map[ParticipantID]time.Time
	Capacity  int
	Password  string
	Admin     ParticipantID
	CreatedAt time.Time
}

func NewRoom(id RoomID, capacity int, password string, admin ParticipantID) *Room {
	if capacity <= 0 {
		capacity = DefaultRoomCapacity
	}
	now := time.Now()
	return &Room{
		ID:        id,
		Members:   map[ParticipantID]time.Time{admin: now},
		Capacity:  capacity,
		Password:  password,
		Admin:     admin,
		CreatedAt: now,
	}
}

func (r *Room) HasMember(id ParticipantID) bool {
	_, ok := r.Members[id]
	return ok
}

func (r *Room) MemberCount() int {
	return len(r.Members)
}

// MemberIDs returns the current members in no particular order.
func (r *Room) MemberIDs() []ParticipantID {
	ids := make([]ParticipantID, 0, len(r.Members))
	for id := range r.Members {
		ids = append(ids, id)
	}
	return ids
}

func (r *Room) IsFull() bool {
	return len(r.Members) >= r.Capacity
}

func (r *Room) IsAdmin(id ParticipantID) bool {
	return r.Admin == id
}

// RoomStats is the read-only shape exposed over the REST surface.
type RoomStats struct {
	RoomID       RoomID        `json:"roomId"`
	Members      int           `json:"members"`
	Capacity     int           `json:"capacity"`
	HasPassword  bool          `json:"hasPassword"`
	Admin        ParticipantID `json:"admin"`
	UptimeMillis int64         `json:"uptimeMillis"`
}
