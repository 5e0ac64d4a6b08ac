package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

var roomAdjectives = []string{
	"silent", "shadow", "swift", "hidden", "dark",
	"iron", "golden", "ghost", "wind",
}

var roomNouns = []string{
	"ninja", "blade", "shuriken", "dojo", "kunai",
	"dragon", "tiger", "lotus", "smoke",
}

// GenerateParticipantID generates a unique participant ID
func GenerateParticipantID() string {
	return uuid.NewString()
}

// GenerateRoomName generates a memorable adjective-noun-number room name.
func GenerateRoomName() string {
	adj := roomAdjectives[rand.Intn(len(roomAdjectives))]
	noun := roomNouns[rand.Intn(len(roomNouns))]
	num := rand.Intn(1000)
	return fmt.Sprintf("%s-%s-%d", adj, noun, num)
}

// UniqueRoomID appends a millisecond timestamp suffix to a base name so
// that two sessions asking for the same room name do not collide.
func UniqueRoomID(base string) string {
	return fmt.Sprintf("%s-%d", base, time.Now().UnixMilli())
}
