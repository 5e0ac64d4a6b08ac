package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// RoomIDRegex validates room ID format
	RoomIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// ParticipantIDRegex validates participant ID format
	ParticipantIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

const (
	MaxRoomIDLength        = 100
	MaxParticipantIDLength = 100
	MaxPasswordLength      = 128
	MaxChatMessageLength   = 2000
	MaxRoomCapacity        = 50
)

// ValidateRoomID validates room ID
func ValidateRoomID(roomID string) error {
	if roomID == "" {
		return fmt.Errorf("room ID is required")
	}
	if len(roomID) > MaxRoomIDLength {
		return fmt.Errorf("room ID is too long (max %d characters)", MaxRoomIDLength)
	}
	if !RoomIDRegex.MatchString(roomID) {
		return fmt.Errorf("invalid room ID format")
	}
	return nil
}

// ValidateParticipantID validates participant ID
func ValidateParticipantID(participantID string) error {
	if participantID == "" {
		return fmt.Errorf("participant ID is required")
	}
	if len(participantID) > MaxParticipantIDLength {
		return fmt.Errorf("participant ID is too long (max %d characters)", MaxParticipantIDLength)
	}
	if !ParticipantIDRegex.MatchString(participantID) {
		return fmt.Errorf("invalid participant ID format")
	}
	return nil
}

// ValidatePassword validates a room password. An empty password is valid
// and means the room is open.
func ValidatePassword(password string) error {
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password is too long (max %d characters)", MaxPasswordLength)
	}
	return nil
}

// ValidateCapacity validates a requested room capacity hint. Zero means
// "use the default" and is valid.
func ValidateCapacity(capacity int) error {
	if capacity < 0 {
		return fmt.Errorf("capacity must not be negative")
	}
	if capacity > MaxRoomCapacity {
		return fmt.Errorf("capacity is too high (max %d)", MaxRoomCapacity)
	}
	return nil
}

// ValidateChatMessage validates chat message content
func ValidateChatMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("message is required")
	}
	if utf8.RuneCountInString(message) > MaxChatMessageLength {
		return fmt.Errorf("message is too long (max %d characters)", MaxChatMessageLength)
	}
	if !utf8.ValidString(message) {
		return fmt.Errorf("message contains invalid characters")
	}
	return nil
}

// ValidateServerURL validates a signaling server URL
func ValidateServerURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("server URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid URL scheme (must be ws or wss)")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}
