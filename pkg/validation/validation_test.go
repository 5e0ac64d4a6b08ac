package validation

import (
	"strings"
	"testing"
)

func TestValidateRoomID(t *testing.T) {
	tests := []struct {
		name    string
		roomID  string
		wantErr bool
	}{
		{"valid id", "daily-standup", false},
		{"valid with digits", "room42", false},
		{"valid with suffix", "demo-1718029misc", false},
		{"empty", "", true},
		{"spaces", "my room", true},
		{"slash", "room/42", true},
		{"too long", strings.Repeat("a", 101), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoomID(tt.roomID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRoomID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateParticipantID(t *testing.T) {
	tests := []struct {
		name          string
		participantID string
		wantErr       bool
	}{
		{"valid uuid-ish", "1b4db7eb-4057-5ddf-91e0-36dec72071f5", false},
		{"valid short", "peer_1", false},
		{"empty", "", true},
		{"dots", "peer.1", true},
		{"too long", strings.Repeat("x", 101), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParticipantID(tt.participantID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateParticipantID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword(""); err != nil {
		t.Errorf("empty password should be valid (open room), got: %v", err)
	}
	if err := ValidatePassword("hunter2"); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
	if err := ValidatePassword(strings.Repeat("p", 200)); err == nil {
		t.Error("expected error for oversized password")
	}
}

func TestValidateCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		wantErr  bool
	}{
		{"zero means default", 0, false},
		{"typical", 5, false},
		{"max", 50, false},
		{"negative", -1, true},
		{"too high", 51, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCapacity(tt.capacity)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCapacity() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChatMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{"valid", "hello everyone", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"too long", strings.Repeat("m", 2001), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChatMessage(tt.message)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateChatMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateServerURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"ws", "ws://localhost:8081/ws", false},
		{"wss", "wss://meet.example.com/ws", false},
		{"http", "http://example.com", true},
		{"empty", "", true},
		{"no host", "ws://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServerURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateServerURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
