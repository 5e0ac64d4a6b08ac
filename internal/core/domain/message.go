package domain

import (
	"encoding/json"
	"fmt"
)

// MessageType tags a signal message. One variant exists per message kind so
// that routing can be checked exhaustively instead of dispatching on free-form
// event names.
type MessageType string

const (
	// Client to server.
	MessageJoinRoom      MessageType = "join-room"
	MessageLeaveRoom     MessageType = "leave-room"
	MessageOffer         MessageType = "offer"
	MessageAnswer        MessageType = "answer"
	MessageICECandidate  MessageType = "ice-candidate"
	MessageChat          MessageType = "chat-message"
	MessageAdminMuteAll  MessageType = "admin-mute-all"
	MessageAdminMuteUser MessageType = "admin-mute-user"
	MessageAdminKickUser MessageType = "admin-kick-user"

	// Server to client.
	MessageAdminStatus       MessageType = "admin-status"
	MessageJoinError         MessageType = "join-error"
	MessageUserConnected     MessageType = "user-connected"
	MessageUserDisconnected  MessageType = "user-disconnected"
	MessageAdminMuteCommand  MessageType = "admin-mute-command"
	MessageAdminMuteUserCmd  MessageType = "admin-mute-command-user"
	MessageAdminKickCommand  MessageType = "admin-kick-command"
)

// SignalMessage is the envelope for everything crossing the relay. Offer,
// answer and candidate payloads are forwarded opaquely; the relay never
// interprets SDP or ICE contents.
type SignalMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewSignalMessage marshals payload into a message envelope.
func NewSignalMessage(t MessageType, payload interface{}) (*SignalMessage, error) {
	if payload == nil {
		return &SignalMessage{Type: t}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return &SignalMessage{Type: t, Payload: raw}, nil
}

// MustSignalMessage is NewSignalMessage for payload types that cannot fail to
// marshal. It panics otherwise.
func MustSignalMessage(t MessageType, payload interface{}) *SignalMessage {
	msg, err := NewSignalMessage(t, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Decode unmarshals the payload into out.
func (m *SignalMessage) Decode(out interface{}) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, out); err != nil {
		return fmt.Errorf("invalid %s payload: %w", m.Type, err)
	}
	return nil
}

type JoinRoomPayload struct {
	RoomID   RoomID        `json:"roomId"`
	UserID   ParticipantID `json:"userId"`
	Password string        `json:"password,omitempty"`
	Limit    int           `json:"limit,omitempty"`
}

type AdminStatusPayload struct {
	IsAdmin bool `json:"isAdmin"`
}

type JoinErrorPayload struct {
	Message string `json:"message"`
}

// PresencePayload carries user-connected / user-disconnected notifications.
// Only the identifier is echoed; the join password never leaves the server.
type PresencePayload struct {
	UserID ParticipantID `json:"userId"`
}

// DescriptionPayload carries offers and answers. Caller is the sender; Target
// names the intended recipient, everyone else in the room discards the
// message on receipt.
type DescriptionPayload struct {
	RoomID RoomID          `json:"roomId"`
	Target ParticipantID   `json:"target"`
	Caller ParticipantID   `json:"caller"`
	SDP    json.RawMessage `json:"sdp"`
}

type CandidatePayload struct {
	RoomID    RoomID          `json:"roomId"`
	Target    ParticipantID   `json:"target"`
	Caller    ParticipantID   `json:"caller"`
	Candidate json.RawMessage `json:"candidate"`
}

type ChatPayload struct {
	RoomID  RoomID `json:"roomId"`
	Message string `json:"message"`
}

// AdminTargetPayload carries mute-user / kick-user commands and their
// rebroadcast variants. Recipients self-filter on TargetID.
type AdminTargetPayload struct {
	TargetID ParticipantID `json:"targetId"`
}
