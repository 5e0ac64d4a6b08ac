package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
	"github.com/suissa/purecore-ninjalive/pkg/retry"
	"github.com/suissa/purecore-ninjalive/pkg/utils"
)

// SessionConfig describes one participant's attempt to join a meeting.
type SessionConfig struct {
	ServerURL string
	RoomName  string
	Password  string
	Limit     int

	// CreateUniqueRoom appends a timestamp suffix to RoomName so two
	// sessions asking for the same fresh name do not collide. Joining an
	// existing room uses the name verbatim.
	CreateUniqueRoom bool

	JoinTimeout        time.Duration
	NegotiationTimeout time.Duration
	Retry              retry.Config
}

// NotificationKind classifies out-of-band session notices.
type NotificationKind int

const (
	NotificationChat NotificationKind = iota
	NotificationMuted
	NotificationKicked
)

type Notification struct {
	Kind NotificationKind
	Text string
}

// JoinError is the admission rejection as reported by the server.
type JoinError struct {
	Message string
}

func (e *JoinError) Error() string {
	return e.Message
}

// Session drives one participant end to end: media acquisition, signaling,
// admission and the full mesh of peer links.
type Session struct {
	cfg     SessionConfig
	factory PeerFactory
	open    MediaOpener

	transport Transport
	media     LocalMedia
	profile   MediaProfile
	manager   *ConnectionManager

	roomID  domain.RoomID
	selfID  domain.ParticipantID
	isAdmin bool

	notifications chan Notification
	closeOnce     sync.Once
	logger        *zap.SugaredLogger
}

func NewSession(cfg SessionConfig, factory PeerFactory, open MediaOpener, logger *zap.SugaredLogger) *Session {
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 10 * time.Second
	}
	return &Session{
		cfg:           cfg,
		factory:       factory,
		open:          open,
		notifications: make(chan Notification, 16),
		logger:        logger,
	}
}

// Join acquires media, connects to the relay and requests admission. It
// blocks until the server grants or refuses entry. Media acquisition
// happens first: a participant who cannot capture anything never reaches
// the room.
func (s *Session) Join(ctx context.Context) error {
	media, profile, err := OpenWithFallback(s.open, s.logger)
	if err != nil {
		return err
	}
	s.media = media
	s.profile = profile

	s.selfID = domain.ParticipantID(utils.GenerateParticipantID())
	if s.cfg.CreateUniqueRoom {
		s.roomID = domain.RoomID(utils.UniqueRoomID(s.cfg.RoomName))
	} else {
		s.roomID = domain.RoomID(s.cfg.RoomName)
	}

	transport, err := Dial(ctx, s.cfg.ServerURL, s.cfg.Retry, s.logger)
	if err != nil {
		s.media.Close()
		return err
	}
	s.transport = transport

	s.manager = NewConnectionManager(
		transport, s.factory, s.media,
		s.roomID, s.selfID,
		s.cfg.NegotiationTimeout, s.logger,
	)

	joinMsg, err := domain.NewSignalMessage(domain.MessageJoinRoom, domain.JoinRoomPayload{
		RoomID:   s.roomID,
		UserID:   s.selfID,
		Password: s.cfg.Password,
		Limit:    s.cfg.Limit,
	})
	if err != nil {
		s.teardown()
		return err
	}
	if err := s.transport.Send(joinMsg); err != nil {
		s.teardown()
		return err
	}

	if err := s.awaitAdmission(ctx); err != nil {
		s.teardown()
		return err
	}

	s.logger.Infow("joined room",
		"room_id", s.roomID,
		"participant_id", s.selfID,
		"is_admin", s.isAdmin,
		"audio", profile.Audio,
		"video", profile.Video,
	)

	go s.run()
	return nil
}

// awaitAdmission blocks until the server answers the join request.
func (s *Session) awaitAdmission(ctx context.Context) error {
	timer := time.NewTimer(s.cfg.JoinTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return errors.New("timed out waiting for admission")
		case msg, ok := <-s.transport.Receive():
			if !ok {
				return errors.New("connection closed before admission")
			}

			switch msg.Type {
			case domain.MessageAdminStatus:
				var status domain.AdminStatusPayload
				if err := msg.Decode(&status); err != nil {
					return err
				}
				s.isAdmin = status.IsAdmin
				return nil
			case domain.MessageJoinError:
				var joinErr domain.JoinErrorPayload
				if err := msg.Decode(&joinErr); err != nil {
					return err
				}
				return &JoinError{Message: joinErr.Message}
			default:
				// the relay never sends room traffic before admission
				s.logger.Warnw("unexpected message before admission", "type", msg.Type)
			}
		}
	}
}

// run dispatches relayed messages until the connection is gone.
func (s *Session) run() {
	for msg := range s.transport.Receive() {
		if err := s.dispatch(msg); err != nil {
			s.logger.Warnw("message handling failed", "type", msg.Type, "error", err)
		}
	}
	s.logger.Infow("signaling connection ended", "room_id", s.roomID)
	s.Leave()
}

func (s *Session) dispatch(msg *domain.SignalMessage) error {
	switch msg.Type {
	case domain.MessageUserConnected:
		var presence domain.PresencePayload
		if err := msg.Decode(&presence); err != nil {
			return err
		}
		return s.manager.HandleUserConnected(presence.UserID)

	case domain.MessageUserDisconnected:
		var presence domain.PresencePayload
		if err := msg.Decode(&presence); err != nil {
			return err
		}
		s.manager.HandleUserDisconnected(presence.UserID)
		return nil

	case domain.MessageOffer:
		var desc domain.DescriptionPayload
		if err := msg.Decode(&desc); err != nil {
			return err
		}
		return s.manager.HandleOffer(desc)

	case domain.MessageAnswer:
		var desc domain.DescriptionPayload
		if err := msg.Decode(&desc); err != nil {
			return err
		}
		return s.manager.HandleAnswer(desc)

	case domain.MessageICECandidate:
		var candidate domain.CandidatePayload
		if err := msg.Decode(&candidate); err != nil {
			return err
		}
		s.manager.HandleCandidate(candidate)
		return nil

	case domain.MessageChat:
		var chat domain.ChatPayload
		if err := msg.Decode(&chat); err != nil {
			return err
		}
		s.notify(Notification{Kind: NotificationChat, Text: chat.Message})
		return nil

	case domain.MessageAdminMuteCommand:
		// the admin who issued the command does not mute themselves
		if !s.isAdmin {
			s.media.SetAudioEnabled(false)
			s.notify(Notification{Kind: NotificationMuted, Text: "Admin muted everyone."})
		}
		return nil

	case domain.MessageAdminMuteUserCmd:
		var target domain.AdminTargetPayload
		if err := msg.Decode(&target); err != nil {
			return err
		}
		if target.TargetID == s.selfID {
			s.media.SetAudioEnabled(false)
			s.notify(Notification{Kind: NotificationMuted, Text: "Admin muted you."})
		}
		return nil

	case domain.MessageAdminKickCommand:
		var target domain.AdminTargetPayload
		if err := msg.Decode(&target); err != nil {
			return err
		}
		if target.TargetID == s.selfID {
			s.notify(Notification{Kind: NotificationKicked, Text: "You have been kicked by the admin."})
			go s.Leave()
		}
		return nil

	default:
		s.logger.Debugw("unhandled message", "type", msg.Type)
		return nil
	}
}

// SendChat relays a chat message to the rest of the room.
func (s *Session) SendChat(text string) error {
	msg, err := domain.NewSignalMessage(domain.MessageChat, domain.ChatPayload{
		RoomID:  s.roomID,
		Message: text,
	})
	if err != nil {
		return err
	}
	return s.transport.Send(msg)
}

// MuteAll asks the relay to mute every other participant. The server
// drops the command if this session is not the admin.
func (s *Session) MuteAll() error {
	msg, err := domain.NewSignalMessage(domain.MessageAdminMuteAll, nil)
	if err != nil {
		return err
	}
	return s.transport.Send(msg)
}

func (s *Session) MuteUser(target domain.ParticipantID) error {
	msg, err := domain.NewSignalMessage(domain.MessageAdminMuteUser, domain.AdminTargetPayload{TargetID: target})
	if err != nil {
		return err
	}
	return s.transport.Send(msg)
}

func (s *Session) KickUser(target domain.ParticipantID) error {
	msg, err := domain.NewSignalMessage(domain.MessageAdminKickUser, domain.AdminTargetPayload{TargetID: target})
	if err != nil {
		return err
	}
	return s.transport.Send(msg)
}

func (s *Session) SetAudioEnabled(enabled bool) {
	if s.media != nil {
		s.media.SetAudioEnabled(enabled)
	}
}

func (s *Session) SetVideoEnabled(enabled bool) {
	if s.media != nil {
		s.media.SetVideoEnabled(enabled)
	}
}

// ReplaceVideoSource swaps the outbound video track on every peer link
// in place, without renegotiation. Used for screen-share style source
// changes mid-call.
func (s *Session) ReplaceVideoSource(track webrtc.TrackLocal) error {
	if s.manager == nil {
		return errors.New("session not joined")
	}
	return s.manager.ReplaceVideoTrack(track)
}

func (s *Session) RoomID() domain.RoomID        { return s.roomID }
func (s *Session) SelfID() domain.ParticipantID { return s.selfID }
func (s *Session) IsAdmin() bool                { return s.isAdmin }
func (s *Session) Profile() MediaProfile        { return s.profile }

// Events exposes peer lifecycle events once joined.
func (s *Session) Events() <-chan Event {
	return s.manager.Events()
}

// Notifications delivers chat and admin notices.
func (s *Session) Notifications() <-chan Notification {
	return s.notifications
}

func (s *Session) notify(n Notification) {
	select {
	case s.notifications <- n:
	default:
	}
}

// Leave announces departure and tears everything down. Safe to call more
// than once.
func (s *Session) Leave() {
	s.closeOnce.Do(func() {
		if s.transport != nil {
			if msg, err := domain.NewSignalMessage(domain.MessageLeaveRoom, nil); err == nil {
				s.transport.Send(msg)
			}
		}
		s.teardown()
		s.logger.Infow("left room", "room_id", s.roomID)
	})
}

// teardown releases resources but leaves the fields set: the run loop may
// still be draining buffered messages.
func (s *Session) teardown() {
	if s.manager != nil {
		s.manager.Close()
	}
	if s.transport != nil {
		s.transport.Close()
	}
	if s.media != nil {
		s.media.Close()
	}
}

// WaitForPeer blocks until the link to any peer reaches connected, a
// negotiation timeout fires, or ctx expires. Useful for headless callers
// that want to know the mesh is live.
func (s *Session) WaitForPeer(ctx context.Context) (domain.ParticipantID, error) {
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case event, ok := <-s.manager.Events():
			if !ok {
				return "", errors.New("session closed")
			}
			switch event.Type {
			case EventPeerConnected:
				return event.PeerID, nil
			case EventNegotiationTimeout:
				return "", fmt.Errorf("negotiation with %s timed out", event.PeerID)
			}
		}
	}
}
