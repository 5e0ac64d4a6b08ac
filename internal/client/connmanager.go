package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
)

// PeerState tracks where a peer link is in its lifecycle.
type PeerState int

const (
	PeerStateNew PeerState = iota
	PeerStateNegotiating
	PeerStateConnected
	PeerStateClosed
)

func (s PeerState) String() string {
	switch s {
	case PeerStateNew:
		return "new"
	case PeerStateNegotiating:
		return "negotiating"
	case PeerStateConnected:
		return "connected"
	case PeerStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventType enumerates peer lifecycle notifications.
type EventType int

const (
	EventPeerConnected EventType = iota
	EventPeerDisconnected
	EventNegotiationTimeout
	EventTrackReceived
)

// Event is delivered on the Events channel instead of via callbacks so
// consumers observe lifecycle changes in a single ordered stream.
type Event struct {
	Type   EventType
	PeerID domain.ParticipantID
}

// PeerFactory builds configured peer connections.
type PeerFactory interface {
	NewPeerConnection() (*webrtc.PeerConnection, error)
}

// peerLink is one direct connection to another participant.
type peerLink struct {
	pc        *webrtc.PeerConnection
	state     PeerState
	timer     *time.Timer
	remoteSet bool
	// candidates that arrived before the remote description
	pending []webrtc.ICECandidateInit
}

// ConnectionManager maintains one peer connection per remote participant
// of the joined room, full mesh. It reacts to relayed signaling and keeps
// local tracks published on every link.
type ConnectionManager struct {
	transport Transport
	factory   PeerFactory
	media     LocalMedia

	roomID domain.RoomID
	selfID domain.ParticipantID

	negotiationTimeout time.Duration

	mu     sync.Mutex
	peers  map[domain.ParticipantID]*peerLink
	closed bool

	events    chan Event
	closeOnce sync.Once
	logger    *zap.SugaredLogger
}

func NewConnectionManager(
	transport Transport,
	factory PeerFactory,
	media LocalMedia,
	roomID domain.RoomID,
	selfID domain.ParticipantID,
	negotiationTimeout time.Duration,
	logger *zap.SugaredLogger,
) *ConnectionManager {
	if negotiationTimeout <= 0 {
		negotiationTimeout = 30 * time.Second
	}
	return &ConnectionManager{
		transport:          transport,
		factory:            factory,
		media:              media,
		roomID:             roomID,
		selfID:             selfID,
		negotiationTimeout: negotiationTimeout,
		peers:              make(map[domain.ParticipantID]*peerLink),
		events:             make(chan Event, 32),
		logger:             logger,
	}
}

// Events delivers lifecycle notifications. The channel closes on Close.
func (m *ConnectionManager) Events() <-chan Event {
	return m.events
}

// HandleUserConnected starts negotiation towards a newly arrived
// participant. The side already in the room is always the initiator.
func (m *ConnectionManager) HandleUserConnected(userID domain.ParticipantID) error {
	link, created, err := m.ensurePeer(userID)
	if err != nil {
		return err
	}
	if !created {
		return nil // already connected or negotiating
	}

	offer, err := link.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer for %s: %w", userID, err)
	}
	if err := link.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local offer for %s: %w", userID, err)
	}

	sdp, err := json.Marshal(link.pc.LocalDescription())
	if err != nil {
		return err
	}

	msg, err := domain.NewSignalMessage(domain.MessageOffer, domain.DescriptionPayload{
		RoomID: m.roomID,
		Target: userID,
		Caller: m.selfID,
		SDP:    sdp,
	})
	if err != nil {
		return err
	}
	return m.transport.Send(msg)
}

// HandleOffer answers an incoming offer. Offers targeted at someone else
// are discarded; the relay broadcasts, recipients self-filter.
func (m *ConnectionManager) HandleOffer(payload domain.DescriptionPayload) error {
	if payload.Target != "" && payload.Target != m.selfID {
		return nil
	}

	link, _, err := m.ensurePeer(payload.Caller)
	if err != nil {
		return err
	}

	var desc webrtc.SessionDescription
	if err := json.Unmarshal(payload.SDP, &desc); err != nil {
		return fmt.Errorf("invalid offer sdp from %s: %w", payload.Caller, err)
	}
	if err := m.setRemoteDescription(payload.Caller, link, desc); err != nil {
		return err
	}

	answer, err := link.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer for %s: %w", payload.Caller, err)
	}
	if err := link.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local answer for %s: %w", payload.Caller, err)
	}

	sdp, err := json.Marshal(link.pc.LocalDescription())
	if err != nil {
		return err
	}

	msg, err := domain.NewSignalMessage(domain.MessageAnswer, domain.DescriptionPayload{
		RoomID: m.roomID,
		Target: payload.Caller,
		Caller: m.selfID,
		SDP:    sdp,
	})
	if err != nil {
		return err
	}
	return m.transport.Send(msg)
}

// HandleAnswer completes negotiation started by HandleUserConnected.
func (m *ConnectionManager) HandleAnswer(payload domain.DescriptionPayload) error {
	if payload.Target != "" && payload.Target != m.selfID {
		return nil
	}

	m.mu.Lock()
	link, exists := m.peers[payload.Caller]
	m.mu.Unlock()
	if !exists {
		return fmt.Errorf("answer from unknown peer %s", payload.Caller)
	}

	var desc webrtc.SessionDescription
	if err := json.Unmarshal(payload.SDP, &desc); err != nil {
		return fmt.Errorf("invalid answer sdp from %s: %w", payload.Caller, err)
	}
	return m.setRemoteDescription(payload.Caller, link, desc)
}

// HandleCandidate adds a trickled candidate. Failures are logged and
// swallowed: a lost candidate degrades connectivity but must not tear the
// session down.
func (m *ConnectionManager) HandleCandidate(payload domain.CandidatePayload) {
	if payload.Target != "" && payload.Target != m.selfID {
		return
	}

	m.mu.Lock()
	link, exists := m.peers[payload.Caller]
	if !exists {
		m.mu.Unlock()
		m.logger.Debugw("candidate for unknown peer discarded", "peer_id", payload.Caller)
		return
	}

	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload.Candidate, &candidate); err != nil {
		m.mu.Unlock()
		m.logger.Warnw("invalid candidate discarded", "peer_id", payload.Caller, "error", err)
		return
	}

	if !link.remoteSet {
		link.pending = append(link.pending, candidate)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if err := link.pc.AddICECandidate(candidate); err != nil {
		m.logger.Warnw("failed to add candidate", "peer_id", payload.Caller, "error", err)
	}
}

// HandleUserDisconnected tears down the link to a departed participant.
func (m *ConnectionManager) HandleUserDisconnected(userID domain.ParticipantID) {
	m.closePeer(userID, EventPeerDisconnected)
}

// ensurePeer returns the existing link for userID or creates one. Creation
// is idempotent so racing offer/user-connected handling never produces two
// connections for the same peer.
func (m *ConnectionManager) ensurePeer(userID domain.ParticipantID) (*peerLink, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, false, errors.New("connection manager is closed")
	}
	if link, exists := m.peers[userID]; exists {
		return link, false, nil
	}

	pc, err := m.factory.NewPeerConnection()
	if err != nil {
		return nil, false, err
	}

	if m.media != nil {
		for _, track := range m.media.Tracks() {
			if _, err := pc.AddTrack(track); err != nil {
				pc.Close()
				return nil, false, fmt.Errorf("add local track: %w", err)
			}
		}
	}

	link := &peerLink{pc: pc, state: PeerStateNegotiating}
	link.timer = time.AfterFunc(m.negotiationTimeout, func() {
		m.onNegotiationTimeout(userID)
	})

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		m.sendCandidate(userID, candidate)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		m.onConnectionStateChange(userID, state)
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		m.onRemoteTrack(userID, pc, track)
	})

	m.peers[userID] = link
	m.logger.Infow("peer link created", "peer_id", userID)
	return link, true, nil
}

func (m *ConnectionManager) setRemoteDescription(userID domain.ParticipantID, link *peerLink, desc webrtc.SessionDescription) error {
	if err := link.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description from %s: %w", userID, err)
	}

	m.mu.Lock()
	link.remoteSet = true
	pending := link.pending
	link.pending = nil
	m.mu.Unlock()

	for _, candidate := range pending {
		if err := link.pc.AddICECandidate(candidate); err != nil {
			m.logger.Warnw("failed to add buffered candidate", "peer_id", userID, "error", err)
		}
	}
	return nil
}

func (m *ConnectionManager) sendCandidate(userID domain.ParticipantID, candidate *webrtc.ICECandidate) {
	raw, err := json.Marshal(candidate.ToJSON())
	if err != nil {
		m.logger.Warnw("failed to marshal candidate", "peer_id", userID, "error", err)
		return
	}

	msg, err := domain.NewSignalMessage(domain.MessageICECandidate, domain.CandidatePayload{
		RoomID:    m.roomID,
		Target:    userID,
		Caller:    m.selfID,
		Candidate: raw,
	})
	if err != nil {
		m.logger.Warnw("failed to build candidate message", "peer_id", userID, "error", err)
		return
	}
	if err := m.transport.Send(msg); err != nil {
		m.logger.Warnw("failed to send candidate", "peer_id", userID, "error", err)
	}
}

func (m *ConnectionManager) onConnectionStateChange(userID domain.ParticipantID, state webrtc.PeerConnectionState) {
	m.logger.Infow("peer connection state changed", "peer_id", userID, "state", state)

	switch state {
	case webrtc.PeerConnectionStateConnected:
		m.mu.Lock()
		link, exists := m.peers[userID]
		if exists {
			link.state = PeerStateConnected
			if link.timer != nil {
				link.timer.Stop()
			}
		}
		m.mu.Unlock()
		if exists {
			m.emit(Event{Type: EventPeerConnected, PeerID: userID})
		}
	case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
		m.closePeer(userID, EventPeerDisconnected)
	}
}

func (m *ConnectionManager) onNegotiationTimeout(userID domain.ParticipantID) {
	m.mu.Lock()
	link, exists := m.peers[userID]
	if !exists || link.state == PeerStateConnected {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.logger.Warnw("negotiation timed out", "peer_id", userID, "timeout", m.negotiationTimeout)
	m.closePeer(userID, EventNegotiationTimeout)
}

// trackStats accumulates per-track receive counters. Loss is estimated
// from gaps in the RTP sequence numbers, wrap included.
type trackStats struct {
	packets uint64
	bytes   uint64
	lost    uint64
	lastSeq uint16
	primed  bool
}

func (s *trackStats) observe(pkt *rtp.Packet) {
	if s.primed {
		if gap := pkt.SequenceNumber - s.lastSeq; gap > 1 && gap < 1<<15 {
			s.lost += uint64(gap - 1)
		}
	}
	s.lastSeq = pkt.SequenceNumber
	s.primed = true
	s.packets++
	s.bytes += uint64(len(pkt.Payload))
}

// onRemoteTrack drains incoming RTP and nudges the sender with periodic
// PLI so video recovers after loss.
func (m *ConnectionManager) onRemoteTrack(userID domain.ParticipantID, pc *webrtc.PeerConnection, track *webrtc.TrackRemote) {
	m.logger.Infow("remote track received",
		"peer_id", userID, "kind", track.Kind(), "codec", track.Codec().MimeType)
	m.emit(Event{Type: EventTrackReceived, PeerID: userID})

	if track.Kind() == webrtc.RTPCodecTypeVideo {
		go func() {
			ticker := time.NewTicker(3 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				err := pc.WriteRTCP([]rtcp.Packet{
					&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())},
				})
				if err != nil {
					return
				}
			}
		}()
	}

	go func() {
		var stats trackStats
		for {
			pkt, _, err := track.ReadRTP()
			if err != nil {
				if err != io.EOF {
					m.logger.Debugw("remote track closed", "peer_id", userID, "error", err)
				}
				m.logger.Debugw("remote track stats", "peer_id", userID, "kind", track.Kind(),
					"packets", stats.packets, "bytes", stats.bytes, "lost", stats.lost)
				return
			}
			stats.observe(pkt)
		}
	}()
}

// ReplaceVideoTrack swaps the published video track on every live peer
// without renegotiation.
func (m *ConnectionManager) ReplaceVideoTrack(track webrtc.TrackLocal) error {
	m.mu.Lock()
	links := make([]*peerLink, 0, len(m.peers))
	for _, link := range m.peers {
		links = append(links, link)
	}
	m.mu.Unlock()

	for _, link := range links {
		for _, sender := range link.pc.GetSenders() {
			current := sender.Track()
			if current == nil || current.Kind() != webrtc.RTPCodecTypeVideo {
				continue
			}
			if err := sender.ReplaceTrack(track); err != nil {
				return fmt.Errorf("replace video track: %w", err)
			}
		}
	}
	return nil
}

func (m *ConnectionManager) closePeer(userID domain.ParticipantID, eventType EventType) {
	m.mu.Lock()
	link, exists := m.peers[userID]
	if !exists {
		m.mu.Unlock()
		return
	}
	delete(m.peers, userID)
	link.state = PeerStateClosed
	if link.timer != nil {
		link.timer.Stop()
	}
	m.mu.Unlock()

	link.pc.Close()
	m.logger.Infow("peer link closed", "peer_id", userID)
	m.emit(Event{Type: eventType, PeerID: userID})
}

func (m *ConnectionManager) emit(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	select {
	case m.events <- event:
	default:
		// consumer is behind; lifecycle events are advisory, drop rather
		// than block signaling
		m.logger.Warnw("event dropped", "type", event.Type, "peer_id", event.PeerID)
	}
}

// PeerState reports the state of the link to userID.
func (m *ConnectionManager) PeerState(userID domain.ParticipantID) PeerState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if link, exists := m.peers[userID]; exists {
		return link.state
	}
	return PeerStateClosed
}

// PeerCount reports the number of live peer links.
func (m *ConnectionManager) PeerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.peers)
}

// Close tears down every peer link and closes the events channel. Safe to
// call more than once.
func (m *ConnectionManager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		peers := make([]domain.ParticipantID, 0, len(m.peers))
		for userID := range m.peers {
			peers = append(peers, userID)
		}
		m.mu.Unlock()

		for _, userID := range peers {
			m.closePeer(userID, EventPeerDisconnected)
		}

		m.mu.Lock()
		close(m.events)
		m.mu.Unlock()
	})
}
