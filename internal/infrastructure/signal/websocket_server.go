package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
	"github.com/suissa/purecore-ninjalive/internal/core/ports"
	"github.com/suissa/purecore-ninjalive/internal/infrastructure/monitoring"
	"github.com/suissa/purecore-ninjalive/pkg/utils"
	"github.com/suissa/purecore-ninjalive/pkg/validation"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Options tunes connection keepalive and abuse limits.
type Options struct {
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	MessagesPerSecond float64
	MessageBurst      int
	MaxMessageSize    int64
}

func DefaultOptions() Options {
	return Options{
		PingInterval:      30 * time.Second,
		PongTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		MessagesPerSecond: 100,
		MessageBurst:      200,
		MaxMessageSize:    64 * 1024,
	}
}

// WebSocketServer relays signaling traffic between participants of a room.
// Offers, answers and candidates pass through opaquely; the relay only
// routes them.
type WebSocketServer struct {
	admission ports.AdmissionService
	metrics   *monitoring.PrometheusCollector
	opts      Options

	mu          sync.RWMutex
	connections map[domain.ParticipantID]*client
	rooms       map[domain.RoomID]map[*client]struct{}

	logger *zap.SugaredLogger
}

// client is one websocket connection. All writes go through the send
// channel so messages from the server keep their order per recipient.
type client struct {
	conn          *websocket.Conn
	send          chan *domain.SignalMessage
	participantID domain.ParticipantID
	roomID        domain.RoomID
	joinedAt      time.Time
	limiter       *rate.Limiter
	closeOnce     sync.Once
	done          chan struct{}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func NewWebSocketServer(admission ports.AdmissionService, metrics *monitoring.PrometheusCollector, opts Options, logger *zap.SugaredLogger) *WebSocketServer {
	return &WebSocketServer{
		admission:   admission,
		metrics:     metrics,
		opts:        opts,
		connections: make(map[domain.ParticipantID]*client),
		rooms:       make(map[domain.RoomID]map[*client]struct{}),
		logger:      logger,
	}
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn:    conn,
		send:    make(chan *domain.SignalMessage, 32),
		limiter: rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), s.opts.MessageBurst),
		done:    make(chan struct{}),
	}

	go s.writePump(c)
	s.readLoop(c)
	s.disconnect(c)
}

// writePump owns all writes on the connection, including keepalive pings.
func (s *WebSocketServer) writePump(c *client) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				s.logger.Infow("write failed, dropping connection",
					"participant_id", c.participantID, "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (s *WebSocketServer) readLoop(c *client) {
	if s.opts.MaxMessageSize > 0 {
		c.conn.SetReadLimit(s.opts.MaxMessageSize)
	}
	c.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
		return nil
	})

	for {
		var msg domain.SignalMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Infow("read failed", "participant_id", c.participantID, "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))

		if !c.limiter.Allow() {
			s.logger.Warnw("rate limit exceeded, closing connection",
				"participant_id", c.participantID)
			return
		}

		if err := s.handleMessage(context.Background(), c, &msg); err != nil {
			s.logger.Infow("error handling message",
				"participant_id", c.participantID, "type", msg.Type, "error", err)
		}
	}
}

func (s *WebSocketServer) handleMessage(ctx context.Context, c *client, msg *domain.SignalMessage) error {
	switch msg.Type {
	case domain.MessageJoinRoom:
		return s.handleJoinRoom(ctx, c, msg)
	case domain.MessageLeaveRoom:
		return s.handleLeaveRoom(ctx, c)
	case domain.MessageOffer, domain.MessageAnswer:
		return s.handleDescription(ctx, c, msg)
	case domain.MessageICECandidate:
		return s.handleCandidate(ctx, c, msg)
	case domain.MessageChat:
		return s.handleChat(ctx, c, msg)
	case domain.MessageAdminMuteAll:
		return s.handleAdminCommand(ctx, c, domain.MessageAdminMuteCommand, nil)
	case domain.MessageAdminMuteUser:
		return s.handleTargetedAdminCommand(ctx, c, msg, domain.MessageAdminMuteUserCmd)
	case domain.MessageAdminKickUser:
		return s.handleTargetedAdminCommand(ctx, c, msg, domain.MessageAdminKickCommand)
	default:
		s.logger.Warnw("unknown message type", "type", msg.Type)
		return nil
	}
}

func (s *WebSocketServer) handleJoinRoom(ctx context.Context, c *client, msg *domain.SignalMessage) error {
	var payload domain.JoinRoomPayload
	if err := msg.Decode(&payload); err != nil {
		s.sendJoinError(c, domain.JoinErrorInternal)
		return err
	}

	if err := validation.ValidateRoomID(string(payload.RoomID)); err != nil {
		s.sendJoinError(c, domain.JoinErrorInternal)
		return err
	}
	if err := validation.ValidateParticipantID(string(payload.UserID)); err != nil {
		s.sendJoinError(c, domain.JoinErrorInternal)
		return err
	}

	result, err := s.admission.JoinRoom(ctx, payload.RoomID, payload.UserID, payload.Password, payload.Limit)
	if err != nil {
		reason := domain.JoinErrorMessage(err)
		s.metrics.RecordJoinRejected(reason)
		s.sendJoinError(c, reason)
		return err
	}

	c.participantID = payload.UserID
	c.roomID = payload.RoomID
	c.joinedAt = time.Now()

	s.mu.Lock()
	if prev, ok := s.connections[payload.UserID]; ok && prev != c {
		// stale connection for the same identity
		prev.close()
	}
	s.connections[payload.UserID] = c
	members, ok := s.rooms[payload.RoomID]
	if !ok {
		members = make(map[*client]struct{})
		s.rooms[payload.RoomID] = members
	}
	members[c] = struct{}{}
	s.mu.Unlock()

	if result.Created {
		s.metrics.RecordRoomCreated(payload.RoomID)
	}
	s.metrics.RecordJoin(payload.RoomID, len(result.Others)+1)

	s.logger.Infow("participant joined",
		"room_id", payload.RoomID,
		"participant_id", payload.UserID,
		"is_admin", result.IsAdmin,
		"members", len(result.Others)+1,
	)

	s.sendToClient(c, domain.MustSignalMessage(domain.MessageAdminStatus, domain.AdminStatusPayload{
		IsAdmin: result.IsAdmin,
	}))

	s.broadcastToRoom(payload.RoomID, c, domain.MustSignalMessage(domain.MessageUserConnected, domain.PresencePayload{
		UserID: payload.UserID,
	}))
	return nil
}

func (s *WebSocketServer) handleLeaveRoom(ctx context.Context, c *client) error {
	if c.roomID == "" {
		return domain.ErrNotJoined
	}
	s.leaveRoom(ctx, c)
	return nil
}

// handleDescription relays offers and answers. The caller field is always
// overwritten with the authenticated sender so a participant cannot speak
// for another.
func (s *WebSocketServer) handleDescription(ctx context.Context, c *client, msg *domain.SignalMessage) error {
	if c.roomID == "" {
		return domain.ErrNotJoined
	}

	var payload domain.DescriptionPayload
	if err := msg.Decode(&payload); err != nil {
		return err
	}
	if payload.RoomID != c.roomID {
		return domain.ErrNotJoined
	}
	payload.Caller = c.participantID

	out, err := domain.NewSignalMessage(msg.Type, payload)
	if err != nil {
		return err
	}

	s.metrics.RecordMessageRelayed(msg.Type)
	s.broadcastToRoom(c.roomID, c, out)
	return nil
}

func (s *WebSocketServer) handleCandidate(ctx context.Context, c *client, msg *domain.SignalMessage) error {
	if c.roomID == "" {
		return domain.ErrNotJoined
	}

	var payload domain.CandidatePayload
	if err := msg.Decode(&payload); err != nil {
		return err
	}
	if payload.RoomID != c.roomID {
		return domain.ErrNotJoined
	}
	payload.Caller = c.participantID

	out, err := domain.NewSignalMessage(domain.MessageICECandidate, payload)
	if err != nil {
		return err
	}

	s.metrics.RecordMessageRelayed(domain.MessageICECandidate)
	s.broadcastToRoom(c.roomID, c, out)
	return nil
}

func (s *WebSocketServer) handleChat(ctx context.Context, c *client, msg *domain.SignalMessage) error {
	if c.roomID == "" {
		return domain.ErrNotJoined
	}

	var payload domain.ChatPayload
	if err := msg.Decode(&payload); err != nil {
		return err
	}

	payload.RoomID = c.roomID
	payload.Message = utils.SanitizeString(payload.Message)
	if err := validation.ValidateChatMessage(payload.Message); err != nil {
		return err
	}

	out, err := domain.NewSignalMessage(domain.MessageChat, payload)
	if err != nil {
		return err
	}

	s.metrics.RecordMessageRelayed(domain.MessageChat)
	s.broadcastToRoom(c.roomID, c, out)
	return nil
}

// handleAdminCommand rebroadcasts an admin command to everyone else in the
// room. Commands from non-admins are dropped without a reply so admin
// identity is never confirmed to other members.
func (s *WebSocketServer) handleAdminCommand(ctx context.Context, c *client, outType domain.MessageType, payload interface{}) error {
	if c.roomID == "" {
		return domain.ErrNotJoined
	}
	if !s.admission.AuthorizeAdminAction(ctx, c.roomID, c.participantID) {
		s.logger.Warnw("unauthorized admin command dropped",
			"room_id", c.roomID, "participant_id", c.participantID, "command", outType)
		return nil
	}

	out, err := domain.NewSignalMessage(outType, payload)
	if err != nil {
		return err
	}

	s.metrics.RecordMessageRelayed(outType)
	s.broadcastToRoom(c.roomID, c, out)
	return nil
}

func (s *WebSocketServer) handleTargetedAdminCommand(ctx context.Context, c *client, msg *domain.SignalMessage, outType domain.MessageType) error {
	var payload domain.AdminTargetPayload
	if err := msg.Decode(&payload); err != nil {
		return err
	}
	return s.handleAdminCommand(ctx, c, outType, payload)
}

// disconnect runs once the read loop ends, for any reason.
func (s *WebSocketServer) disconnect(c *client) {
	if c.roomID != "" {
		s.leaveRoom(context.Background(), c)
	}

	s.mu.Lock()
	if s.connections[c.participantID] == c {
		delete(s.connections, c.participantID)
	}
	s.mu.Unlock()

	c.close()
	if c.participantID != "" {
		s.logger.Infow("participant disconnected", "participant_id", c.participantID)
	}
}

func (s *WebSocketServer) leaveRoom(ctx context.Context, c *client) {
	roomID := c.roomID
	participantID := c.participantID

	s.mu.Lock()
	if members, ok := s.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(s.rooms, roomID)
		}
	}
	s.mu.Unlock()
	c.roomID = ""

	result, err := s.admission.Leave(ctx, roomID, participantID)
	if err != nil {
		s.logger.Warnw("leave failed", "room_id", roomID, "participant_id", participantID, "error", err)
		return
	}

	s.metrics.RecordLeave(roomID, len(result.Remaining), time.Since(c.joinedAt))
	if result.Destroyed {
		s.metrics.RecordRoomDestroyed(roomID)
	}

	s.broadcastToRoom(roomID, c, domain.MustSignalMessage(domain.MessageUserDisconnected, domain.PresencePayload{
		UserID: participantID,
	}))
}

func (s *WebSocketServer) broadcastToRoom(roomID domain.RoomID, except *client, msg *domain.SignalMessage) {
	s.mu.RLock()
	members := make([]*client, 0, len(s.rooms[roomID]))
	for member := range s.rooms[roomID] {
		if member != except {
			members = append(members, member)
		}
	}
	s.mu.RUnlock()

	for _, member := range members {
		s.sendToClient(member, msg)
	}
}

func (s *WebSocketServer) sendToClient(c *client, msg *domain.SignalMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// slow consumer, drop the connection rather than block the room
		s.logger.Warnw("send buffer full, dropping connection", "participant_id", c.participantID)
		c.close()
	}
}

func (s *WebSocketServer) sendJoinError(c *client, message string) {
	s.sendToClient(c, domain.MustSignalMessage(domain.MessageJoinError, domain.JoinErrorPayload{
		Message: message,
	}))
}

// ConnectedParticipants reports currently registered participants, for
// health reporting.
func (s *WebSocketServer) ConnectedParticipants() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}
