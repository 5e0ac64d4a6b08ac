package signal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
	"github.com/suissa/purecore-ninjalive/internal/core/services"
	"github.com/suissa/purecore-ninjalive/internal/infrastructure/monitoring"
	"github.com/suissa/purecore-ninjalive/internal/infrastructure/repositories/memory"
)

func newTestServer(t *testing.T) (*WebSocketServer, *httptest.Server) {
	t.Helper()

	admission := services.NewAdmissionService(memory.NewRoomRepository(), zap.NewNop().Sugar())
	srv := NewWebSocketServer(admission, monitoring.NewPrometheusCollector(), DefaultOptions(), zap.NewNop().Sugar())

	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWebSocket))
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType domain.MessageType, payload interface{}) {
	t.Helper()

	msg, err := domain.NewSignalMessage(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

func receive(t *testing.T, conn *websocket.Conn) *domain.SignalMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg domain.SignalMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return &msg
}

func join(t *testing.T, conn *websocket.Conn, roomID, userID, password string, limit int) *domain.SignalMessage {
	t.Helper()

	send(t, conn, domain.MessageJoinRoom, domain.JoinRoomPayload{
		RoomID:   domain.RoomID(roomID),
		UserID:   domain.ParticipantID(userID),
		Password: password,
		Limit:    limit,
	})
	return receive(t, conn)
}

func TestJoinCreatesRoomAndGrantsAdmin(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)

	reply := join(t, conn, "dojo", "user-a", "", 0)
	require.Equal(t, domain.MessageAdminStatus, reply.Type)

	var status domain.AdminStatusPayload
	require.NoError(t, reply.Decode(&status))
	assert.True(t, status.IsAdmin)
}

func TestSecondJoinerIsNotAdminAndOthersAreNotified(t *testing.T) {
	_, ts := newTestServer(t)
	connA := dial(t, ts)
	connB := dial(t, ts)

	join(t, connA, "dojo", "user-a", "", 0)

	reply := join(t, connB, "dojo", "user-b", "", 0)
	require.Equal(t, domain.MessageAdminStatus, reply.Type)

	var status domain.AdminStatusPayload
	require.NoError(t, reply.Decode(&status))
	assert.False(t, status.IsAdmin)

	notification := receive(t, connA)
	require.Equal(t, domain.MessageUserConnected, notification.Type)

	var presence domain.PresencePayload
	require.NoError(t, notification.Decode(&presence))
	assert.Equal(t, domain.ParticipantID("user-b"), presence.UserID)
}

func TestJoinRejectedWhenRoomFull(t *testing.T) {
	_, ts := newTestServer(t)
	connA := dial(t, ts)
	connB := dial(t, ts)
	connC := dial(t, ts)

	join(t, connA, "tiny", "user-a", "", 2)
	join(t, connB, "tiny", "user-b", "", 2)

	reply := join(t, connC, "tiny", "user-c", "", 2)
	require.Equal(t, domain.MessageJoinError, reply.Type)

	var joinErr domain.JoinErrorPayload
	require.NoError(t, reply.Decode(&joinErr))
	assert.Equal(t, "Room is full.", joinErr.Message)
}

func TestJoinRejectedOnWrongPassword(t *testing.T) {
	_, ts := newTestServer(t)
	connA := dial(t, ts)
	connB := dial(t, ts)

	join(t, connA, "secret", "user-a", "hunter2", 0)

	reply := join(t, connB, "secret", "user-b", "wrong", 0)
	require.Equal(t, domain.MessageJoinError, reply.Type)

	var joinErr domain.JoinErrorPayload
	require.NoError(t, reply.Decode(&joinErr))
	assert.Equal(t, "Invalid password.", joinErr.Message)
}

func TestOfferRelayedWithCallerOverwritten(t *testing.T) {
	_, ts := newTestServer(t)
	connA := dial(t, ts)
	connB := dial(t, ts)

	join(t, connA, "dojo", "user-a", "", 0)
	join(t, connB, "dojo", "user-b", "", 0)
	receive(t, connA) // user-connected for user-b

	send(t, connB, domain.MessageOffer, domain.DescriptionPayload{
		RoomID: "dojo",
		Target: "user-a",
		Caller: "spoofed-identity",
		SDP:    json.RawMessage(`{"type":"offer","sdp":"v=0"}`),
	})

	relayed := receive(t, connA)
	require.Equal(t, domain.MessageOffer, relayed.Type)

	var payload domain.DescriptionPayload
	require.NoError(t, relayed.Decode(&payload))
	assert.Equal(t, domain.ParticipantID("user-b"), payload.Caller)
	assert.Equal(t, domain.ParticipantID("user-a"), payload.Target)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(payload.SDP))
}

func TestCandidateNotEchoedToSender(t *testing.T) {
	_, ts := newTestServer(t)
	connA := dial(t, ts)
	connB := dial(t, ts)

	join(t, connA, "dojo", "user-a", "", 0)
	join(t, connB, "dojo", "user-b", "", 0)
	receive(t, connA)

	send(t, connA, domain.MessageICECandidate, domain.CandidatePayload{
		RoomID:    "dojo",
		Target:    "user-b",
		Candidate: json.RawMessage(`{"candidate":"candidate:1"}`),
	})

	relayed := receive(t, connB)
	require.Equal(t, domain.MessageICECandidate, relayed.Type)

	// sender must not see its own candidate back; the next message it
	// receives while alone in flight would block, so probe with a deadline
	connA.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var echo domain.SignalMessage
	err := connA.ReadJSON(&echo)
	assert.Error(t, err, "sender should not receive its own candidate")
}

func TestChatRelayedAndSanitized(t *testing.T) {
	_, ts := newTestServer(t)
	connA := dial(t, ts)
	connB := dial(t, ts)

	join(t, connA, "dojo", "user-a", "", 0)
	join(t, connB, "dojo", "user-b", "", 0)
	receive(t, connA)

	send(t, connB, domain.MessageChat, domain.ChatPayload{
		RoomID:  "dojo",
		Message: "  hello\x00 dojo  ",
	})

	relayed := receive(t, connA)
	require.Equal(t, domain.MessageChat, relayed.Type)

	var payload domain.ChatPayload
	require.NoError(t, relayed.Decode(&payload))
	assert.Equal(t, "hello dojo", payload.Message)
}

func TestAdminMuteAllRebroadcastOnlyFromAdmin(t *testing.T) {
	_, ts := newTestServer(t)
	connA := dial(t, ts)
	connB := dial(t, ts)

	join(t, connA, "dojo", "user-a", "", 0)
	join(t, connB, "dojo", "user-b", "", 0)
	receive(t, connA)

	// non-admin command is silently dropped
	send(t, connB, domain.MessageAdminMuteAll, nil)

	// admin command reaches the other member
	send(t, connA, domain.MessageAdminMuteAll, nil)

	relayed := receive(t, connB)
	assert.Equal(t, domain.MessageAdminMuteCommand, relayed.Type)

	connA.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var dropped domain.SignalMessage
	err := connA.ReadJSON(&dropped)
	assert.Error(t, err, "non-admin command must not be rebroadcast")
}

func TestAdminKickCarriesTarget(t *testing.T) {
	_, ts := newTestServer(t)
	connA := dial(t, ts)
	connB := dial(t, ts)

	join(t, connA, "dojo", "user-a", "", 0)
	join(t, connB, "dojo", "user-b", "", 0)
	receive(t, connA)

	send(t, connA, domain.MessageAdminKickUser, domain.AdminTargetPayload{TargetID: "user-b"})

	relayed := receive(t, connB)
	require.Equal(t, domain.MessageAdminKickCommand, relayed.Type)

	var payload domain.AdminTargetPayload
	require.NoError(t, relayed.Decode(&payload))
	assert.Equal(t, domain.ParticipantID("user-b"), payload.TargetID)
}

func TestDisconnectNotifiesRoom(t *testing.T) {
	_, ts := newTestServer(t)
	connA := dial(t, ts)
	connB := dial(t, ts)

	join(t, connA, "dojo", "user-a", "", 0)
	join(t, connB, "dojo", "user-b", "", 0)
	receive(t, connA)

	require.NoError(t, connB.Close())

	notification := receive(t, connA)
	require.Equal(t, domain.MessageUserDisconnected, notification.Type)

	var presence domain.PresencePayload
	require.NoError(t, notification.Decode(&presence))
	assert.Equal(t, domain.ParticipantID("user-b"), presence.UserID)
}

func TestRoomDestroyedOnLastLeaveAllowsRecreation(t *testing.T) {
	_, ts := newTestServer(t)
	connA := dial(t, ts)

	join(t, connA, "secret", "user-a", "hunter2", 0)
	send(t, connA, domain.MessageLeaveRoom, nil)

	// a fresh join with a different password must succeed because the old
	// room was destroyed when it emptied
	connB := dial(t, ts)
	reply := join(t, connB, "secret", "user-b", "other-password", 0)
	require.Equal(t, domain.MessageAdminStatus, reply.Type)

	var status domain.AdminStatusPayload
	require.NoError(t, reply.Decode(&status))
	assert.True(t, status.IsAdmin)
}

func TestSignalingBeforeJoinIsIgnored(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)

	send(t, conn, domain.MessageOffer, domain.DescriptionPayload{
		RoomID: "dojo",
		SDP:    json.RawMessage(`{}`),
	})

	// connection stays open and a join still works afterwards
	reply := join(t, conn, "dojo", "user-a", "", 0)
	assert.Equal(t, domain.MessageAdminStatus, reply.Type)
}

func TestPerSenderOrderingPreserved(t *testing.T) {
	_, ts := newTestServer(t)
	connA := dial(t, ts)
	connB := dial(t, ts)

	join(t, connA, "dojo", "user-a", "", 0)
	join(t, connB, "dojo", "user-b", "", 0)
	receive(t, connA)

	const n = 20
	for i := 0; i < n; i++ {
		send(t, connB, domain.MessageICECandidate, domain.CandidatePayload{
			RoomID:    "dojo",
			Target:    "user-a",
			Candidate: json.RawMessage([]byte(`{"seq":` + string(rune('0'+i%10)) + `}`)),
		})
	}

	lastSeq := -1
	for i := 0; i < n; i++ {
		relayed := receive(t, connA)
		require.Equal(t, domain.MessageICECandidate, relayed.Type)

		var payload domain.CandidatePayload
		require.NoError(t, relayed.Decode(&payload))

		var body struct {
			Seq int `json:"seq"`
		}
		require.NoError(t, json.Unmarshal(payload.Candidate, &body))
		expected := (lastSeq + 1) % 10
		require.Equal(t, expected, body.Seq, "candidates must arrive in send order")
		lastSeq = body.Seq
	}
}
