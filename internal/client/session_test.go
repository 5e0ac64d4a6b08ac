package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/suissa/purecore-ninjalive/internal/core/services"
	"github.com/suissa/purecore-ninjalive/internal/infrastructure/monitoring"
	"github.com/suissa/purecore-ninjalive/internal/infrastructure/repositories/memory"
	"github.com/suissa/purecore-ninjalive/internal/infrastructure/signal"
	"github.com/suissa/purecore-ninjalive/pkg/retry"

	ninjartc "github.com/suissa/purecore-ninjalive/internal/infrastructure/webrtc"
)

func newRelay(t *testing.T) string {
	t.Helper()

	admission := services.NewAdmissionService(memory.NewRoomRepository(), zap.NewNop().Sugar())
	srv := signal.NewWebSocketServer(admission, monitoring.NewPrometheusCollector(), signal.DefaultOptions(), zap.NewNop().Sugar())

	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWebSocket))
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func syntheticOpener(profile MediaProfile) (LocalMedia, error) {
	return ninjartc.NewSyntheticMedia(profile.Audio, profile.Video)
}

func newSession(t *testing.T, serverURL, room string, limit int, password string) *Session {
	t.Helper()

	cfg := SessionConfig{
		ServerURL:   serverURL,
		RoomName:    room,
		Password:    password,
		Limit:       limit,
		JoinTimeout: 5 * time.Second,
		Retry:       retry.DefaultConfig(),
	}
	s := NewSession(cfg, newTrackingFactory(), syntheticOpener, zap.NewNop().Sugar())
	t.Cleanup(s.Leave)
	return s
}

func TestJoinFirstParticipantBecomesAdmin(t *testing.T) {
	url := newRelay(t)

	s := newSession(t, url, "dojo", 0, "")
	require.NoError(t, s.Join(context.Background()))

	assert.True(t, s.IsAdmin())
	assert.Equal(t, "dojo", string(s.RoomID()))
	assert.NotEmpty(t, s.SelfID())
	assert.True(t, s.Profile().Audio)
	assert.True(t, s.Profile().Video)
}

func TestCreateUniqueRoomAppendsSuffix(t *testing.T) {
	url := newRelay(t)

	cfg := SessionConfig{
		ServerURL:        url,
		RoomName:         "dojo",
		CreateUniqueRoom: true,
		JoinTimeout:      5 * time.Second,
		Retry:            retry.DefaultConfig(),
	}
	s := NewSession(cfg, newTrackingFactory(), syntheticOpener, zap.NewNop().Sugar())
	t.Cleanup(s.Leave)

	require.NoError(t, s.Join(context.Background()))
	assert.True(t, strings.HasPrefix(string(s.RoomID()), "dojo-"))
	assert.Greater(t, len(s.RoomID()), len("dojo-"))
}

func TestJoinRejectedWhenFull(t *testing.T) {
	url := newRelay(t)

	first := newSession(t, url, "tiny", 1, "")
	require.NoError(t, first.Join(context.Background()))

	second := newSession(t, url, "tiny", 1, "")
	err := second.Join(context.Background())
	require.Error(t, err)

	var joinErr *JoinError
	require.True(t, errors.As(err, &joinErr))
	assert.Equal(t, "Room is full.", joinErr.Message)
}

func TestJoinRejectedOnBadPassword(t *testing.T) {
	url := newRelay(t)

	first := newSession(t, url, "secret", 0, "hunter2")
	require.NoError(t, first.Join(context.Background()))

	second := newSession(t, url, "secret", 0, "wrong")
	err := second.Join(context.Background())
	require.Error(t, err)

	var joinErr *JoinError
	require.True(t, errors.As(err, &joinErr))
	assert.Equal(t, "Invalid password.", joinErr.Message)
}

func TestChatReachesOtherParticipant(t *testing.T) {
	url := newRelay(t)

	a := newSession(t, url, "dojo", 0, "")
	require.NoError(t, a.Join(context.Background()))

	b := newSession(t, url, "dojo", 0, "")
	require.NoError(t, b.Join(context.Background()))
	assert.False(t, b.IsAdmin())

	require.NoError(t, b.SendChat("konnichiwa"))

	select {
	case n := <-a.Notifications():
		assert.Equal(t, NotificationChat, n.Kind)
		assert.Equal(t, "konnichiwa", n.Text)
	case <-time.After(3 * time.Second):
		t.Fatal("chat message never arrived")
	}
}

func TestMuteAllMutesOnlyNonAdmins(t *testing.T) {
	url := newRelay(t)

	admin := newSession(t, url, "dojo", 0, "")
	require.NoError(t, admin.Join(context.Background()))

	member := newSession(t, url, "dojo", 0, "")
	require.NoError(t, member.Join(context.Background()))

	require.NoError(t, admin.MuteAll())

	select {
	case n := <-member.Notifications():
		assert.Equal(t, NotificationMuted, n.Kind)
	case <-time.After(3 * time.Second):
		t.Fatal("mute notification never arrived")
	}

	// the admin never receives their own command back
	select {
	case n := <-admin.Notifications():
		t.Fatalf("admin should not be notified, got %v", n)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestMuteAllFromNonAdminIsDropped(t *testing.T) {
	url := newRelay(t)

	admin := newSession(t, url, "dojo", 0, "")
	require.NoError(t, admin.Join(context.Background()))

	member := newSession(t, url, "dojo", 0, "")
	require.NoError(t, member.Join(context.Background()))

	require.NoError(t, member.MuteAll())

	select {
	case n := <-admin.Notifications():
		t.Fatalf("non-admin command must be dropped, got %v", n)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestKickTargetsOnlyTheNamedUser(t *testing.T) {
	url := newRelay(t)

	admin := newSession(t, url, "dojo", 0, "")
	require.NoError(t, admin.Join(context.Background()))

	member := newSession(t, url, "dojo", 0, "")
	require.NoError(t, member.Join(context.Background()))

	require.NoError(t, admin.KickUser(member.SelfID()))

	select {
	case n := <-member.Notifications():
		assert.Equal(t, NotificationKicked, n.Kind)
	case <-time.After(3 * time.Second):
		t.Fatal("kick notification never arrived")
	}
}

func TestPeersExchangeOffersThroughRelay(t *testing.T) {
	url := newRelay(t)

	factoryA := newTrackingFactory()
	a := NewSession(SessionConfig{
		ServerURL:   url,
		RoomName:    "dojo",
		JoinTimeout: 5 * time.Second,
		Retry:       retry.DefaultConfig(),
	}, factoryA, syntheticOpener, zap.NewNop().Sugar())
	t.Cleanup(a.Leave)
	require.NoError(t, a.Join(context.Background()))

	factoryB := newTrackingFactory()
	b := NewSession(SessionConfig{
		ServerURL:   url,
		RoomName:    "dojo",
		JoinTimeout: 5 * time.Second,
		Retry:       retry.DefaultConfig(),
	}, factoryB, syntheticOpener, zap.NewNop().Sugar())
	t.Cleanup(b.Leave)
	require.NoError(t, b.Join(context.Background()))

	// A initiates towards B on user-connected; B answers the relayed
	// offer. Both sides end up with a remote description.
	ok := waitFor(t, 5*time.Second, func() bool {
		pcsA, pcsB := factoryA.created(), factoryB.created()
		return len(pcsA) == 1 && len(pcsB) == 1 &&
			pcsA[0].RemoteDescription() != nil &&
			pcsB[0].RemoteDescription() != nil
	})
	assert.True(t, ok, "offer/answer should complete through the relay")
}
