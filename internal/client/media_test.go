package client

import (
	"errors"
	"testing"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubMedia struct {
	profile MediaProfile
}

func (m *stubMedia) Tracks() []webrtc.TrackLocal { return nil }
func (m *stubMedia) SetAudioEnabled(bool)        {}
func (m *stubMedia) SetVideoEnabled(bool)        {}
func (m *stubMedia) Close() error                { return nil }

func TestOpenWithFallbackFullCapture(t *testing.T) {
	open := func(profile MediaProfile) (LocalMedia, error) {
		return &stubMedia{profile: profile}, nil
	}

	_, profile, err := OpenWithFallback(open, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.True(t, profile.Audio)
	assert.True(t, profile.Video)
}

func TestOpenWithFallbackDegradesToVideoOnly(t *testing.T) {
	open := func(profile MediaProfile) (LocalMedia, error) {
		if profile.Audio {
			return nil, errors.New("no microphone")
		}
		return &stubMedia{profile: profile}, nil
	}

	_, profile, err := OpenWithFallback(open, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.False(t, profile.Audio)
	assert.True(t, profile.Video)
}

func TestOpenWithFallbackDegradesToAudioOnly(t *testing.T) {
	open := func(profile MediaProfile) (LocalMedia, error) {
		if profile.Video {
			return nil, errors.New("no camera")
		}
		return &stubMedia{profile: profile}, nil
	}

	_, profile, err := OpenWithFallback(open, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.True(t, profile.Audio)
	assert.False(t, profile.Video)
}

func TestOpenWithFallbackAllTiersFail(t *testing.T) {
	open := func(profile MediaProfile) (LocalMedia, error) {
		return nil, errors.New("no devices")
	}

	_, _, err := OpenWithFallback(open, zap.NewNop().Sugar())
	assert.Error(t, err)
}
