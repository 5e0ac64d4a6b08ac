package client

import (
	"fmt"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// MediaProfile describes which local tracks a session wants to publish.
type MediaProfile struct {
	Audio bool
	Video bool
}

// LocalMedia is a set of capturable local tracks. Implementations own the
// capture pipeline; the session only toggles and publishes the tracks.
type LocalMedia interface {
	Tracks() []webrtc.TrackLocal
	SetAudioEnabled(enabled bool)
	SetVideoEnabled(enabled bool)
	Close() error
}

// MediaOpener opens local media for a profile. Failure means the profile's
// devices are unavailable.
type MediaOpener func(profile MediaProfile) (LocalMedia, error)

// OpenWithFallback tries full audio+video capture first and degrades one
// tier at a time: video only, then audio only. The returned profile tells
// the caller which tier actually opened.
func OpenWithFallback(open MediaOpener, logger *zap.SugaredLogger) (LocalMedia, MediaProfile, error) {
	profiles := []MediaProfile{
		{Audio: true, Video: true},
		{Audio: false, Video: true},
		{Audio: true, Video: false},
	}

	var lastErr error
	for _, profile := range profiles {
		media, err := open(profile)
		if err == nil {
			if !profile.Audio {
				logger.Warnw("microphone unavailable, running video-only")
			} else if !profile.Video {
				logger.Warnw("camera unavailable, running audio-only")
			}
			return media, profile, nil
		}
		lastErr = err
		logger.Warnw("media capture failed, degrading",
			"audio", profile.Audio, "video", profile.Video, "error", err)
	}

	return nil, MediaProfile{}, fmt.Errorf("all media capture attempts failed: %w", lastErr)
}
