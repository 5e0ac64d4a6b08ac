package webrtc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
)

// SyntheticMedia publishes generated Opus silence and VP8 keyframe-less
// filler. It stands in for device capture in headless participants and in
// tests; muted tracks keep their timeline but stop carrying payload.
type SyntheticMedia struct {
	audioTrack *webrtc.TrackLocalStaticSample
	videoTrack *webrtc.TrackLocalStaticSample

	audioEnabled atomic.Bool
	videoEnabled atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
}

// opus silence frame (one 20ms frame of comfort noise off)
var opusSilence = []byte{0xf8, 0xff, 0xfe}

func NewSyntheticMedia(audio, video bool) (*SyntheticMedia, error) {
	m := &SyntheticMedia{done: make(chan struct{})}
	m.audioEnabled.Store(audio)
	m.videoEnabled.Store(video)

	if audio {
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			"audio", "ninjalive-audio",
		)
		if err != nil {
			return nil, err
		}
		m.audioTrack = track
		go m.pumpAudio()
	}

	if video {
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
			"video", "ninjalive-video",
		)
		if err != nil {
			return nil, err
		}
		m.videoTrack = track
		go m.pumpVideo()
	}

	return m, nil
}

func (m *SyntheticMedia) pumpAudio() {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			if !m.audioEnabled.Load() {
				continue
			}
			m.audioTrack.WriteSample(media.Sample{
				Data:     opusSilence,
				Duration: 20 * time.Millisecond,
			})
		}
	}
}

func (m *SyntheticMedia) pumpVideo() {
	ticker := time.NewTicker(time.Second / 15)
	defer ticker.Stop()

	frame := make([]byte, 128)

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			if !m.videoEnabled.Load() {
				continue
			}
			m.videoTrack.WriteSample(media.Sample{
				Data:     frame,
				Duration: time.Second / 15,
			})
		}
	}
}

func (m *SyntheticMedia) Tracks() []webrtc.TrackLocal {
	tracks := make([]webrtc.TrackLocal, 0, 2)
	if m.audioTrack != nil {
		tracks = append(tracks, m.audioTrack)
	}
	if m.videoTrack != nil {
		tracks = append(tracks, m.videoTrack)
	}
	return tracks
}

func (m *SyntheticMedia) SetAudioEnabled(enabled bool) {
	m.audioEnabled.Store(enabled)
}

func (m *SyntheticMedia) SetVideoEnabled(enabled bool) {
	m.videoEnabled.Store(enabled)
}

func (m *SyntheticMedia) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}
