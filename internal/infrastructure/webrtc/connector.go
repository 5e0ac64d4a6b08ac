package webrtc

import (
	"fmt"

	"github.com/pion/webrtc/v3"

	"github.com/suissa/purecore-ninjalive/pkg/config"
)

// Connector builds peer connections with the configured ICE servers. One
// connector is shared by every peer link in a session.
type Connector struct {
	config webrtc.Configuration
}

func NewConnector(cfg *config.Config) *Connector {
	iceServers := make([]webrtc.ICEServer, 0, len(cfg.WebRTC.ICEServers))
	for _, server := range cfg.WebRTC.ICEServers {
		ice := webrtc.ICEServer{URLs: server.URLs}
		if server.Username != "" {
			ice.Username = server.Username
			ice.Credential = server.Credential
		}
		iceServers = append(iceServers, ice)
	}
	if len(iceServers) == 0 {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs: []string{"stun:stun.l.google.com:19302", "stun:global.stun.twilio.com:3478"},
		})
	}

	return &Connector{
		config: webrtc.Configuration{ICEServers: iceServers},
	}
}

func (c *Connector) NewPeerConnection() (*webrtc.PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(c.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}
	return pc, nil
}
