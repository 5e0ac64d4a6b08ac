package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/suissa/purecore-ninjalive/internal/client"
	ninjartc "github.com/suissa/purecore-ninjalive/internal/infrastructure/webrtc"
	"github.com/suissa/purecore-ninjalive/pkg/logger"
	"github.com/suissa/purecore-ninjalive/pkg/retry"
	"github.com/suissa/purecore-ninjalive/pkg/utils"
)

var (
	flagServer             string
	flagRoom               string
	flagPassword           string
	flagLimit              int
	flagCreate             bool
	flagNegotiationTimeout time.Duration
	flagNoAudio            bool
	flagNoVideo            bool
	flagLogLevel           string
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a meeting room",
	Long: `Join a meeting room on the signaling server. The first participant
to join a room becomes its admin and fixes the password and capacity.

Examples:
  participant join --room dojo --password secret
  participant join --create --limit 8
  participant join --room dojo --no-video`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJoin()
	},
}

func init() {
	joinCmd.Flags().StringVar(&flagServer, "server", "", "signaling server URL (ws:// or wss://)")
	joinCmd.Flags().StringVar(&flagRoom, "room", "", "room name (generated when empty)")
	joinCmd.Flags().StringVar(&flagPassword, "password", "", "room password (empty joins or creates an open room)")
	joinCmd.Flags().IntVar(&flagLimit, "limit", 0, "capacity hint when creating the room")
	joinCmd.Flags().BoolVar(&flagCreate, "create", false, "append a unique suffix to the room name")
	joinCmd.Flags().DurationVar(&flagNegotiationTimeout, "negotiation-timeout", 0, "per-peer negotiation deadline")
	joinCmd.Flags().BoolVar(&flagNoAudio, "no-audio", false, "start with audio muted")
	joinCmd.Flags().BoolVar(&flagNoVideo, "no-video", false, "skip the video track")
	joinCmd.Flags().StringVar(&flagLogLevel, "log-level", "warn", "log level")
}

func runJoin() error {
	cfg := loadConfig()
	if flagServer != "" {
		cfg.Client.ServerURL = flagServer
	}
	if flagNegotiationTimeout > 0 {
		cfg.WebRTC.NegotiationTimeout = flagNegotiationTimeout
	}

	zapLogger := logger.New(flagLogLevel, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	roomName := flagRoom
	if roomName == "" {
		roomName = utils.GenerateRoomName()
		flagCreate = true
	}

	connector := ninjartc.NewConnector(cfg)
	opener := func(profile client.MediaProfile) (client.LocalMedia, error) {
		if flagNoVideo && profile.Video {
			return nil, errors.New("video disabled")
		}
		return ninjartc.NewSyntheticMedia(profile.Audio, profile.Video)
	}

	session := client.NewSession(client.SessionConfig{
		ServerURL:          cfg.Client.ServerURL,
		RoomName:           roomName,
		Password:           flagPassword,
		Limit:              flagLimit,
		CreateUniqueRoom:   flagCreate,
		JoinTimeout:        cfg.Client.JoinTimeout,
		NegotiationTimeout: cfg.WebRTC.NegotiationTimeout,
		Retry: retry.Config{
			Enabled:      true,
			MaxAttempts:  cfg.Client.ConnectAttempts,
			InitialDelay: cfg.Client.ConnectBackoff,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
	}, connector, opener, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := session.Join(ctx); err != nil {
		return fmt.Errorf("join room %q: %w", roomName, err)
	}
	defer session.Leave()

	if flagNoAudio {
		session.SetAudioEnabled(false)
	}

	role := "participant"
	if session.IsAdmin() {
		role = "admin"
	}
	fmt.Printf("Joined room %s as %s (%s)\n", session.RoomID(), session.SelfID(), role)
	fmt.Printf("Media: audio=%v video=%v\n", session.Profile().Audio, session.Profile().Video)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case event, ok := <-session.Events():
			if !ok {
				fmt.Println("Session closed")
				return nil
			}
			printEvent(event)
		case note, ok := <-session.Notifications():
			if !ok {
				continue
			}
			printNotification(note)
			if note.Kind == client.NotificationKicked {
				return nil
			}
		case <-sigChan:
			fmt.Println("Leaving room...")
			return nil
		}
	}
}

func printEvent(event client.Event) {
	switch event.Type {
	case client.EventPeerConnected:
		fmt.Printf("Peer connected: %s\n", event.PeerID)
	case client.EventPeerDisconnected:
		fmt.Printf("Peer disconnected: %s\n", event.PeerID)
	case client.EventTrackReceived:
		fmt.Printf("Receiving media from %s\n", event.PeerID)
	case client.EventNegotiationTimeout:
		fmt.Printf("Negotiation with %s timed out\n", event.PeerID)
	}
}

func printNotification(note client.Notification) {
	switch note.Kind {
	case client.NotificationChat:
		fmt.Printf("Chat: %s\n", note.Text)
	default:
		fmt.Println(note.Text)
	}
}
