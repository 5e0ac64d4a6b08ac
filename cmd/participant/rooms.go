package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
)

var flagAPIServer string

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List active rooms on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRooms()
	},
}

func init() {
	roomsCmd.Flags().StringVar(&flagAPIServer, "api", "http://localhost:8080", "HTTP API base URL")
}

func listRooms() error {
	httpClient := &http.Client{Timeout: 5 * time.Second}
	resp, err := httpClient.Get(flagAPIServer + "/api/v1/rooms")
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("list rooms: server returned %s", resp.Status)
	}

	var body struct {
		Rooms []*domain.RoomStats `json:"rooms"`
		Count int                 `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode room list: %w", err)
	}

	if body.Count == 0 {
		fmt.Println("No active rooms")
		return nil
	}

	for _, room := range body.Rooms {
		locked := "open"
		if room.HasPassword {
			locked = "locked"
		}
		fmt.Printf("%s  %d/%d  %s  up %s\n",
			room.RoomID, room.Members, room.Capacity, locked,
			(time.Duration(room.UptimeMillis) * time.Millisecond).Round(time.Second))
	}
	return nil
}
