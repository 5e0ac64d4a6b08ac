package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suissa/purecore-ninjalive/pkg/config"
)

var flagConfigPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "participant",
	Short: "Command-line participant for NinjaLive meetings",
	Long: `Participant joins a NinjaLive meeting room from the terminal. It
connects to the signaling server, negotiates peer links over WebRTC and
publishes synthetic audio and video tracks, which makes it useful for
load tests and for driving rooms from scripts.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to config file")
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(roomsCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	paths := []string{flagConfigPath, "configs/config.yaml", "config.yaml"}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if cfg, err := config.Load(path); err == nil {
			return cfg
		}
	}
	return config.DefaultConfig()
}
