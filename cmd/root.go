// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Thermoquad/parhelion/pkg/link"
	"github.com/Thermoquad/parhelion/pkg/nvstore"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Receiver flags
	configPath string
	storePath  string
)

// Link parameter overrides, applied on top of the config file
var (
	bindChannel      uint8
	bindThreshold    uint16
	failsafeMisses   uint16
	rebindMisses     uint16
	searchDwellTicks uint32
)

var rootCmd = &cobra.Command{
	Use:   "parhelion",
	Short: "2.4GHz RC receiver link engine and tools",
	Long: `Parhelion - the receiver side of a frequency-hopping 2.4GHz RC link.

Binds to one transmitter out of several nearby candidates, follows its
16-channel hop sequence, extracts control sticks and applies failsafe when the
link is lost. The radio is reached through a transceiver bridge, or simulated
in-process.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the PARHELION_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:      "0.3.0",
	SilenceUsage: true,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device of the transceiver bridge")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Receiver flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Link configuration file (JSON)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", defaultStorePath(), "Bind record file")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// addLinkFlags registers the link parameter overrides on a command that
// runs the engine
func addLinkFlags(cmd *cobra.Command) {
	defaults := link.DefaultConfig()
	cmd.Flags().Uint8Var(&bindChannel, "bind-channel", defaults.BindChannel, "Channel listened on while binding")
	cmd.Flags().Uint16Var(&bindThreshold, "bind-threshold", defaults.BindThreshold, "Bind packets a transmitter needs to win")
	cmd.Flags().Uint16Var(&failsafeMisses, "failsafe-misses", defaults.FailsafeMisses, "Missed packets before failsafe")
	cmd.Flags().Uint16Var(&rebindMisses, "rebind-misses", defaults.RebindMisses, "Missed packets before rebinding")
	cmd.Flags().Uint32Var(&searchDwellTicks, "search-dwell", defaults.SearchDwellTicks, "Ticks spent on each channel while searching")
}

// loadLinkConfig reads --config (or the defaults) and applies any link
// flags set on cmd
func loadLinkConfig(cmd *cobra.Command) (link.Config, error) {
	cfg := link.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = link.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("bind-channel") {
		cfg.BindChannel = bindChannel
	}
	if flags.Changed("bind-threshold") {
		cfg.BindThreshold = bindThreshold
	}
	if flags.Changed("failsafe-misses") {
		cfg.FailsafeMisses = failsafeMisses
	}
	if flags.Changed("rebind-misses") {
		cfg.RebindMisses = rebindMisses
	}
	if flags.Changed("search-dwell") {
		cfg.SearchDwellTicks = searchDwellTicks
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// defaultStorePath returns the bind record location under the user's
// config directory, or the working directory if there is none
func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "parhelion-bind.bin"
	}
	return filepath.Join(dir, "parhelion", "bind.bin")
}

// openStore opens the bind record file named by --store
func openStore() (*nvstore.FileStore, error) {
	if storePath == "" {
		return nil, fmt.Errorf("no bind record file (--store)")
	}
	return nvstore.NewFileStore(storePath), nil
}
