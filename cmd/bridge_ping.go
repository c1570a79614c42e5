// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	bridgePingTimeout int
	bridgePingCount   int
	bridgePingStatus  bool
)

var bridgePingCmd = &cobra.Command{
	Use:   "bridge_ping",
	Short: "Test the transceiver bridge with PING_REQUEST",
	Long: `Send PING_REQUEST messages to the transceiver bridge and wait for PING_RESPONSE.

The bridge answers with its uptime. This is useful for verifying:
  - The serial or WebSocket connection is established
  - HTTP Basic authentication works (WebSocket)
  - The bridge firmware is processing commands

With --status the bridge's radio status is requested after the pings.

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runBridgePing,
}

func init() {
	rootCmd.AddCommand(bridgePingCmd)
	bridgePingCmd.Flags().IntVar(&bridgePingTimeout, "timeout", 5, "Timeout in seconds for each ping")
	bridgePingCmd.Flags().IntVar(&bridgePingCount, "count", 3, "Number of pings to send")
	bridgePingCmd.Flags().BoolVar(&bridgePingStatus, "status", false, "Also request the radio status")
}

func runBridgePing(cmd *cobra.Command, args []string) error {
	tr, connInfo, err := OpenBridge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer tr.Close()

	fmt.Printf("Parhelion - Bridge Ping Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds per ping\n", bridgePingTimeout)
	fmt.Printf("Count: %d pings\n\n", bridgePingCount)

	timeout := time.Duration(bridgePingTimeout) * time.Second
	successCount := 0
	failCount := 0

	for i := 1; i <= bridgePingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, bridgePingCount)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		startTime := time.Now()
		uptime, err := tr.Ping(ctx)
		cancel()

		switch {
		case err == nil:
			rtt := time.Since(startTime)
			fmt.Printf("PONG from bridge, uptime=%s, rtt=%v\n", formatUptime(uptime), rtt.Round(time.Millisecond))
			successCount++
		case err == context.DeadlineExceeded:
			fmt.Printf("TIMEOUT (no response in %ds)\n", bridgePingTimeout)
			failCount++
		default:
			fmt.Printf("FAILED: %v\n", err)
			failCount++
		}

		// Small delay between pings
		if i < bridgePingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	// Summary
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d responses received, %.0f%% packet loss\n",
		bridgePingCount, successCount, float64(failCount)/float64(bridgePingCount)*100)

	if bridgePingStatus {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		st, err := tr.RequestStatus(ctx)
		cancel()
		if err != nil {
			fmt.Printf("\nStatus: FAILED (%v)\n", err)
			failCount++
		} else {
			fmt.Printf("\n--- Radio status ---\n")
			fmt.Printf("Chip:     %s\n", st.Chip)
			fmt.Printf("Channel:  0x%02X\n", st.Channel)
			fmt.Printf("Frames:   %d\n", st.Frames)
			fmt.Printf("Overruns: %d\n", st.Overruns)
		}
	}

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

// formatUptime formats milliseconds as a human-readable duration
func formatUptime(ms uint64) string {
	d := time.Duration(ms) * time.Millisecond
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
