// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/hop"
	"github.com/spf13/cobra"
)

var (
	packetTestTimeout int
	packetTestChannel uint8
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test the bridge by waiting for a valid radio frame",
	Long: `Wait for a radio frame that decodes cleanly on one channel until timeout.

This command connects to the transceiver bridge, tunes it to --channel (the
bind channel by default) and waits for a frame from any transmitter. Frames
that fail to decode are counted and skipped.

Exit codes:
  0 - Valid frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking the bridge and a transmitter in bind mode.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
	packetTestCmd.Flags().Uint8Var(&packetTestChannel, "channel", hop.DefaultBindChannel, "Channel to listen on")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	tr, connInfo, err := OpenBridge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer tr.Close()

	fmt.Printf("Parhelion - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Channel: 0x%02X\n", packetTestChannel)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid radio frame...\n\n")

	if err := tr.SelectChannel(packetTestChannel); err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	deadline := time.After(time.Duration(packetTestTimeout) * time.Second)
	invalid := 0

	for {
		select {
		case <-tr.Done():
			fmt.Fprintf(os.Stderr, "Read error: %v\n", tr.Err())
			os.Exit(2)

		case <-deadline:
			fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
			if invalid > 0 {
				fmt.Fprintf(os.Stderr, "(%d undecodable frames)\n", invalid)
			}
			os.Exit(1)

		default:
		}

		f, ok := tr.TakePacket()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		p, err := afhds.Decode(&f)
		if err != nil {
			invalid++
			if err := tr.StartReceive(); err != nil {
				fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
				os.Exit(2)
			}
			continue
		}

		if invalid > 0 {
			fmt.Printf("(skipped %d undecodable frames)\n", invalid)
		}
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Type: %s (0x%02X)\n", afhds.FormatPacketType(p.Type), byte(p.Type))
		fmt.Printf("  Transmitter: %s\n", p.TxID)
		fmt.Printf("  Receiver: %s\n", p.RxID)
		fmt.Printf("  Bridge faults: %d, decode errors: %d\n", tr.Faults(), tr.DecodeErrors())
		os.Exit(0)
	}
}
