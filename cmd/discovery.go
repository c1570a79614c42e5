// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/bind"
	"github.com/Thermoquad/parhelion/pkg/hop"
	"github.com/spf13/cobra"
)

var (
	discoveryTimeout int
	discoveryChannel uint8
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "List transmitters sending bind packets",
	Long: `Listen on the bind channel and list every transmitter sending bind packets.

Candidates are counted the way the receiver counts them while binding, so the
list shows which transmitter a bind would pick right now. Nothing is stored.
The receiver keeps at most 4 candidates; later transmitters are reported as
ignored.

Exit codes:
  0 - At least one transmitter found
  1 - No bind packets before timeout
  2 - Connection error`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 5, "Listening time in seconds")
	discoveryCmd.Flags().Uint8Var(&discoveryChannel, "channel", hop.DefaultBindChannel, "Channel to listen on")
	addLinkFlags(discoveryCmd)
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	tr, connInfo, err := OpenBridge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer tr.Close()

	cfg, err := loadLinkConfig(cmd)
	if err != nil {
		return err
	}
	threshold := cfg.BindThreshold

	fmt.Printf("Parhelion - Transmitter Discovery\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Channel: 0x%02X\n", discoveryChannel)
	fmt.Printf("Timeout: %d seconds\n\n", discoveryTimeout)

	if err := tr.SelectChannel(discoveryChannel); err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	tracker := bind.NewTracker(threshold)
	ignored := make(map[afhds.ID]bool)
	deadline := time.After(time.Duration(discoveryTimeout) * time.Second)

collect:
	for {
		select {
		case <-tr.Done():
			fmt.Printf("READ FAILED: %v\n", tr.Err())
			os.Exit(2)
		case <-deadline:
			break collect
		default:
		}

		f, ok := tr.TakePacket()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		if err := tr.StartReceive(); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			os.Exit(2)
		}

		p, err := afhds.DecodeBind(&f)
		if err != nil {
			continue
		}
		known := tracker.Len()
		if !tracker.Observe(p.TxID, p.Hops) {
			if !ignored[p.TxID] {
				ignored[p.TxID] = true
				fmt.Printf("Transmitter %s ignored: candidate slots full\n", p.TxID)
			}
			continue
		}
		if tracker.Len() > known {
			fmt.Printf("Transmitter found: %s\n", p.TxID)
		}
	}

	// Summary
	slots := tracker.Slots()
	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Transmitters found: %d\n", len(slots)+len(ignored))

	if len(slots) == 0 {
		fmt.Printf("No bind packets heard. Put a transmitter in bind mode and check the bridge.\n")
		os.Exit(1)
	}

	for _, s := range slots {
		hops, source := s.Hops, "advertised"
		if !hops.Valid() {
			hops, source = hop.Derive(s.ID), "derived"
		}
		fmt.Printf("\n%s\n", s.ID)
		fmt.Printf("  Bind packets: %d\n", s.Count)
		fmt.Printf("  Hops (%s): %s\n", source, hops)
	}
	if w, ok := tracker.Winner(); ok {
		fmt.Printf("\nA bind now would pick %s (%d/%d packets)\n", w.ID, w.Count, threshold)
	} else {
		fmt.Printf("\nNo transmitter reached the bind threshold of %d packets\n", threshold)
	}
	return nil
}
