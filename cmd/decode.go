// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/hop"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>...",
	Short: "Decode and validate a radio frame",
	Long: `Decode a 37-byte radio frame given in hex and report any anomalies.

The frame may be split across several arguments and may contain spaces,
colons or a 0x prefix, so hex dumps can be pasted as they are:

  parhelion decode BB A1 A2 A3 A4 ...
  parhelion decode 0xbba1a2a3a4...

For bind packets the hop table used for hopping is shown: the advertised
table if it is valid, otherwise the one derived from the transmitter id.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, "")
	text = strings.TrimPrefix(strings.ToLower(text), "0x")
	text = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(text)

	raw, err := hex.DecodeString(text)
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	f, err := afhds.FrameFromBytes(raw)
	if err != nil {
		return err
	}

	fmt.Printf("Frame: %s\n", afhds.FormatFrame(&f))

	p, err := afhds.Decode(&f)
	if err != nil {
		fmt.Printf("Decode: FAILED (%v)\n", err)
	} else {
		fmt.Printf("Decode: %s\n", afhds.FormatPacket(&p))
		if p.IsBind() {
			hops := p.Hops
			source := "advertised"
			if hops.IsZero() {
				hops = hop.Derive(p.TxID)
				source = "derived"
			}
			fmt.Printf("Hop table (%s): %s\n", source, hops)
		}
	}

	anomalies := afhds.Validate(&f)
	if len(anomalies) == 0 {
		fmt.Printf("Validation: OK\n")
		return nil
	}
	fmt.Printf("Validation: %d anomalies\n", len(anomalies))
	for _, a := range anomalies {
		fmt.Printf("  - %s\n", a.Message)
		for k, v := range a.Details {
			fmt.Printf("      %s: %v\n", k, v)
		}
	}
	return nil
}
