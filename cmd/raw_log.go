// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/Thermoquad/parhelion/pkg/bridge"
	"github.com/spf13/cobra"
)

var (
	rawLogChannel int
	rawLogStatus  bool
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display bridge traffic in human-readable format",
	Long: `Continuously decode and display bridge protocol messages as they arrive.

Each message is shown with timestamp, message type and decoded payload. Radio
frames are decoded as far as possible. Framing and CRC errors are printed
inline.

With --channel the bridge is first tuned to that channel, otherwise whatever
the bridge is already doing is logged. With --status a STATUS_REQUEST is sent
at startup.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().IntVar(&rawLogChannel, "channel", -1, "Tune the bridge to this channel first")
	rawLogCmd.Flags().BoolVar(&rawLogStatus, "status", false, "Request the radio status at startup")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	// Raw connection: the bridge transceiver would swallow the messages
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Parhelion - Raw Bridge Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if rawLogChannel >= 0 {
		if rawLogChannel > 0xFF {
			return fmt.Errorf("invalid channel %d", rawLogChannel)
		}
		if err := writeMessage(conn, bridge.NewSelectChannel(uint8(rawLogChannel))); err != nil {
			return err
		}
	}
	if rawLogStatus {
		if err := writeMessage(conn, bridge.NewStatusRequest()); err != nil {
			return err
		}
	}

	decoder := bridge.NewDecoder()
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				log.Printf("Connection closed")
				return nil
			}
			log.Printf("Read error: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			msg, err := decoder.DecodeByte(buf[i])
			if err != nil {
				fmt.Printf("[ERROR] %v\n", err)
				continue
			}
			if msg == nil {
				continue
			}
			fmt.Print(bridge.FormatMessage(msg))
			if msg.Type() == bridge.MsgRadioFrame && rawLogChannel >= 0 {
				// Keep the chip listening
				if err := writeMessage(conn, bridge.NewStartReceive()); err != nil {
					return err
				}
			}
		}
	}
}

// writeMessage frames m and writes it to w
func writeMessage(w io.Writer, m *bridge.Message) error {
	data, err := bridge.Encode(m)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to send %s: %w", bridge.FormatMessageType(m.Type()), err)
	}
	return nil
}
