// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/capture"
	"github.com/Thermoquad/parhelion/pkg/hop"
	"github.com/Thermoquad/parhelion/pkg/tick"
	"github.com/spf13/cobra"
)

var (
	captureChannel  uint8
	captureDuration int
	captureQuiet    bool
	captureValidate bool
)

var captureCmd = &cobra.Command{
	Use:   "capture <output-file>",
	Short: "Record frames heard on one channel",
	Long: `Tune the bridge to one channel and record every frame heard there.

Each frame is printed as it arrives, decoded when possible, and written to the
output file with its arrival tick. The default channel is the bind channel,
which makes this a quick way to see which transmitters are binding nearby.

Replay the file with 'replay --any-channel'. Stop with Ctrl+C, or after
--duration seconds.`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().Uint8Var(&captureChannel, "channel", hop.DefaultBindChannel, "Channel to listen on")
	captureCmd.Flags().IntVar(&captureDuration, "duration", 0, "Stop after this many seconds (0 for no limit)")
	captureCmd.Flags().BoolVarP(&captureQuiet, "quiet", "q", false, "Do not print frames")
	captureCmd.Flags().BoolVar(&captureValidate, "validate", false, "Print frame anomalies")
}

func runCapture(cmd *cobra.Command, args []string) error {
	tr, connInfo, err := OpenBridge()
	if err != nil {
		return err
	}
	defer tr.Close()

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	defer f.Close()
	w := capture.NewWriter(f)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if captureDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(captureDuration)*time.Second)
		defer cancel()
	}

	const period = time.Millisecond
	var counter tick.Counter
	go tick.Drive(ctx, &counter, period)

	if err := tr.SelectChannel(captureChannel); err != nil {
		return err
	}

	fmt.Printf("Parhelion - Frame Capture\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Channel: 0x%02X\n", captureChannel)
	fmt.Printf("Output: %s\n", args[0])
	fmt.Printf("Press Ctrl+C to exit\n\n")

	start := counter.Now()
	senders := make(map[afhds.ID]int)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-tr.Done():
			break loop
		default:
		}

		frame, ok := tr.TakePacket()
		if !ok {
			time.Sleep(period / 4)
			continue
		}
		now := counter.Now()
		if err := tr.StartReceive(); err != nil {
			return err
		}

		if err := w.Write(capture.NewRecord(now, captureChannel, frame)); err != nil {
			return fmt.Errorf("failed to write capture: %w", err)
		}
		senders[frame.TxID()]++

		if !captureQuiet {
			printFrame(tick.Since(now, start), &frame)
		}
	}

	fmt.Printf("\nCaptured %d frames in %s\n", w.Count(), tick.Duration(tick.Since(counter.Now(), start), period).Round(time.Millisecond))
	for id, n := range senders {
		fmt.Printf("  %s: %d frames\n", id, n)
	}
	if err := tr.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("bridge connection lost: %w", err)
	}
	return nil
}

// printFrame prints a captured frame, decoded if possible
func printFrame(at uint32, f *afhds.Frame) {
	timestamp := fmt.Sprintf("[%8dms]", at)
	p, err := afhds.Decode(f)
	if err != nil {
		fmt.Printf("%s \033[1;31mUNDECODABLE:\033[0m %v\n", timestamp, err)
		fmt.Printf("  %s\n", afhds.FormatFrame(f))
		return
	}
	fmt.Printf("%s %s\n", timestamp, afhds.FormatPacket(&p))

	if captureValidate {
		for _, anomaly := range afhds.Validate(f) {
			fmt.Printf("  \033[1;33mANOMALY:\033[0m %s\n", anomaly.Message)
		}
	}
}
