// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/capture"
	"github.com/Thermoquad/parhelion/pkg/link"
	"github.com/Thermoquad/parhelion/pkg/mixing"
	"github.com/Thermoquad/parhelion/pkg/nvstore"
	"github.com/Thermoquad/parhelion/pkg/tick"
	"github.com/spf13/cobra"
)

var (
	replayAnyChannel bool
	replayTail       uint32
	replayVerbose    bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Run the receiver over a capture file",
	Long: `Feed a recorded capture through a fresh link engine.

Frames are delivered at their recorded ticks. By default a frame reaches the
engine only if the engine is tuned to the channel it was captured on, which
reproduces a session recorded by 'monitor --capture'. Captures made with the
'capture' command hold a single channel; use --any-channel to feed every frame
regardless of tuning.

The bind record is kept in memory, so replaying never touches --store.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayAnyChannel, "any-channel", false, "Deliver frames whatever channel the engine is tuned to")
	replayCmd.Flags().Uint32Var(&replayTail, "tail", 0, "Ticks to keep polling after the last frame (default: rebind-misses packet intervals)")
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "Log engine diagnostics")
	addLinkFlags(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadLinkConfig(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	records, err := capture.ReadAll(f)
	switch {
	case errors.Is(err, capture.ErrTruncated):
		log.Printf("Capture is truncated, replaying %d complete records", len(records))
	case err != nil:
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("capture %s holds no frames", args[0])
	}

	clock := tick.NewManual(records[0].Tick)
	player := capture.NewPlayer(clock, records)
	player.AnyChannel = replayAnyChannel

	var logger link.Logger
	if replayVerbose {
		logger = log.New(os.Stdout, "[link] ", 0)
	}
	start := clock.Now()
	mixer := mixing.NewFailsafe()
	engine, err := link.New(cfg, player, nvstore.NewMemoryStore(),
		link.WithLogger(logger),
		link.WithMixer(mixer),
		link.WithEventHandler(func(ev link.Event) {
			fmt.Printf("%10s  %s\n", tick.Duration(tick.Since(ev.Tick, start), cfg.TickPeriod), formatEvent(ev))
		}),
	)
	if err != nil {
		return err
	}

	tail := replayTail
	if !cmd.Flags().Changed("tail") {
		tail = uint32(cfg.RebindMisses) * cfg.PacketIntervalTicks
	}
	end := start + player.Duration() + tail

	fmt.Printf("Parhelion - Capture Replay\n")
	fmt.Printf("Capture: %s (%d frames, %s)\n", args[0], len(records),
		tick.Duration(player.Duration(), cfg.TickPeriod))
	fmt.Println()

	engine.Start(clock.Now())
	for !tick.Reached(clock.Now(), end) {
		clock.Advance(1)
		engine.Poll(clock.Now())
	}

	fmt.Println()
	snap := engine.Snapshot(clock.Now())
	fmt.Println(formatSnapshotLine(&snap))
	fmt.Printf("Outputs: %s", afhds.FormatSticks(mixer.Outputs()))
	if mixer.InFailsafe() {
		fmt.Printf(" (failsafe)")
	}
	fmt.Println()
	fmt.Print(snap.Stats.Format(tick.Duration(tick.Since(clock.Now(), start), cfg.TickPeriod)))
	fmt.Println()
	if skipped := player.Skipped(); skipped > 0 {
		fmt.Printf("Frames not delivered: %d (engine tuned elsewhere or busy)\n", skipped)
	}
	return nil
}
