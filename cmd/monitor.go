// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/capture"
	"github.com/Thermoquad/parhelion/pkg/link"
	"github.com/Thermoquad/parhelion/pkg/mixing"
	"github.com/Thermoquad/parhelion/pkg/nvstore"
	"github.com/Thermoquad/parhelion/pkg/radio"
	"github.com/Thermoquad/parhelion/pkg/tick"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	statsInterval  int
	useTUI         bool
	monitorCapture string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the receiver against a transceiver bridge",
	Long: `Run the link engine on a bridge-attached 2.4GHz transceiver.

The receiver starts from the stored bind record if there is one, otherwise it
listens on the bind channel and binds to the transmitter heard most often.
Once bound it follows the transmitter's hop sequence and shows:
  - Link state, bound transmitter and hop position
  - Control sticks and the failsafe mixer outputs
  - Bind candidates while binding
  - Link statistics (accepted, missed and rejected packets)

Use --capture to record every received frame for later replay.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds, text mode)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
	monitorCmd.Flags().StringVar(&monitorCapture, "capture", "", "Record received frames to this capture file")
	addLinkFlags(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadLinkConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}

	tr, connInfo, err := OpenBridge()
	if err != nil {
		return err
	}
	defer tr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Stop when the bridge goes away
	go func() {
		select {
		case <-tr.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	var counter tick.Counter
	go tick.Drive(ctx, &counter, cfg.TickPeriod)

	var r radio.Transceiver = tr
	var tap *capture.Tap
	if monitorCapture != "" {
		f, err := os.Create(monitorCapture)
		if err != nil {
			return fmt.Errorf("failed to create capture file: %w", err)
		}
		defer f.Close()
		tap = capture.NewTap(tr, &counter, capture.NewWriter(f))
		r = tap
	}

	mon := &monitorRun{
		cfg:      cfg,
		radio:    r,
		store:    store,
		counter:  &counter,
		mixer:    mixing.NewFailsafe(),
		connInfo: connInfo,
	}

	if useTUI {
		err = mon.runTUI(ctx)
	} else {
		err = mon.runText(ctx)
	}

	if tap != nil {
		if tapErr := tap.Err(); tapErr != nil {
			log.Printf("Capture stopped early: %v", tapErr)
		}
		fmt.Printf("Captured %d frames to %s\n", tap.Count(), monitorCapture)
	}
	if bridgeErr := tr.Err(); bridgeErr != nil && ctx.Err() == nil {
		return fmt.Errorf("bridge connection lost: %w", bridgeErr)
	}
	return err
}

// monitorRun holds what both monitor modes share
type monitorRun struct {
	cfg      link.Config
	radio    radio.Transceiver
	store    nvstore.Store
	counter  *tick.Counter
	mixer    *mixing.Failsafe
	connInfo string
}

// idle is the sleep between engine cycles, a fraction of a tick so no tick
// goes unpolled
func (mr *monitorRun) idle() time.Duration {
	return mr.cfg.TickPeriod / 4
}

// runText polls the engine and prints statistics every statsInterval seconds
func (mr *monitorRun) runText(ctx context.Context) error {
	logger := log.New(os.Stdout, "[link] ", log.Ltime|log.Lmicroseconds)
	engine, err := link.New(mr.cfg, mr.radio, mr.store,
		link.WithLogger(logger),
		link.WithMixer(mr.mixer),
	)
	if err != nil {
		return err
	}

	fmt.Printf("Parhelion - Link Monitor\n")
	fmt.Printf("Connection: %s\n", mr.connInfo)
	fmt.Printf("Bind record: %s\n", storePath)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	start := mr.counter.Now()
	every := ticksIn(time.Duration(statsInterval)*time.Second, mr.cfg.TickPeriod)
	next := start + every

	link.Run(ctx, engine, mr.counter, mr.idle(), func(now uint32) {
		if !tick.Reached(now, next) {
			return
		}
		next += every

		snap := engine.Snapshot(now)
		fmt.Println()
		fmt.Println(formatSnapshotLine(&snap))
		fmt.Printf("Outputs: %s", afhds.FormatSticks(mr.mixer.Outputs()))
		if mr.mixer.InFailsafe() {
			fmt.Printf(" (failsafe)")
		}
		fmt.Println()
		fmt.Print(snap.Stats.Format(tick.Duration(tick.Since(now, start), mr.cfg.TickPeriod)))
		fmt.Println()
	})
	return nil
}

// runTUI runs the engine on its own goroutine and hands snapshots to the
// terminal UI
func (mr *monitorRun) runTUI(ctx context.Context) error {
	m := newMonitorModel(mr.connInfo, mr.cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())

	fwd := newMsgForwarder(p.Send, forwardQueue)
	engine, err := link.New(mr.cfg, mr.radio, mr.store,
		link.WithLogger(log.New(fwd, "", 0)),
		link.WithMixer(mr.mixer),
		link.WithEventHandler(func(ev link.Event) { fwd.Post(linkEventMsg(ev)) }),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		start := mr.counter.Now()
		every := ticksIn(snapshotPeriod, mr.cfg.TickPeriod)
		next := start

		link.Run(ctx, engine, mr.counter, mr.idle(), func(now uint32) {
			if !tick.Reached(now, next) {
				return
			}
			next = now + every
			fwd.Post(snapshotMsg{
				snap:     engine.Snapshot(now),
				outputs:  mr.mixer.Outputs(),
				failsafe: mr.mixer.InFailsafe(),
				elapsed:  tick.Duration(tick.Since(now, start), mr.cfg.TickPeriod),
			})
		})
		fwd.Close()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// forwardQueue is the number of messages the engine goroutine can get ahead
// of the TUI before messages are dropped
const forwardQueue = 64

// msgForwarder hands messages from the engine goroutine to the TUI without
// ever blocking the poll loop. Messages posted while the queue is full are
// dropped and counted.
type msgForwarder struct {
	ch      chan tea.Msg
	done    chan struct{}
	dropped atomic.Uint64
}

func newMsgForwarder(send func(tea.Msg), size int) *msgForwarder {
	f := &msgForwarder{
		ch:   make(chan tea.Msg, size),
		done: make(chan struct{}),
	}
	go func() {
		defer close(f.done)
		for m := range f.ch {
			send(m)
		}
	}()
	return f
}

// Post queues m, reporting false if it was dropped
func (f *msgForwarder) Post(m tea.Msg) bool {
	select {
	case f.ch <- m:
		return true
	default:
		f.dropped.Add(1)
		return false
	}
}

// Write posts one log line to the event pane
func (f *msgForwarder) Write(b []byte) (int, error) {
	f.Post(logLineMsg(strings.TrimRight(string(b), "\n")))
	return len(b), nil
}

// Dropped returns the number of messages lost to a full queue
func (f *msgForwarder) Dropped() uint64 {
	return f.dropped.Load()
}

// Close waits for queued messages to be sent and stops the forwarder.
// Nothing may be posted after Close.
func (f *msgForwarder) Close() {
	close(f.ch)
	<-f.done
}
