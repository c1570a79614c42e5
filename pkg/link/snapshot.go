// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"context"
	"time"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/bind"
	"github.com/Thermoquad/parhelion/pkg/hop"
	"github.com/Thermoquad/parhelion/pkg/radio"
	"github.com/Thermoquad/parhelion/pkg/tick"
)

// Snapshot is a copy of the engine's observable state
type Snapshot struct {
	Tick    uint32
	State   State
	Healthy bool
	Synced  bool

	ID      afhds.ID
	Hops    hop.Table
	Cursor  hop.Cursor
	Channel uint8
	Missed  uint16

	// LastPacket is the tick of the last accepted packet
	LastPacket uint32

	Sticks        afhds.Sticks
	TxFailsafe    afhds.Sticks
	HasTxFailsafe bool

	// Candidates lists the bind candidates while binding
	Candidates []bind.Slot

	Stats Statistics
	Radio radio.Status
}

// Snapshot copies the engine's state for display on another goroutine
func (e *Engine) Snapshot(now uint32) Snapshot {
	s := Snapshot{
		Tick:          now,
		State:         e.state,
		Healthy:       e.Healthy(),
		Synced:        e.synced,
		ID:            e.id,
		Hops:          e.hops,
		Cursor:        e.cursor,
		Missed:        e.missed,
		LastPacket:    e.lastRx,
		Sticks:        e.sticks,
		TxFailsafe:    e.txFailsafe,
		HasTxFailsafe: e.hasTxFailsafe,
		Stats:         e.stats,
		Radio:         e.radio.Status(),
	}
	if e.state == StateBind {
		s.Channel = e.cfg.BindChannel
		s.Candidates = e.tracker.Slots()
	} else {
		s.Channel = e.hops.Channel(e.cursor)
	}
	return s
}

// Run starts e if needed and polls it until ctx is cancelled, sleeping idle
// between cycles. each, when non-nil, is called after every cycle from the
// polling goroutine.
func Run(ctx context.Context, e *Engine, src tick.Source, idle time.Duration, each func(now uint32)) {
	if !e.started {
		e.Start(src.Now())
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now := src.Now()
		e.Poll(now)
		if each != nil {
			each(now)
		}
		if idle > 0 {
			time.Sleep(idle)
		}
	}
}
