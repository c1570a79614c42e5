// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/radio"
	"github.com/Thermoquad/parhelion/pkg/tick"
)

// Player replays captured records as a radio.Transceiver.
//
// Record ticks are shifted so the first record plays at the clock's time
// when the Player was created. A record is delivered only if the player is
// receiving on the record's channel at that moment, unless AnyChannel is
// set. Like the chip, the player holds one frame and stops receiving until
// re-armed.
type Player struct {
	clock   tick.Source
	records []Record
	next    int
	start   uint32
	base    uint32

	// AnyChannel delivers every record regardless of the selected channel.
	AnyChannel bool

	channel    uint8
	receiving  bool
	pending    afhds.Frame
	hasPending bool

	frames   uint32
	overruns uint32
	skipped  uint32
}

// NewPlayer creates a player over records, which must be in tick order
func NewPlayer(clock tick.Source, records []Record) *Player {
	p := &Player{
		clock:   clock,
		records: records,
		start:   clock.Now(),
	}
	if len(records) > 0 {
		p.base = records[0].Tick
	}
	return p
}

func (p *Player) scan() {
	p.scanTo(p.clock.Now())
}

// scanTo plays every record due at or before tick now
func (p *Player) scanTo(now uint32) {
	for p.next < len(p.records) {
		rec := &p.records[p.next]
		if !tick.Reached(now, p.start+(rec.Tick-p.base)) {
			return
		}
		p.next++

		if !p.AnyChannel && rec.Channel != p.channel {
			p.skipped++
			continue
		}
		f, err := rec.AirFrame()
		if err != nil {
			p.skipped++
			continue
		}
		switch {
		case p.hasPending:
			p.overruns++
		case p.receiving:
			p.pending = f
			p.hasPending = true
			p.receiving = false
			p.frames++
		default:
			p.skipped++
		}
	}
}

// SelectChannel tunes to ch and starts receiving. Records stamped with the
// current tick play after the tune, since Tap stamps frames with the tick
// they were taken.
func (p *Player) SelectChannel(ch uint8) error {
	if err := radio.CheckChannel(ch); err != nil {
		return err
	}
	p.scanTo(p.clock.Now() - 1)
	p.channel = ch
	p.receiving = true
	p.hasPending = false
	p.scan()
	return nil
}

// StartReceive re-arms reception on the current channel
func (p *Player) StartReceive() error {
	p.scanTo(p.clock.Now() - 1)
	p.receiving = true
	p.hasPending = false
	p.scan()
	return nil
}

// HasPacket reports whether a frame is waiting
func (p *Player) HasPacket() bool {
	p.scan()
	return p.hasPending
}

// TakePacket removes and returns the waiting frame
func (p *Player) TakePacket() (afhds.Frame, bool) {
	p.scan()
	if !p.hasPending {
		return afhds.Frame{}, false
	}
	p.hasPending = false
	return p.pending, true
}

// Status reports the replayed chip state
func (p *Player) Status() radio.Status {
	st := radio.Status{
		Chip:     radio.ChipIdle,
		Channel:  p.channel,
		Frames:   p.frames,
		Overruns: p.overruns,
	}
	switch {
	case p.hasPending:
		st.Chip = radio.ChipPacketReady
	case p.receiving:
		st.Chip = radio.ChipReceiving
	}
	return st
}

// Done reports whether every record has been played
func (p *Player) Done() bool {
	return p.next >= len(p.records)
}

// Skipped returns the number of records not delivered because the player
// was on another channel, not receiving, or the frame was malformed
func (p *Player) Skipped() uint32 {
	return p.skipped
}

// Duration returns the tick span from the first record to the last
func (p *Player) Duration() uint32 {
	if len(p.records) == 0 {
		return 0
	}
	return p.records[len(p.records)-1].Tick - p.base
}
