// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sim simulates transmitters and a transceiver sharing the air.
//
// Time is taken from a tick.Source, so a simulation can run in real time
// from a tick.Counter or compressed from a tick.Manual. Each transmitter
// sends one frame every Period ticks, on its bind channel while binding and
// along its hop table otherwise. The simulated transceiver behaves like the
// real chip: it captures the first frame on its channel and stops listening
// until it is re-armed.
package sim

import (
	"math/rand"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/hop"
	"github.com/Thermoquad/parhelion/pkg/radio"
	"github.com/Thermoquad/parhelion/pkg/tick"
)

// Transmitter is a simulated RC transmitter
type Transmitter struct {
	ID   afhds.ID
	RxID afhds.ID
	Hops hop.Table

	// Advertise includes Hops in bind packets.
	Advertise bool

	// Binding sends bind packets on BindChannel instead of hopping.
	Binding     bool
	BindChannel uint8

	// Period is the packet interval in ticks; Phase delays the first packet.
	Period uint32
	Phase  uint32

	// Off silences the transmitter.
	Off bool

	// Sticks returns the control values for packet seq. Nil sends neutral.
	Sticks func(seq uint32) afhds.Sticks

	// FailsafeEvery makes every Nth packet a failsafe packet carrying
	// FailsafeValues. Zero disables failsafe packets.
	FailsafeEvery  uint32
	FailsafeValues afhds.Sticks

	// Corrupt, when set, may modify each outgoing frame.
	Corrupt func(seq uint32, f *afhds.Frame)

	sent uint32
}

// NewTransmitter creates a transmitter with its own hop table, advertising
// it while binding
func NewTransmitter(id afhds.ID, period uint32) *Transmitter {
	return &Transmitter{
		ID:          id,
		RxID:        afhds.ID{0x52, 0x58, 0x00, 0x01},
		Hops:        OwnTable(id),
		Advertise:   true,
		Binding:     true,
		BindChannel: hop.DefaultBindChannel,
		Period:      period,
	}
}

// OwnTable generates the hop table a simulated transmitter picks for itself.
// It is deterministic per identity and differs from hop.Derive.
func OwnTable(id afhds.ID) hop.Table {
	seed := int64(id[0])<<24 | int64(id[1])<<16 | int64(id[2])<<8 | int64(id[3])
	rng := rand.New(rand.NewSource(seed ^ 0x5DEECE66D))

	var t hop.Table
	perm := rng.Perm(0xA0 - 0x10)
	for i := range t {
		t[i] = uint8(0x10 + perm[i])
	}
	return t
}

// Sent returns the number of frames the transmitter has sent
func (tx *Transmitter) Sent() uint32 {
	return tx.sent
}

// emitsAt reports whether the transmitter sends at tick t and the packet's
// sequence number
func (tx *Transmitter) emitsAt(t uint32) (uint32, bool) {
	if tx.Off || tx.Period == 0 || t < tx.Phase {
		return 0, false
	}
	d := t - tx.Phase
	if d%tx.Period != 0 {
		return 0, false
	}
	return d / tx.Period, true
}

// channel returns the channel packet seq is sent on
func (tx *Transmitter) channel(seq uint32) uint8 {
	if tx.Binding {
		return tx.BindChannel
	}
	return tx.Hops.Channel(hop.Cursor(seq % hop.Length))
}

// frame builds packet seq
func (tx *Transmitter) frame(seq uint32) afhds.Frame {
	var f afhds.Frame
	switch {
	case tx.Binding:
		var advertised hop.Table
		if tx.Advertise {
			advertised = tx.Hops
		}
		f = afhds.EncodeBind(tx.ID, tx.RxID, advertised)
	case tx.FailsafeEvery > 0 && seq%tx.FailsafeEvery == tx.FailsafeEvery-1:
		f = afhds.EncodeFailsafe(tx.ID, tx.RxID, afhds.ChannelsFromSticks(tx.FailsafeValues))
	default:
		sticks := afhds.NeutralSticks()
		if tx.Sticks != nil {
			sticks = tx.Sticks(seq)
		}
		f = afhds.EncodeSticks(tx.ID, tx.RxID, afhds.ChannelsFromSticks(sticks))
	}
	if tx.Corrupt != nil {
		tx.Corrupt(seq, &f)
	}
	return f
}

// SweepSticks moves every control channel along a triangle wave between
// StickLow and StickHigh, each channel offset from the previous one
func SweepSticks(seq uint32) afhds.Sticks {
	const span = afhds.StickHigh - afhds.StickLow
	var s afhds.Sticks
	for i := range s {
		pos := (seq*4 + uint32(i)*span/afhds.ControlChannels) % (2 * span)
		if pos > span {
			pos = 2*span - pos
		}
		s[i] = uint16(afhds.StickLow + pos)
	}
	return s
}

// Air is the shared medium between simulated transmitters and receivers
type Air struct {
	clock        tick.Source
	transmitters []*Transmitter

	// Loss is the probability that any single frame is lost.
	Loss float64

	// Drop, when set, decides loss for each frame instead of Loss.
	Drop func(tx *Transmitter, seq uint32) bool

	rng *rand.Rand
}

// NewAir creates an empty medium timed by clock, with seed driving random loss
func NewAir(clock tick.Source, seed int64) *Air {
	return &Air{
		clock: clock,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Add places transmitters on the air
func (a *Air) Add(txs ...*Transmitter) {
	a.transmitters = append(a.transmitters, txs...)
}

// Transmitters returns the transmitters on the air
func (a *Air) Transmitters() []*Transmitter {
	return a.transmitters
}

func (a *Air) lost(tx *Transmitter, seq uint32) bool {
	if a.Drop != nil {
		return a.Drop(tx, seq)
	}
	return a.Loss > 0 && a.rng.Float64() < a.Loss
}

// Transceiver is a simulated receiver chip listening to an Air
type Transceiver struct {
	air *Air

	channel    uint8
	receiving  bool
	pending    afhds.Frame
	hasPending bool
	lastScan   uint32

	frames   uint32
	overruns uint32
	tunes    uint32

	// SelectErr, when set, is returned by SelectChannel, which then leaves
	// the chip idle.
	SelectErr error
}

// NewTransceiver creates an idle transceiver on the given air
func NewTransceiver(air *Air) *Transceiver {
	return &Transceiver{
		air:      air,
		lastScan: air.clock.Now(),
	}
}

// scan delivers every frame sent since the last scan
func (r *Transceiver) scan() {
	now := r.air.clock.Now()
	for t := r.lastScan; t != now; {
		t++
		for _, tx := range r.air.transmitters {
			seq, ok := tx.emitsAt(t)
			if !ok {
				continue
			}
			tx.sent++
			if tx.channel(seq) != r.channel || r.air.lost(tx, seq) {
				continue
			}
			switch {
			case r.hasPending:
				r.overruns++
			case r.receiving:
				r.pending = tx.frame(seq)
				r.hasPending = true
				r.receiving = false
				r.frames++
			}
		}
	}
	r.lastScan = now
}

// SelectChannel tunes to ch and starts receiving, discarding any frame not
// yet taken
func (r *Transceiver) SelectChannel(ch uint8) error {
	r.scan()
	if r.SelectErr != nil {
		r.receiving = false
		return r.SelectErr
	}
	if err := radio.CheckChannel(ch); err != nil {
		return err
	}
	r.channel = ch
	r.receiving = true
	r.hasPending = false
	r.tunes++
	return nil
}

// StartReceive re-arms reception on the current channel
func (r *Transceiver) StartReceive() error {
	r.scan()
	r.receiving = true
	r.hasPending = false
	return nil
}

// HasPacket reports whether a frame is waiting
func (r *Transceiver) HasPacket() bool {
	r.scan()
	return r.hasPending
}

// TakePacket removes and returns the waiting frame
func (r *Transceiver) TakePacket() (afhds.Frame, bool) {
	r.scan()
	if !r.hasPending {
		return afhds.Frame{}, false
	}
	r.hasPending = false
	return r.pending, true
}

// Status reports the simulated chip state
func (r *Transceiver) Status() radio.Status {
	st := radio.Status{
		Chip:     radio.ChipIdle,
		Channel:  r.channel,
		Frames:   r.frames,
		Overruns: r.overruns,
	}
	switch {
	case r.hasPending:
		st.Chip = radio.ChipPacketReady
	case r.receiving:
		st.Chip = radio.ChipReceiving
	}
	return st
}

// Channel returns the tuned channel
func (r *Transceiver) Channel() uint8 {
	return r.channel
}

// Tunes returns the number of successful SelectChannel calls
func (r *Transceiver) Tunes() uint32 {
	return r.tunes
}
