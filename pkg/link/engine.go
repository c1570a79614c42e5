// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package link implements the receiver's radio link state machine.
//
// The Engine binds to one transmitter out of several candidates, follows its
// 16-channel hop sequence, extracts control sticks from accepted packets and
// counts missed packets to decide when the link is unhealthy and when to give
// up and bind again. It is driven by Poll, once per main loop cycle, with the
// current tick count. Poll never blocks and does not allocate except when
// logging a state transition.
//
// An Engine is owned by the goroutine that calls Poll. Other goroutines
// observe it through Snapshot values handed over by that goroutine.
package link

import (
	"errors"
	"fmt"
	"log"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/bind"
	"github.com/Thermoquad/parhelion/pkg/hop"
	"github.com/Thermoquad/parhelion/pkg/nvstore"
	"github.com/Thermoquad/parhelion/pkg/radio"
	"github.com/Thermoquad/parhelion/pkg/tick"
)

// Logger receives diagnostic lines. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Mixer consumes control sticks and link health
type Mixer interface {
	Update(sticks afhds.Sticks, healthy bool)
}

// FailsafeReceiver is implemented by mixers that accept failsafe values
// provided by the transmitter
type FailsafeReceiver interface {
	SetFailsafe(values afhds.Sticks)
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the diagnostics output
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMixer sets the output mixer
func WithMixer(m Mixer) Option {
	return func(e *Engine) { e.mixer = m }
}

// WithEventHandler sets a callback invoked on every link transition, from
// the goroutine calling Poll
func WithEventHandler(fn func(Event)) Option {
	return func(e *Engine) { e.onEvent = fn }
}

// Engine is the radio link state machine
type Engine struct {
	cfg     Config
	radio   radio.Transceiver
	store   nvstore.Store
	log     Logger
	mixer   Mixer
	onEvent func(Event)

	started bool
	state   State
	tracker *bind.Tracker

	id     afhds.ID
	hops   hop.Table
	cursor hop.Cursor

	// synced is set by the first accepted packet after entering Hopping
	synced   bool
	missed   uint16
	deadline uint32
	lastRx   uint32

	sticks        afhds.Sticks
	txFailsafe    afhds.Sticks
	hasTxFailsafe bool

	stats Statistics
}

// New creates an engine. Call Start before the first Poll, or let the first
// Poll start it.
func New(cfg Config, r radio.Transceiver, store nvstore.Store, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.New("link: nil transceiver")
	}
	if store == nil {
		return nil, errors.New("link: nil store")
	}

	e := &Engine{
		cfg:     cfg,
		radio:   r,
		store:   store,
		log:     log.Default(),
		tracker: bind.NewTracker(cfg.BindThreshold),
		sticks:  afhds.NeutralSticks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Start selects the initial state from the persisted bind record: Hopping
// with the stored transmitter if a valid record exists, Bind otherwise.
func (e *Engine) Start(now uint32) {
	e.started = true

	rec, err := e.store.Load()
	switch {
	case err == nil:
		e.logf("resuming bind with transmitter %s", rec.ID)
		e.enterHopping(now, rec.ID, rec.Hops)
		e.emit(EventResumed, now)
	case errors.Is(err, nvstore.ErrNoRecord):
		e.enterBind(now)
	default:
		e.logf("bind record unreadable, binding: %v", err)
		e.enterBind(now)
	}
}

// Poll runs one cycle of the state machine at tick now
func (e *Engine) Poll(now uint32) {
	if !e.started {
		e.Start(now)
	}

	switch e.state {
	case StateBind:
		e.pollBind(now)
	case StateHopping:
		e.pollHopping(now)
	default:
		panic(fmt.Sprintf("link: unknown state %d", e.state))
	}
}

func (e *Engine) pollBind(now uint32) {
	f, ok := e.take()
	if !ok {
		return
	}

	p, err := afhds.DecodeBind(&f)
	e.rearm()
	if err != nil {
		e.reject(err)
		return
	}

	e.stats.BindFrames++
	e.tracker.Observe(p.TxID, p.Hops)
	if w, ok := e.tracker.Winner(); ok {
		e.completeBind(now, w)
	}
}

func (e *Engine) completeBind(now uint32, w bind.Slot) {
	hops := w.Hops
	source := "advertised"
	if !hops.Valid() {
		hops = hop.Derive(w.ID)
		source = "derived"
	}

	e.stats.Binds++
	e.logf("bound to transmitter %s after %d bind packets, %s hops %s", w.ID, w.Count, source, hops)

	if err := e.store.Save(nvstore.Record{ID: w.ID, Hops: hops}); err != nil {
		e.stats.SaveFailures++
		e.logf("bind record not saved: %v", err)
		e.emitID(EventSaveFailed, now, w.ID)
	} else {
		e.stats.Saves++
	}

	e.enterHopping(now, w.ID, hops)
	e.emit(EventBound, now)
}

func (e *Engine) pollHopping(now uint32) {
	if f, ok := e.take(); ok {
		p, err := afhds.DecodeSticks(&f, e.id)
		if err == nil {
			e.accept(now, &p)
			return
		}
		e.reject(err)
		e.rearm()
	}

	if tick.Reached(now, e.deadline) {
		e.miss(now)
	}
}

func (e *Engine) accept(now uint32, p *afhds.Packet) {
	wasSynced := e.synced
	wasLost := e.missed >= e.cfg.FailsafeMisses

	e.stats.Accepted++
	e.synced = true
	e.missed = 0
	e.lastRx = now

	e.cursor = hop.Next(e.cursor)
	e.deadline = now + e.cfg.PacketIntervalTicks + e.cfg.SlackTicks
	e.tune(e.hops.Channel(e.cursor))

	switch p.Type {
	case afhds.PacketSticks:
		e.stats.StickPackets++
		e.sticks = p.Sticks()
		if e.mixer != nil {
			e.mixer.Update(e.sticks, true)
		}
	case afhds.PacketFailsafe:
		e.stats.FailsafePackets++
		e.txFailsafe = p.Sticks()
		e.hasTxFailsafe = true
		if fr, ok := e.mixer.(FailsafeReceiver); ok {
			fr.SetFailsafe(e.txFailsafe)
		}
		// Health changed on a packet that carries no sticks
		if (!wasSynced || wasLost) && e.mixer != nil {
			e.mixer.Update(e.sticks, true)
		}
	}

	switch {
	case !wasSynced:
		e.logf("synchronized with transmitter %s", e.id)
		e.emit(EventSynced, now)
	case wasLost:
		e.logf("link recovered")
		e.emit(EventLinkRecovered, now)
	}
}

func (e *Engine) miss(now uint32) {
	if e.missed < ^uint16(0) {
		e.missed++
	}
	e.stats.Misses++
	e.cursor = hop.Next(e.cursor)

	if e.searching() {
		e.deadline += e.cfg.SearchDwellTicks
	} else {
		e.deadline += e.cfg.PacketIntervalTicks
	}
	// After a long stall, restart the schedule from now rather than
	// replaying every missed window.
	if tick.Reached(now, e.deadline) && tick.Since(now, e.deadline) > e.cfg.SearchDwellTicks*hop.Length {
		e.deadline = now + e.cfg.PacketIntervalTicks
	}

	e.tune(e.hops.Channel(e.cursor))

	if e.missed == e.cfg.FailsafeMisses && e.synced {
		e.stats.LinkLosses++
		e.logf("link lost after %d missed packets", e.missed)
		e.emit(EventLinkLost, now)
		if e.mixer != nil {
			e.mixer.Update(e.sticks, false)
		}
	}

	if e.missed >= e.cfg.RebindMisses {
		e.stats.Rebinds++
		e.logf("no packets from %s for %d cycles, rebinding", e.id, e.missed)
		e.emit(EventRebind, now)
		e.enterBind(now)
	}
}

// searching reports whether the receiver has no timing reference and
// dwells on each channel for SearchDwellTicks
func (e *Engine) searching() bool {
	return !e.synced || e.missed >= e.cfg.FailsafeMisses
}

func (e *Engine) enterBind(now uint32) {
	e.state = StateBind
	e.tracker.Reset()
	e.id = afhds.ID{}
	e.hops = hop.Table{}
	e.cursor = 0
	e.synced = false
	e.missed = 0
	e.tune(e.cfg.BindChannel)

	e.logf("entered bind on channel 0x%02X", e.cfg.BindChannel)
	e.emit(EventEnteredBind, now)
}

func (e *Engine) enterHopping(now uint32, id afhds.ID, hops hop.Table) {
	e.state = StateHopping
	e.id = id
	e.hops = hops
	e.cursor = 0
	e.synced = false
	e.missed = 0
	e.deadline = now + e.cfg.SearchDwellTicks
	e.tune(hops.Channel(e.cursor))
}

func (e *Engine) take() (afhds.Frame, bool) {
	if !e.radio.HasPacket() {
		return afhds.Frame{}, false
	}
	f, ok := e.radio.TakePacket()
	if ok {
		e.stats.Frames++
	}
	return f, ok
}

func (e *Engine) tune(ch uint8) {
	if err := e.radio.SelectChannel(ch); err != nil {
		e.stats.RadioErrors++
	}
}

func (e *Engine) rearm() {
	if err := e.radio.StartReceive(); err != nil {
		e.stats.RadioErrors++
	}
}

func (e *Engine) reject(err error) {
	switch err {
	case afhds.ErrWrongTransmitter:
		e.stats.WrongTransmitter++
	case afhds.ErrNotBind, afhds.ErrNotSticks:
		e.stats.Ignored++
	default:
		e.stats.Malformed++
	}
}

func (e *Engine) logf(format string, v ...any) {
	if e.log != nil {
		e.log.Printf(format, v...)
	}
}

func (e *Engine) emit(kind EventKind, now uint32) {
	e.emitID(kind, now, e.id)
}

func (e *Engine) emitID(kind EventKind, now uint32, id afhds.ID) {
	if e.onEvent != nil {
		e.onEvent(Event{Kind: kind, Tick: now, ID: id, Missed: e.missed})
	}
}

// State returns the current link state
func (e *Engine) State() State {
	return e.state
}

// Healthy reports whether control sticks are current: the engine is
// Hopping, has accepted a packet since entering Hopping, and fewer than
// FailsafeMisses packets in a row have been missed.
func (e *Engine) Healthy() bool {
	return e.state == StateHopping && e.synced && e.missed < e.cfg.FailsafeMisses
}

// Sticks returns the most recently accepted control sticks
func (e *Engine) Sticks() afhds.Sticks {
	return e.sticks
}

// TransmitterFailsafe returns failsafe values sent by the transmitter
func (e *Engine) TransmitterFailsafe() (afhds.Sticks, bool) {
	return e.txFailsafe, e.hasTxFailsafe
}

// Identity returns the bound transmitter. ok is false while binding.
func (e *Engine) Identity() (id afhds.ID, ok bool) {
	return e.id, e.state == StateHopping
}

// Hops returns the hop table in use, zero while binding
func (e *Engine) Hops() hop.Table {
	return e.hops
}

// Cursor returns the current hop position
func (e *Engine) Cursor() hop.Cursor {
	return e.cursor
}

// Missed returns the consecutive missed packet count
func (e *Engine) Missed() uint16 {
	return e.missed
}

// Statistics returns a copy of the link counters
func (e *Engine) Statistics() Statistics {
	return e.stats
}

// Config returns the engine's configuration
func (e *Engine) Config() Config {
	return e.cfg
}
