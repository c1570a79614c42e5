// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/hop"
	"github.com/Thermoquad/parhelion/pkg/mixing"
	"github.com/Thermoquad/parhelion/pkg/nvstore"
	"github.com/Thermoquad/parhelion/pkg/radio/sim"
	"github.com/Thermoquad/parhelion/pkg/tick"
)

var (
	idA = afhds.ID{0xA1, 0xA2, 0xA3, 0xA4}
	idB = afhds.ID{0xB1, 0xB2, 0xB3, 0xB4}
	idC = afhds.ID{0xC1, 0xC2, 0xC3, 0xC4}
	idD = afhds.ID{0xD1, 0xD2, 0xD3, 0xD4}
	idE = afhds.ID{0xE1, 0xE2, 0xE3, 0xE4}
)

// ============================================================
// Test Harness
// ============================================================

// recordingLogger forwards to the test log and keeps every line
type recordingLogger struct {
	t     *testing.T
	lines []string
}

func (l *recordingLogger) Printf(format string, v ...any) {
	line := fmt.Sprintf(format, v...)
	l.lines = append(l.lines, line)
	l.t.Log(line)
}

func (l *recordingLogger) contains(s string) bool {
	for _, line := range l.lines {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}

type harness struct {
	t      *testing.T
	clock  *tick.Manual
	air    *sim.Air
	radio  *sim.Transceiver
	store  *nvstore.MemoryStore
	mixer  *mixing.Failsafe
	log    *recordingLogger
	events []Event
	engine *Engine
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BindThreshold = 5
	cfg.FailsafeMisses = 10
	cfg.RebindMisses = 40
	return cfg
}

func newHarness(t *testing.T, cfg Config, store *nvstore.MemoryStore, txs ...*sim.Transmitter) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		clock: tick.NewManual(0),
		store: store,
		mixer: mixing.NewFailsafe(),
		log:   &recordingLogger{t: t},
	}
	h.air = sim.NewAir(h.clock, 1)
	h.air.Add(txs...)
	h.radio = sim.NewTransceiver(h.air)

	e, err := New(cfg, h.radio, store,
		WithLogger(h.log),
		WithMixer(h.mixer),
		WithEventHandler(func(ev Event) { h.events = append(h.events, ev) }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.engine = e
	e.Start(h.clock.Now())
	return h
}

// step advances the clock one tick and polls once
func (h *harness) step() {
	h.clock.Advance(1)
	h.engine.Poll(h.clock.Now())
}

func (h *harness) run(ticks int) {
	for i := 0; i < ticks; i++ {
		h.step()
	}
}

// runUntil polls until cond holds, failing the test after limit ticks
func (h *harness) runUntil(limit int, what string, cond func() bool) {
	h.t.Helper()
	for i := 0; i < limit; i++ {
		if cond() {
			return
		}
		h.step()
	}
	if !cond() {
		h.t.Fatalf("%s not reached within %d ticks (state %s, missed %d)", what, limit, h.engine.State(), h.engine.Missed())
	}
}

func (h *harness) countEvents(kind EventKind) int {
	n := 0
	for _, ev := range h.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// bindAndSync binds to tx, switches it to hopping and waits for the first
// accepted packet
func (h *harness) bindAndSync(tx *sim.Transmitter) {
	h.t.Helper()
	h.runUntil(2000, "bind", func() bool { return h.engine.State() == StateHopping })
	tx.Binding = false
	h.runUntil(2000, "sync", h.engine.Healthy)
}

func hoppingTx(id afhds.ID) *sim.Transmitter {
	tx := sim.NewTransmitter(id, 4)
	tx.Binding = false
	return tx
}

// ============================================================
// Startup Tests
// ============================================================

func TestStart_NoRecordEntersBind(t *testing.T) {
	h := newHarness(t, testConfig(), nvstore.NewMemoryStore())

	if h.engine.State() != StateBind {
		t.Fatalf("State() = %s, want BIND", h.engine.State())
	}
	if h.radio.Channel() != hop.DefaultBindChannel {
		t.Errorf("tuned to 0x%02X, want bind channel", h.radio.Channel())
	}
	if h.engine.Healthy() {
		t.Error("healthy while binding")
	}
	if h.countEvents(EventEnteredBind) != 1 {
		t.Errorf("EnteredBind events = %d, want 1", h.countEvents(EventEnteredBind))
	}
}

func TestStart_PersistedRecordResumesHopping(t *testing.T) {
	tx := hoppingTx(idA)
	tx.Sticks = sim.SweepSticks

	store := nvstore.NewMemoryStore()
	if err := store.Save(nvstore.Record{ID: idA, Hops: tx.Hops}); err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, testConfig(), store, tx)
	if h.engine.State() != StateHopping {
		t.Fatalf("State() = %s, want HOPPING", h.engine.State())
	}
	if id, ok := h.engine.Identity(); !ok || id != idA {
		t.Errorf("Identity() = %s, %v", id, ok)
	}
	if h.engine.Healthy() {
		t.Error("healthy before any packet was received")
	}

	h.runUntil(200, "sync", h.engine.Healthy)
	h.run(100)

	if !h.engine.Healthy() {
		t.Error("link unhealthy after resuming")
	}
	if h.countEvents(EventEnteredBind) != 0 {
		t.Error("resumed engine entered bind")
	}
	if store.Saves() != 1 {
		t.Errorf("store saved %d times, want only the setup save", store.Saves())
	}
}

func TestStart_UnreadableRecordBinds(t *testing.T) {
	store := &failingStore{loadErr: errors.New("flash read error")}
	air := sim.NewAir(tick.NewManual(0), 1)
	logger := &recordingLogger{t: t}

	e, err := New(testConfig(), sim.NewTransceiver(air), store, WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	e.Poll(0)

	if e.State() != StateBind {
		t.Errorf("State() = %s, want BIND", e.State())
	}
	if !logger.contains("unreadable") {
		t.Error("load failure was not logged")
	}
}

func TestStart_PersistedButSilentFallsBackToBind(t *testing.T) {
	cfg := testConfig()
	store := nvstore.NewMemoryStore()
	store.Save(nvstore.Record{ID: idA, Hops: sim.OwnTable(idA)})

	h := newHarness(t, cfg, store)
	limit := int(cfg.SearchDwellTicks)*int(cfg.RebindMisses) + 10
	h.runUntil(limit, "fallback to bind", func() bool { return h.engine.State() == StateBind })

	st := h.engine.Statistics()
	if st.Misses != uint64(cfg.RebindMisses) {
		t.Errorf("Misses = %d, want %d", st.Misses, cfg.RebindMisses)
	}
	if st.LinkLosses != 0 {
		t.Errorf("LinkLosses = %d for a link that never came up", st.LinkLosses)
	}
	if h.countEvents(EventRebind) != 1 {
		t.Errorf("Rebind events = %d, want 1", h.countEvents(EventRebind))
	}
}

// ============================================================
// Binding Tests
// ============================================================

func TestBind_SingleTransmitter(t *testing.T) {
	tx := sim.NewTransmitter(idA, 4)
	h := newHarness(t, testConfig(), nvstore.NewMemoryStore(), tx)

	h.runUntil(100, "bind", func() bool { return h.engine.State() == StateHopping })

	id, ok := h.engine.Identity()
	if !ok || id != idA {
		t.Fatalf("Identity() = %s, %v, want %s", id, ok, idA)
	}
	if h.engine.Hops() != tx.Hops {
		t.Errorf("Hops() = %s, want advertised %s", h.engine.Hops(), tx.Hops)
	}
	if h.engine.Cursor() != 0 || h.engine.Missed() != 0 {
		t.Errorf("cursor=%d missed=%d after bind, want 0/0", h.engine.Cursor(), h.engine.Missed())
	}
	if h.radio.Channel() != tx.Hops.Channel(0) {
		t.Errorf("tuned to 0x%02X, want hops[0]", h.radio.Channel())
	}

	rec, err := h.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.ID != idA || rec.Hops != tx.Hops {
		t.Errorf("stored record = %s", rec)
	}
	if h.engine.Statistics().BindFrames != 5 {
		t.Errorf("BindFrames = %d, want 5", h.engine.Statistics().BindFrames)
	}
	if h.countEvents(EventBound) != 1 {
		t.Errorf("Bound events = %d", h.countEvents(EventBound))
	}
}

func TestBind_DerivedTableWhenNotAdvertised(t *testing.T) {
	tx := sim.NewTransmitter(idA, 4)
	tx.Advertise = false
	h := newHarness(t, testConfig(), nvstore.NewMemoryStore(), tx)

	h.runUntil(100, "bind", func() bool { return h.engine.State() == StateHopping })

	if h.engine.Hops() != hop.Derive(idA) {
		t.Errorf("Hops() = %s, want derived %s", h.engine.Hops(), hop.Derive(idA))
	}
	if !h.log.contains("derived") {
		t.Error("derived table not logged")
	}
}

func TestBind_PluralityWinner(t *testing.T) {
	fast := sim.NewTransmitter(idA, 4)
	slow := sim.NewTransmitter(idB, 12)
	slow.Phase = 2
	h := newHarness(t, testConfig(), nvstore.NewMemoryStore(), slow, fast)

	h.runUntil(200, "bind", func() bool { return h.engine.State() == StateHopping })

	if id, _ := h.engine.Identity(); id != idA {
		t.Errorf("bound to %s, want %s", id, idA)
	}
}

func TestBind_FifthCandidateIgnored(t *testing.T) {
	var txs []*sim.Transmitter
	for i, id := range []afhds.ID{idA, idB, idC, idD} {
		tx := sim.NewTransmitter(id, 50)
		tx.Phase = uint32(i + 1)
		txs = append(txs, tx)
	}
	late := sim.NewTransmitter(idE, 4)
	late.Phase = 100
	txs = append(txs, late)

	h := newHarness(t, testConfig(), nvstore.NewMemoryStore(), txs...)

	h.run(150)
	if h.engine.State() != StateBind {
		t.Fatal("bound while every candidate was below threshold")
	}
	snap := h.engine.Snapshot(h.clock.Now())
	if len(snap.Candidates) != 4 {
		t.Fatalf("candidates = %d, want 4", len(snap.Candidates))
	}
	for _, c := range snap.Candidates {
		if c.ID == idE {
			t.Fatal("fifth identity took a slot")
		}
	}

	h.runUntil(400, "bind", func() bool { return h.engine.State() == StateHopping })
	if id, _ := h.engine.Identity(); id != idA {
		t.Errorf("bound to %s, want %s", id, idA)
	}
}

func TestBind_SaveFailureIsNotFatal(t *testing.T) {
	store := nvstore.NewMemoryStore()
	store.SaveErr = errors.New("eeprom busy")
	tx := sim.NewTransmitter(idA, 4)
	h := newHarness(t, testConfig(), store, tx)

	h.bindAndSync(tx)

	st := h.engine.Statistics()
	if st.SaveFailures != 1 || st.Saves != 0 {
		t.Errorf("SaveFailures=%d Saves=%d, want 1/0", st.SaveFailures, st.Saves)
	}
	if h.countEvents(EventSaveFailed) != 1 {
		t.Errorf("SaveFailed events = %d", h.countEvents(EventSaveFailed))
	}
	if !h.log.contains("not saved") {
		t.Error("save failure not logged")
	}
	if !h.engine.Healthy() {
		t.Error("link not healthy after a failed save")
	}
}

func TestBind_IgnoresStickPackets(t *testing.T) {
	tx := hoppingTx(idA)
	for i := range tx.Hops {
		tx.Hops[i] = hop.DefaultBindChannel
	}
	h := newHarness(t, testConfig(), nvstore.NewMemoryStore(), tx)

	h.run(200)
	if h.engine.State() != StateBind {
		t.Fatal("stick packets completed a bind")
	}
	st := h.engine.Statistics()
	if st.Ignored == 0 || st.BindFrames != 0 {
		t.Errorf("Ignored=%d BindFrames=%d", st.Ignored, st.BindFrames)
	}
}

func TestBind_MalformedFramesIgnored(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(seq uint32, f *afhds.Frame)
	}{
		{"unknown type", func(_ uint32, f *afhds.Frame) { f[0] = 0x11 }},
		{"zero identity", func(_ uint32, f *afhds.Frame) {
			for i := 1; i <= afhds.IDSize; i++ {
				f[i] = 0x00
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := sim.NewTransmitter(idA, 4)
			tx.Corrupt = tt.corrupt
			h := newHarness(t, testConfig(), nvstore.NewMemoryStore(), tx)

			h.run(200)
			if h.engine.State() != StateBind {
				t.Fatalf("State() = %s, want BIND", h.engine.State())
			}
			if snap := h.engine.Snapshot(h.clock.Now()); len(snap.Candidates) != 0 {
				t.Errorf("malformed frames created %d candidates", len(snap.Candidates))
			}
			st := h.engine.Statistics()
			if st.Malformed == 0 || st.BindFrames != 0 {
				t.Errorf("Malformed=%d BindFrames=%d", st.Malformed, st.BindFrames)
			}
		})
	}
}

// ============================================================
// Hopping Tests
// ============================================================

func TestHopping_FollowsSequence(t *testing.T) {
	tx := sim.NewTransmitter(idA, 4)
	tx.Sticks = sim.SweepSticks
	h := newHarness(t, testConfig(), nvstore.NewMemoryStore(), tx)
	h.bindAndSync(tx)

	before := h.engine.Statistics()
	prev := h.engine.Cursor()
	for i := 0; i < 400; i++ {
		h.step()
		cur := h.engine.Cursor()
		if cur != prev && cur != hop.Next(prev) {
			t.Fatalf("cursor jumped from %d to %d", prev, cur)
		}
		if h.radio.Channel() != h.engine.Hops().Channel(cur) {
			t.Fatalf("tuned to 0x%02X, cursor %d is 0x%02X", h.radio.Channel(), cur, h.engine.Hops().Channel(cur))
		}
		if !h.engine.Healthy() {
			t.Fatalf("link unhealthy on a clean channel at tick %d", h.clock.Now())
		}
		prev = cur
	}

	after := h.engine.Statistics()
	if after.Misses != before.Misses {
		t.Errorf("missed %d packets on a clean channel", after.Misses-before.Misses)
	}
	if got := after.Accepted - before.Accepted; got != 100 {
		t.Errorf("accepted %d packets in 400 ticks, want 100", got)
	}

	last := (h.clock.Now() - tx.Phase) / tx.Period
	if h.engine.Sticks() != sim.SweepSticks(last) {
		t.Errorf("Sticks() = %v, want %v", h.engine.Sticks(), sim.SweepSticks(last))
	}
	if h.mixer.Outputs() != h.engine.Sticks() {
		t.Errorf("mixer outputs %v do not follow sticks %v", h.mixer.Outputs(), h.engine.Sticks())
	}
}

func TestHopping_ShortLossKeepsSync(t *testing.T) {
	tx := sim.NewTransmitter(idA, 4)
	h := newHarness(t, testConfig(), nvstore.NewMemoryStore(), tx)
	h.bindAndSync(tx)

	start := (h.clock.Now()-tx.Phase)/tx.Period + 2
	h.air.Drop = func(_ *sim.Transmitter, seq uint32) bool {
		return seq >= start && seq < start+3
	}

	maxMissed := uint16(0)
	for i := 0; i < 100; i++ {
		h.step()
		if m := h.engine.Missed(); m > maxMissed {
			maxMissed = m
		}
		if !h.engine.Healthy() {
			t.Fatalf("short loss made the link unhealthy (missed %d)", h.engine.Missed())
		}
	}

	if maxMissed != 3 {
		t.Errorf("peak missed count = %d, want 3", maxMissed)
	}
	if h.engine.Missed() != 0 {
		t.Errorf("Missed() = %d after recovery, want 0", h.engine.Missed())
	}
}

func TestHopping_FailsafeOnExactCycle(t *testing.T) {
	cfg := testConfig()
	tx := sim.NewTransmitter(idA, 4)
	h := newHarness(t, cfg, nvstore.NewMemoryStore(), tx)
	h.bindAndSync(tx)

	tx.Off = true
	crossed := false
	for i := 0; i < 200 && !crossed; i++ {
		before := h.engine.Missed()
		h.step()
		after := h.engine.Missed()

		switch {
		case after < cfg.FailsafeMisses:
			if !h.engine.Healthy() {
				t.Fatalf("unhealthy at %d missed packets", after)
			}
			if h.mixer.InFailsafe() {
				t.Fatalf("mixer in failsafe at %d missed packets", after)
			}
		case before == cfg.FailsafeMisses-1 && after == cfg.FailsafeMisses:
			if h.engine.Healthy() {
				t.Fatal("still healthy on the crossing cycle")
			}
			if !h.mixer.InFailsafe() {
				t.Fatal("mixer not in failsafe on the crossing cycle")
			}
			crossed = true
		default:
			t.Fatalf("missed count moved from %d to %d in one cycle", before, after)
		}
	}

	if !crossed {
		t.Fatal("failsafe threshold never crossed")
	}
	if h.countEvents(EventLinkLost) != 1 {
		t.Errorf("LinkLost events = %d, want 1", h.countEvents(EventLinkLost))
	}
	if h.mixer.Outputs() != afhds.NeutralSticks() {
		t.Errorf("failsafe outputs = %v, want neutral", h.mixer.Outputs())
	}
}

func TestHopping_RecoversAfterLinkLoss(t *testing.T) {
	cfg := testConfig()
	tx := sim.NewTransmitter(idA, 4)
	h := newHarness(t, cfg, nvstore.NewMemoryStore(), tx)
	h.bindAndSync(tx)

	tx.Off = true
	h.runUntil(500, "link loss", func() bool { return !h.engine.Healthy() })
	tx.Off = false

	limit := int(cfg.SearchDwellTicks) * 2
	h.runUntil(limit, "recovery", h.engine.Healthy)

	if h.engine.State() != StateHopping {
		t.Errorf("State() = %s after recovery", h.engine.State())
	}
	if h.countEvents(EventLinkRecovered) != 1 {
		t.Errorf("LinkRecovered events = %d, want 1", h.countEvents(EventLinkRecovered))
	}
	if h.mixer.InFailsafe() {
		t.Error("mixer still in failsafe after recovery")
	}
}

func TestHopping_RecoversOnFailsafePacket(t *testing.T) {
	cfg := testConfig()
	tx := sim.NewTransmitter(idA, 4)
	tx.FailsafeValues = afhds.Sticks{1500, 1500, 1000, 1500, 1500, 1500}
	h := newHarness(t, cfg, nvstore.NewMemoryStore(), tx)
	h.bindAndSync(tx)

	tx.Off = true
	h.runUntil(500, "link loss", func() bool { return !h.engine.Healthy() })
	if !h.mixer.InFailsafe() {
		t.Fatal("mixer not in failsafe after link loss")
	}

	// Only failsafe packets from here on
	tx.FailsafeEvery = 1
	tx.Off = false
	sticks := h.engine.Statistics().StickPackets
	h.runUntil(int(cfg.SearchDwellTicks)*2, "recovery", h.engine.Healthy)

	if got := h.engine.Statistics().StickPackets; got != sticks {
		t.Fatalf("recovered on a stick packet (%d stick packets)", got-sticks)
	}
	if h.countEvents(EventLinkRecovered) != 1 {
		t.Errorf("LinkRecovered events = %d, want 1", h.countEvents(EventLinkRecovered))
	}
	if h.mixer.InFailsafe() {
		t.Error("mixer still in failsafe after recovering on a failsafe packet")
	}
}

func TestHopping_RebindAfterLongOutage(t *testing.T) {
	cfg := testConfig()
	tx := sim.NewTransmitter(idA, 4)
	h := newHarness(t, cfg, nvstore.NewMemoryStore(), tx)
	h.bindAndSync(tx)

	tx.Off = true
	limit := int(cfg.SearchDwellTicks)*int(cfg.RebindMisses) + 100
	h.runUntil(limit, "rebind", func() bool { return h.engine.State() == StateBind })

	if h.engine.Missed() != 0 {
		t.Errorf("Missed() = %d after rebind", h.engine.Missed())
	}
	if h.radio.Channel() != cfg.BindChannel {
		t.Errorf("tuned to 0x%02X after rebind", h.radio.Channel())
	}
	st := h.engine.Statistics()
	if st.Rebinds != 1 || st.LinkLosses != 1 {
		t.Errorf("Rebinds=%d LinkLosses=%d, want 1/1", st.Rebinds, st.LinkLosses)
	}

	tx.Off = false
	tx.Binding = true
	h.bindAndSync(tx)
	if id, _ := h.engine.Identity(); id != idA {
		t.Errorf("rebound to %s", id)
	}
}

func TestHopping_RejectsOtherTransmitter(t *testing.T) {
	tx := sim.NewTransmitter(idA, 4)
	tx.Sticks = func(uint32) afhds.Sticks { return afhds.Sticks{1100, 1100, 1100, 1100, 1100, 1100} }
	h := newHarness(t, testConfig(), nvstore.NewMemoryStore(), tx)
	h.bindAndSync(tx)

	// The intruder sends on the channel the receiver tunes to next,
	// between two packets of the bound transmitter.
	intruder := hoppingTx(idB)
	for i := range intruder.Hops {
		intruder.Hops[i] = tx.Hops[(i+1)%hop.Length]
	}
	intruder.Phase = 2
	intruder.Sticks = func(uint32) afhds.Sticks { return afhds.Sticks{1900, 1900, 1900, 1900, 1900, 1900} }
	h.air.Add(intruder)

	h.run(200)

	st := h.engine.Statistics()
	if st.WrongTransmitter == 0 {
		t.Fatal("intruder frames never reached the receiver")
	}
	if st.Misses != 0 {
		t.Errorf("intruder caused %d misses", st.Misses)
	}
	if h.engine.Sticks()[0] != 1100 {
		t.Errorf("sticks taken from the intruder: %v", h.engine.Sticks())
	}
}

func TestHopping_MalformedCountsAsMiss(t *testing.T) {
	tx := sim.NewTransmitter(idA, 4)
	h := newHarness(t, testConfig(), nvstore.NewMemoryStore(), tx)
	h.bindAndSync(tx)

	tx.Corrupt = func(seq uint32, f *afhds.Frame) {
		if seq%5 == 0 {
			f[9] = 0x00
			f[10] = 0x00
		}
	}
	before := h.engine.Statistics()
	h.run(400)
	after := h.engine.Statistics()

	if after.Malformed == before.Malformed {
		t.Fatal("no malformed frames counted")
	}
	if after.Misses-before.Misses != after.Malformed-before.Malformed {
		t.Errorf("misses %d != malformed %d", after.Misses-before.Misses, after.Malformed-before.Malformed)
	}
	if !h.engine.Healthy() {
		t.Error("isolated malformed frames made the link unhealthy")
	}
}

func TestHopping_TransmitterFailsafeValues(t *testing.T) {
	values := afhds.Sticks{1500, 1500, 1050, 1500, 1900, 1100}
	tx := sim.NewTransmitter(idA, 4)
	tx.FailsafeEvery = 8
	tx.FailsafeValues = values
	h := newHarness(t, testConfig(), nvstore.NewMemoryStore(), tx)
	h.bindAndSync(tx)
	h.run(100)

	got, ok := h.engine.TransmitterFailsafe()
	if !ok || got != values {
		t.Fatalf("TransmitterFailsafe() = %v, %v", got, ok)
	}
	if h.engine.Statistics().FailsafePackets == 0 {
		t.Error("no failsafe packets counted")
	}

	tx.Off = true
	h.runUntil(500, "link loss", func() bool { return !h.engine.Healthy() })
	if h.mixer.Outputs() != values {
		t.Errorf("failsafe outputs = %v, want transmitter values %v", h.mixer.Outputs(), values)
	}
}

func TestPoll_DoesNotAllocate(t *testing.T) {
	tx := sim.NewTransmitter(idA, 4)
	h := newHarness(t, testConfig(), nvstore.NewMemoryStore(), tx)
	h.bindAndSync(tx)

	allocs := testing.AllocsPerRun(200, h.step)
	if allocs != 0 {
		t.Errorf("Poll allocated %.2f times per cycle", allocs)
	}
}

// ============================================================
// Snapshot Tests
// ============================================================

func TestSnapshot(t *testing.T) {
	tx := sim.NewTransmitter(idA, 4)
	h := newHarness(t, testConfig(), nvstore.NewMemoryStore(), tx)

	snap := h.engine.Snapshot(h.clock.Now())
	if snap.State != StateBind || snap.Channel != hop.DefaultBindChannel {
		t.Errorf("bind snapshot = %+v", snap)
	}

	h.bindAndSync(tx)
	snap = h.engine.Snapshot(h.clock.Now())
	if !snap.Healthy || snap.ID != idA || snap.Candidates != nil {
		t.Errorf("hopping snapshot: healthy=%v id=%s candidates=%v", snap.Healthy, snap.ID, snap.Candidates)
	}
	if snap.Channel != snap.Hops.Channel(snap.Cursor) {
		t.Errorf("snapshot channel 0x%02X does not match cursor", snap.Channel)
	}
	if snap.Radio.Channel != snap.Channel {
		t.Errorf("radio on 0x%02X, snapshot says 0x%02X", snap.Radio.Channel, snap.Channel)
	}
}

// ============================================================
// Construction Tests
// ============================================================

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.RebindMisses = cfg.FailsafeMisses
	air := sim.NewAir(tick.NewManual(0), 1)

	_, err := New(cfg, sim.NewTransceiver(air), nvstore.NewMemoryStore())
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New error = %v, want ErrInvalidConfig", err)
	}
}

func TestPoll_UnknownStatePanics(t *testing.T) {
	h := newHarness(t, testConfig(), nvstore.NewMemoryStore())
	h.engine.state = State(7)

	defer func() {
		if recover() == nil {
			t.Error("Poll did not panic on an unknown state")
		}
	}()
	h.step()
}

type failingStore struct {
	loadErr error
}

func (s *failingStore) Load() (nvstore.Record, error) { return nvstore.Record{}, s.loadErr }
func (s *failingStore) Save(nvstore.Record) error     { return nil }
