// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bind

import (
	"testing"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/hop"
)

var (
	idA = afhds.ID{0xA0, 0, 0, 1}
	idB = afhds.ID{0xB0, 0, 0, 2}
	idC = afhds.ID{0xC0, 0, 0, 3}
	idD = afhds.ID{0xD0, 0, 0, 4}
	idE = afhds.ID{0xE0, 0, 0, 5}
)

func observeN(tr *Tracker, id afhds.ID, n int) {
	for i := 0; i < n; i++ {
		tr.Observe(id, hop.Table{})
	}
}

// ============================================================
// Election Tests
// ============================================================

func TestWinner_ThresholdPlurality(t *testing.T) {
	tr := NewTracker(5)

	observeN(tr, idA, 3)
	observeN(tr, idB, 4)
	if _, ok := tr.Winner(); ok {
		t.Fatal("winner elected before any candidate reached the threshold")
	}

	observeN(tr, idA, 2)
	w, ok := tr.Winner()
	if !ok {
		t.Fatal("no winner after A reached the threshold")
	}
	if w.ID != idA {
		t.Errorf("winner = %s, want %s", w.ID, idA)
	}
	if w.Count != 5 {
		t.Errorf("winner count = %d, want 5", w.Count)
	}
}

func TestWinner_HighestCountWins(t *testing.T) {
	tr := NewTracker(2)
	observeN(tr, idA, 2)
	observeN(tr, idB, 3)

	w, ok := tr.Winner()
	if !ok || w.ID != idB {
		t.Errorf("winner = %s (ok=%v), want %s", w.ID, ok, idB)
	}
}

func TestWinner_TieGoesToFirstSeen(t *testing.T) {
	tr := NewTracker(2)
	observeN(tr, idB, 2)
	observeN(tr, idA, 2)

	w, _ := tr.Winner()
	if w.ID != idB {
		t.Errorf("winner = %s, want first seen %s", w.ID, idB)
	}
}

func TestWinner_Empty(t *testing.T) {
	tr := NewTracker(1)
	if _, ok := tr.Winner(); ok {
		t.Error("empty tracker elected a winner")
	}
}

// ============================================================
// Capacity Tests
// ============================================================

func TestObserve_FifthIdentityIgnored(t *testing.T) {
	tr := NewTracker(10)
	for _, id := range []afhds.ID{idA, idB, idC, idD} {
		if !tr.Observe(id, hop.Table{}) {
			t.Fatalf("Observe(%s) rejected while slots remain", id)
		}
	}

	if tr.Observe(idE, hop.Table{}) {
		t.Error("Observe accepted a fifth identity")
	}
	if tr.Len() != MaxCandidates {
		t.Errorf("Len() = %d, want %d", tr.Len(), MaxCandidates)
	}
	for _, s := range tr.Slots() {
		if s.ID == idE {
			t.Error("fifth identity occupies a slot")
		}
		if s.Count != 1 {
			t.Errorf("slot %s count = %d, want 1", s.ID, s.Count)
		}
	}

	if !tr.Observe(idC, hop.Table{}) {
		t.Error("known identity rejected with a full table")
	}
}

func TestObserve_FifthIdentityCannotWin(t *testing.T) {
	tr := NewTracker(3)
	for _, id := range []afhds.ID{idA, idB, idC, idD} {
		tr.Observe(id, hop.Table{})
	}
	observeN(tr, idE, 50)

	if _, ok := tr.Winner(); ok {
		t.Error("an untracked identity produced a winner")
	}
}

func TestObserve_CountSaturates(t *testing.T) {
	tr := NewTracker(1)
	tr.slots[0] = Slot{ID: idA, Count: ^uint16(0)}
	tr.n = 1

	tr.Observe(idA, hop.Table{})
	if tr.slots[0].Count != ^uint16(0) {
		t.Errorf("count wrapped to %d", tr.slots[0].Count)
	}
}

// ============================================================
// Advertised Table Tests
// ============================================================

func TestObserve_RemembersLatestValidTable(t *testing.T) {
	tr := NewTracker(1)
	first := hop.Derive([4]byte{1, 1, 1, 1})
	second := hop.Derive([4]byte{2, 2, 2, 2})
	var invalid hop.Table
	for i := range invalid {
		invalid[i] = 0xFF
	}

	tr.Observe(idA, first)
	tr.Observe(idA, second)
	tr.Observe(idA, invalid)
	tr.Observe(idA, hop.Table{})

	w, ok := tr.Winner()
	if !ok {
		t.Fatal("no winner")
	}
	if w.Hops != second {
		t.Errorf("remembered table = %s, want %s", w.Hops, second)
	}
}

// ============================================================
// Reset Tests
// ============================================================

func TestReset(t *testing.T) {
	tr := NewTracker(2)
	for _, id := range []afhds.ID{idA, idB, idC, idD} {
		observeN(tr, id, 2)
	}

	tr.Reset()
	if tr.Len() != 0 {
		t.Errorf("Len() = %d after Reset", tr.Len())
	}
	if _, ok := tr.Winner(); ok {
		t.Error("winner survived Reset")
	}
	if !tr.Observe(idE, hop.Table{}) {
		t.Error("Observe rejected after Reset")
	}
}

func TestNewTracker_ZeroThreshold(t *testing.T) {
	tr := NewTracker(0)
	if tr.Threshold() != 1 {
		t.Errorf("Threshold() = %d, want 1", tr.Threshold())
	}
}
