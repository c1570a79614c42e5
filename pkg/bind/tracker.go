// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bind tracks candidate transmitters while the receiver is binding.
//
// Several transmitters may be in bind mode at once. The tracker counts bind
// packets per identity in a fixed table of four slots and elects the first
// identity whose count reaches the threshold. Identities seen after the table
// is full are ignored, so memory use never grows.
package bind

import (
	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/hop"
)

// MaxCandidates is the number of distinct identities tracked at once
const MaxCandidates = 4

// Slot is one candidate transmitter
type Slot struct {
	ID    afhds.ID
	Count uint16

	// Hops is the last valid hop table the candidate advertised, zero if none.
	Hops hop.Table
}

// Tracker counts bind packets per transmitter identity
type Tracker struct {
	slots     [MaxCandidates]Slot
	n         int
	threshold uint16
}

// NewTracker creates a tracker that elects a winner after threshold packets.
// A threshold of zero is treated as one.
func NewTracker(threshold uint16) *Tracker {
	if threshold == 0 {
		threshold = 1
	}
	return &Tracker{threshold: threshold}
}

// Threshold returns the number of bind packets needed to win
func (t *Tracker) Threshold() uint16 {
	return t.threshold
}

// Observe records one bind packet from id. A valid advertised table replaces
// the one remembered for that candidate. Returns false if id was ignored
// because every slot is taken by another identity.
func (t *Tracker) Observe(id afhds.ID, advertised hop.Table) bool {
	for i := 0; i < t.n; i++ {
		s := &t.slots[i]
		if s.ID != id {
			continue
		}
		if s.Count < ^uint16(0) {
			s.Count++
		}
		if advertised.Valid() {
			s.Hops = advertised
		}
		return true
	}

	if t.n == MaxCandidates {
		return false
	}

	s := Slot{ID: id, Count: 1}
	if advertised.Valid() {
		s.Hops = advertised
	}
	t.slots[t.n] = s
	t.n++
	return true
}

// Winner returns the candidate with the highest count at or above the
// threshold. Ties go to the candidate seen first.
func (t *Tracker) Winner() (Slot, bool) {
	best := -1
	for i := 0; i < t.n; i++ {
		c := t.slots[i].Count
		if c < t.threshold {
			continue
		}
		if best < 0 || c > t.slots[best].Count {
			best = i
		}
	}
	if best < 0 {
		return Slot{}, false
	}
	return t.slots[best], true
}

// Reset forgets every candidate
func (t *Tracker) Reset() {
	t.slots = [MaxCandidates]Slot{}
	t.n = 0
}

// Len returns the number of occupied slots
func (t *Tracker) Len() int {
	return t.n
}

// Slots returns a copy of the occupied slots in arrival order
func (t *Tracker) Slots() []Slot {
	out := make([]Slot, t.n)
	copy(out, t.slots[:t.n])
	return out
}
