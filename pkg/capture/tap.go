// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/radio"
	"github.com/Thermoquad/parhelion/pkg/tick"
)

// Tap wraps a transceiver and records every frame taken from it.
// Recording stops at the first write error, which Err reports; the wrapped
// transceiver keeps working.
type Tap struct {
	radio.Transceiver

	clock tick.Source
	w     *Writer
	err   error
}

// NewTap records frames taken from r to w, stamped with clock
func NewTap(r radio.Transceiver, clock tick.Source, w *Writer) *Tap {
	return &Tap{Transceiver: r, clock: clock, w: w}
}

// TakePacket takes a frame from the wrapped transceiver and records it
func (t *Tap) TakePacket() (afhds.Frame, bool) {
	f, ok := t.Transceiver.TakePacket()
	if ok && t.err == nil {
		t.err = t.w.Write(NewRecord(t.clock.Now(), t.Transceiver.Status().Channel, f))
	}
	return f, ok
}

// Err returns the write error that stopped recording
func (t *Tap) Err() error {
	return t.err
}

// Count returns the number of frames recorded
func (t *Tap) Count() int {
	return t.w.Count()
}
