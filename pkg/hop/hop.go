// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package hop implements the receiver's 16-entry frequency hop sequence.
//
// A Table is agreed with the transmitter at bind time, either advertised in
// the transmitter's bind packets or derived from its identity. A Cursor walks
// the table one position per expected packet interval and wraps after the
// last entry.
package hop

import (
	"fmt"
	"strings"
)

// Table geometry and channel limits
const (
	Length = 16

	// MinChannel and MaxChannel bound the transceiver channel numbers a table
	// may use (2400MHz + 0.5MHz steps).
	MinChannel = 0x01
	MaxChannel = 0xA7

	// Derived tables use a narrower band that stays clear of the band edges
	// and of the bind channel.
	deriveLow  = 0x10
	deriveHigh = 0xA0

	// DefaultBindChannel is the channel transmitters use while binding.
	DefaultBindChannel = 0x0D
)

// Table is an ordered list of 16 channel numbers
type Table [Length]uint8

// Cursor is a position in a Table, always in [0, Length)
type Cursor uint8

// Next returns the position after c, wrapping from the last entry to the first
func Next(c Cursor) Cursor {
	return (c + 1) % Length
}

// Channel returns the channel number at position c
func (t Table) Channel(c Cursor) uint8 {
	return t[c%Length]
}

// Valid reports whether every entry is a usable radio channel
func (t Table) Valid() bool {
	for _, ch := range t {
		if ch < MinChannel || ch > MaxChannel {
			return false
		}
	}
	return true
}

// IsZero reports whether the table is unset
func (t Table) IsZero() bool {
	return t == Table{}
}

// String formats the table as space separated hex channels
func (t Table) String() string {
	var b strings.Builder
	for i, ch := range t {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", ch)
	}
	return b.String()
}

// Derive computes the hop table for a transmitter identity.
//
// The result depends only on id: 16 distinct channels in [0x10, 0xA0) that
// never include DefaultBindChannel. It is used when a transmitter bound
// without advertising its own table.
func Derive(id [4]byte) Table {
	seed := uint32(id[0]) | uint32(id[1])<<8 | uint32(id[2])<<16 | uint32(id[3])<<24
	if seed == 0 {
		seed = 0x9E3779B9
	}

	var t Table
	var used [256]bool
	span := uint32(deriveHigh - deriveLow)
	for i := 0; i < Length; {
		// xorshift32
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5

		ch := uint8(deriveLow + seed%span)
		if used[ch] {
			continue
		}
		used[ch] = true
		t[i] = ch
		i++
	}
	return t
}
