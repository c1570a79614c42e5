// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package nvstore persists the result of a successful bind.
//
// The record is a fixed 20-byte image: the 4-byte transmitter identity
// followed by the 16 hop channels. There is no version field; a blank
// (all 0xFF) or otherwise invalid image reads as "no record".
package nvstore

import (
	"fmt"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/hop"
)

// RecordSize is the size of the persisted image in bytes
const RecordSize = afhds.IDSize + hop.Length

// Record is the persisted bind result
type Record struct {
	ID   afhds.ID
	Hops hop.Table
}

// Valid reports whether the record could have come from a successful bind
func (r Record) Valid() bool {
	return !r.ID.IsZero() && r.Hops.Valid()
}

// Marshal returns the 20-byte image of r
func (r Record) Marshal() [RecordSize]byte {
	var b [RecordSize]byte
	copy(b[:afhds.IDSize], r.ID[:])
	copy(b[afhds.IDSize:], r.Hops[:])
	return b
}

// Unmarshal decodes a 20-byte image. It fails with ErrNoRecord if the image
// is not a valid record.
func Unmarshal(b []byte) (Record, error) {
	var r Record
	if len(b) != RecordSize {
		return r, fmt.Errorf("%w: record is %d bytes, want %d", ErrCorrupt, len(b), RecordSize)
	}
	copy(r.ID[:], b[:afhds.IDSize])
	copy(r.Hops[:], b[afhds.IDSize:])
	if !r.Valid() {
		return Record{}, ErrNoRecord
	}
	return r, nil
}

// String formats the record for display
func (r Record) String() string {
	return fmt.Sprintf("tx=%s hops=%s", r.ID, r.Hops)
}
