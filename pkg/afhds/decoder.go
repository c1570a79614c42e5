// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package afhds

import (
	"encoding/binary"

	"github.com/Thermoquad/parhelion/pkg/hop"
)

// Decode validates a frame and extracts its fields.
//
// A frame is structurally valid when its type byte is known, its transmitter
// identity is non-zero and, for stick and failsafe packets, every control
// channel lies within StickMin..StickMax. The receiver identity is carried
// but not checked. A bind packet whose hop list is not a valid table decodes
// with a zero Hops field.
func Decode(f *Frame) (Packet, error) {
	var p Packet
	p.Type = f.Type()
	if !knownType(p.Type) {
		return p, ErrUnknownType
	}

	copy(p.TxID[:], f[offsetTxID:offsetTxID+IDSize])
	copy(p.RxID[:], f[offsetRxID:offsetRxID+IDSize])
	if p.TxID.IsZero() {
		return p, ErrZeroIdentity
	}

	switch p.Type {
	case PacketBind, PacketBindAlt:
		var t hop.Table
		copy(t[:], f[offsetHops:offsetHops+hop.Length])
		if t.Valid() {
			p.Hops = t
		}
	case PacketSticks, PacketFailsafe:
		for i := range p.Channels {
			off := offsetChannels + 2*i
			p.Channels[i] = binary.LittleEndian.Uint16(f[off : off+2])
		}
		for _, v := range p.Channels[:ControlChannels] {
			if v < StickMin || v > StickMax {
				return p, ErrStickRange
			}
		}
	}

	return p, nil
}

// DecodeBind decodes a frame that must be a bind packet
func DecodeBind(f *Frame) (Packet, error) {
	p, err := Decode(f)
	if err != nil {
		return p, err
	}
	if !p.IsBind() {
		return p, ErrNotBind
	}
	return p, nil
}

// DecodeSticks decodes a frame that must be a stick or failsafe packet sent
// by the transmitter with identity bound.
func DecodeSticks(f *Frame, bound ID) (Packet, error) {
	if f.TxID() != bound {
		return Packet{Type: f.Type()}, ErrWrongTransmitter
	}
	p, err := Decode(f)
	if err != nil {
		return p, err
	}
	if p.Type != PacketSticks && p.Type != PacketFailsafe {
		return p, ErrNotSticks
	}
	return p, nil
}

func knownType(t PacketType) bool {
	switch t {
	case PacketBind, PacketBindAlt, PacketSticks, PacketFailsafe, PacketSettings:
		return true
	}
	return false
}
