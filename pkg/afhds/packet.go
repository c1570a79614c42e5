// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package afhds

import (
	"fmt"

	"github.com/Thermoquad/parhelion/pkg/hop"
)

// Frame is one raw packet as delivered by the transceiver
type Frame [FrameSize]byte

// ID is a transmitter or receiver identity. Identities compare byte-wise.
type ID [IDSize]byte

// IsZero reports whether every byte of the identity is zero
func (id ID) IsZero() bool {
	return id == ID{}
}

// String formats the identity as colon separated hex bytes
func (id ID) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X", id[0], id[1], id[2], id[3])
}

// Sticks holds the six control channel values of the vehicle
type Sticks [ControlChannels]uint16

// NeutralSticks returns centred sticks with the throttle at its low end
func NeutralSticks() Sticks {
	return Sticks{StickNeutral, StickNeutral, StickLow, StickNeutral, StickNeutral, StickNeutral}
}

// Packet is a decoded and validated frame
type Packet struct {
	Type PacketType
	TxID ID
	RxID ID

	// Hops is the advertised hop table of a bind packet, zero when the
	// transmitter did not advertise one.
	Hops hop.Table

	// Channels holds every on-air channel value of a stick or failsafe
	// packet.
	Channels [AirChannels]uint16
}

// Sticks returns the control channels of a stick or failsafe packet
func (p *Packet) Sticks() Sticks {
	var s Sticks
	copy(s[:], p.Channels[:ControlChannels])
	return s
}

// IsBind reports whether the packet is one of the bind packet types
func (p *Packet) IsBind() bool {
	return p.Type == PacketBind || p.Type == PacketBindAlt
}

// Type returns the packet type byte of the frame
func (f *Frame) Type() PacketType {
	return PacketType(f[offsetType])
}

// TxID returns the transmitter identity carried by the frame
func (f *Frame) TxID() ID {
	var id ID
	copy(id[:], f[offsetTxID:offsetTxID+IDSize])
	return id
}

// FrameFromBytes copies b into a Frame. b must be exactly FrameSize bytes.
func FrameFromBytes(b []byte) (Frame, error) {
	var f Frame
	if len(b) != FrameSize {
		return f, fmt.Errorf("%w: got %d bytes", ErrFrameLength, len(b))
	}
	copy(f[:], b)
	return f, nil
}
