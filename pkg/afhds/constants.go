// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package afhds decodes and validates the fixed 37-byte radio packets sent by
// an AFHDS 2A style frequency-hopping transmitter.
//
// Every packet starts with a type byte followed by the 4-byte transmitter
// identity and the 4-byte receiver identity. Bind packets advertise the
// transmitter's hop channels; stick packets carry 14 little-endian channel
// values of which the first six are the vehicle's control channels.
//
// Decode is allocation free and returns sentinel errors so it can run on every
// receive cycle. Validate is the diagnostic counterpart that reports every
// anomaly it finds.
package afhds

// Frame geometry
const (
	FrameSize = 37
	IDSize    = 4
)

// Field offsets within a frame
const (
	offsetType     = 0
	offsetTxID     = 1
	offsetRxID     = 5
	offsetChannels = 9
	offsetHops     = 11
)

// PacketType identifies the packet kind from byte 0
type PacketType uint8

// Packet types
const (
	PacketBind     PacketType = 0xBB
	PacketBindAlt  PacketType = 0xBC
	PacketSticks   PacketType = 0x58
	PacketFailsafe PacketType = 0x56
	PacketSettings PacketType = 0xAA
)

// Channel layout
const (
	// AirChannels is the number of channel values a stick packet carries.
	AirChannels = 14
	// ControlChannels is the number of channels the vehicle consumes.
	ControlChannels = 6
)

// Stick value limits in microseconds of servo pulse
const (
	StickMin     = 860
	StickMax     = 2140
	StickLow     = 1000
	StickNeutral = 1500
	StickHigh    = 2000
)

// Conventional control channel indices
const (
	ChannelAileron  = 0
	ChannelElevator = 1
	ChannelThrottle = 2
	ChannelRudder   = 3
	ChannelAux1     = 4
	ChannelAux2     = 5
)
