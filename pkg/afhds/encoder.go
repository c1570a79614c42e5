// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package afhds

import (
	"encoding/binary"

	"github.com/Thermoquad/parhelion/pkg/hop"
)

// EncodeBind builds a bind frame. A zero hops table is sent as 0xFF filler,
// which receivers read as "no table advertised".
func EncodeBind(tx, rx ID, hops hop.Table) Frame {
	var f Frame
	for i := range f {
		f[i] = 0xFF
	}
	putHeader(&f, PacketBind, tx, rx)
	if !hops.IsZero() {
		copy(f[offsetHops:offsetHops+hop.Length], hops[:])
	}
	return f
}

// EncodeSticks builds a stick frame carrying all on-air channel values
func EncodeSticks(tx, rx ID, channels [AirChannels]uint16) Frame {
	return encodeChannels(PacketSticks, tx, rx, channels)
}

// EncodeFailsafe builds a failsafe settings frame
func EncodeFailsafe(tx, rx ID, channels [AirChannels]uint16) Frame {
	return encodeChannels(PacketFailsafe, tx, rx, channels)
}

// ChannelsFromSticks expands six control values to a full on-air channel set,
// filling the remaining channels with StickNeutral.
func ChannelsFromSticks(s Sticks) [AirChannels]uint16 {
	var ch [AirChannels]uint16
	for i := range ch {
		ch[i] = StickNeutral
	}
	copy(ch[:], s[:])
	return ch
}

func encodeChannels(t PacketType, tx, rx ID, channels [AirChannels]uint16) Frame {
	var f Frame
	putHeader(&f, t, tx, rx)
	for i, v := range channels {
		off := offsetChannels + 2*i
		binary.LittleEndian.PutUint16(f[off:off+2], v)
	}
	return f
}

func putHeader(f *Frame, t PacketType, tx, rx ID) {
	f[offsetType] = byte(t)
	copy(f[offsetTxID:offsetTxID+IDSize], tx[:])
	copy(f[offsetRxID:offsetRxID+IDSize], rx[:])
}
