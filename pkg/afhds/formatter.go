// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package afhds

import (
	"fmt"
	"strings"
)

// FormatPacketType returns a human-readable packet type name
func FormatPacketType(t PacketType) string {
	switch t {
	case PacketBind:
		return "BIND"
	case PacketBindAlt:
		return "BIND_ALT"
	case PacketSticks:
		return "STICKS"
	case PacketFailsafe:
		return "FAILSAFE"
	case PacketSettings:
		return "SETTINGS"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", byte(t))
	}
}

// FormatSticks formats control channel values
func FormatSticks(s Sticks) string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprintf("ch%d=%d", i+1, v)
	}
	return strings.Join(parts, " ")
}

// FormatPacket formats a decoded packet on one line
func FormatPacket(p *Packet) string {
	head := fmt.Sprintf("[%s] tx=%s rx=%s", FormatPacketType(p.Type), p.TxID, p.RxID)

	switch {
	case p.IsBind():
		if p.Hops.IsZero() {
			return head + " hops=(not advertised)"
		}
		return fmt.Sprintf("%s hops=%s", head, p.Hops)
	case p.Type == PacketSticks || p.Type == PacketFailsafe:
		return fmt.Sprintf("%s %s", head, FormatSticks(p.Sticks()))
	default:
		return head
	}
}

// FormatFrame returns a hex dump of a raw frame
func FormatFrame(f *Frame) string {
	var b strings.Builder
	for i, v := range f {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}
