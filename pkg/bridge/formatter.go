// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
	"sort"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/radio"
)

// FormatMessage formats a message into a human-readable string
func FormatMessage(m *Message) string {
	timestamp := m.Timestamp().Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (0x%02X)\n", timestamp, FormatMessageType(m.Type()), m.Type())
	return result + FormatPayloadMap(m.Type(), m.Payload())
}

// FormatMessageType returns the human-readable name for a message type
func FormatMessageType(msgType uint8) string {
	switch msgType {
	// Radio Commands (0x10-0x1F)
	case MsgSelectChannel:
		return "SELECT_CHANNEL"
	case MsgStartReceive:
		return "START_RECEIVE"
	case MsgStatusRequest:
		return "STATUS_REQUEST"

	// Service Commands (0x20-0x2F)
	case MsgPingRequest:
		return "PING_REQUEST"

	// Radio Data (0x30-0x3F)
	case MsgRadioFrame:
		return "RADIO_FRAME"
	case MsgStatusData:
		return "STATUS_DATA"
	case MsgPingResponse:
		return "PING_RESPONSE"

	// Errors (0xE0-0xEF)
	case MsgErrorInvalidCmd:
		return "ERROR_INVALID_CMD"
	case MsgErrorRadioFault:
		return "ERROR_RADIO_FAULT"

	default:
		return "UNKNOWN"
	}
}

// FormatPayloadMap formats the CBOR payload map based on message type
func FormatPayloadMap(msgType uint8, m map[int]interface{}) string {
	switch msgType {
	case MsgStartReceive, MsgStatusRequest, MsgPingRequest:
		return "  (no payload)\n"

	case MsgSelectChannel:
		// 0 => channel
		ch, _ := GetMapUint(m, 0)
		return fmt.Sprintf("  Channel: 0x%02X\n", ch)

	case MsgRadioFrame:
		// 0 => frame, 1 => channel
		ch, _ := GetMapUint(m, 1)
		data, _ := GetMapBytes(m, 0)
		f, err := afhds.FrameFromBytes(data)
		if err != nil {
			return fmt.Sprintf("  Channel: 0x%02X, Frame: %d bytes (%v)\n", ch, len(data), err)
		}
		return fmt.Sprintf("  Channel: 0x%02X, %s\n", ch, afhds.FormatFrame(&f))

	case MsgStatusData:
		// 0 => chip, 1 => channel, 2 => frames, 3 => overruns
		chip, _ := GetMapUint(m, 0)
		ch, _ := GetMapUint(m, 1)
		frames, _ := GetMapUint(m, 2)
		overruns, _ := GetMapUint(m, 3)
		return fmt.Sprintf("  Chip: %s, Channel: 0x%02X, Frames: %d, Overruns: %d\n",
			radio.ChipState(chip), ch, frames, overruns)

	case MsgPingResponse:
		// 0 => uptime-ms
		uptime, _ := GetMapUint(m, 0)
		return fmt.Sprintf("  Uptime: %s\n", formatDuration(uptime))

	case MsgErrorInvalidCmd, MsgErrorRadioFault:
		// 0 => error-code
		code, _ := GetMapUint(m, 0)
		return fmt.Sprintf("  Error Code: %d\n", code)
	}

	if m == nil {
		return "  (nil payload)\n"
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	result := "  Payload: {"
	for _, k := range keys {
		result += fmt.Sprintf("%d: %v, ", k, m[k])
	}
	return result + "}\n"
}

// formatDuration formats milliseconds as a compact duration
func formatDuration(ms uint64) string {
	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes%60, seconds%60)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	default:
		return fmt.Sprintf("%d.%03ds", seconds, ms%1000)
	}
}
