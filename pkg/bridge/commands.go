// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/radio"
)

// Command builder functions create Messages ready for encoding, using the
// payload keys each message type defines.

// NewSelectChannel creates a SELECT_CHANNEL message (0x10).
// The bridge tunes the radio and starts receiving.
func NewSelectChannel(ch uint8) *Message {
	return NewMessage(MsgSelectChannel, map[int]interface{}{
		0: uint64(ch),
	})
}

// NewStartReceive creates a START_RECEIVE message (0x11).
// The bridge re-arms reception on the current channel.
func NewStartReceive() *Message {
	return NewMessage(MsgStartReceive, nil)
}

// NewStatusRequest creates a STATUS_REQUEST message (0x12).
// The bridge answers with STATUS_DATA.
func NewStatusRequest() *Message {
	return NewMessage(MsgStatusRequest, nil)
}

// NewPingRequest creates a PING_REQUEST message (0x2F).
// The bridge answers with PING_RESPONSE containing its uptime.
func NewPingRequest() *Message {
	return NewMessage(MsgPingRequest, nil)
}

// NewRadioFrame creates a RADIO_FRAME message (0x30) carrying a received
// frame and the channel it arrived on
func NewRadioFrame(ch uint8, f afhds.Frame) *Message {
	return NewMessage(MsgRadioFrame, map[int]interface{}{
		0: f[:],
		1: uint64(ch),
	})
}

// NewStatusData creates a STATUS_DATA message (0x31)
func NewStatusData(st radio.Status) *Message {
	return NewMessage(MsgStatusData, map[int]interface{}{
		0: uint64(st.Chip),
		1: uint64(st.Channel),
		2: uint64(st.Frames),
		3: uint64(st.Overruns),
	})
}

// NewPingResponse creates a PING_RESPONSE message (0x3F)
func NewPingResponse(uptimeMs uint64) *Message {
	return NewMessage(MsgPingResponse, map[int]interface{}{
		0: uptimeMs,
	})
}

// ParseSelectChannel extracts the channel from a SELECT_CHANNEL message
func ParseSelectChannel(m *Message) (uint8, error) {
	if m.Type() != MsgSelectChannel {
		return 0, fmt.Errorf("%w: 0x%02X", ErrUnexpectedType, m.Type())
	}
	ch, ok := GetMapUint(m.Payload(), 0)
	if !ok || ch > 0xFF {
		return 0, fmt.Errorf("%w: channel", ErrMissingField)
	}
	return uint8(ch), nil
}

// ParseRadioFrame extracts the frame and channel from a RADIO_FRAME message
func ParseRadioFrame(m *Message) (afhds.Frame, uint8, error) {
	if m.Type() != MsgRadioFrame {
		return afhds.Frame{}, 0, fmt.Errorf("%w: 0x%02X", ErrUnexpectedType, m.Type())
	}
	data, ok := GetMapBytes(m.Payload(), 0)
	if !ok {
		return afhds.Frame{}, 0, fmt.Errorf("%w: frame", ErrMissingField)
	}
	f, err := afhds.FrameFromBytes(data)
	if err != nil {
		return afhds.Frame{}, 0, err
	}
	ch, _ := GetMapUint(m.Payload(), 1)
	return f, uint8(ch), nil
}

// ParseStatusData extracts the chip status from a STATUS_DATA message
func ParseStatusData(m *Message) (radio.Status, error) {
	if m.Type() != MsgStatusData {
		return radio.Status{}, fmt.Errorf("%w: 0x%02X", ErrUnexpectedType, m.Type())
	}
	p := m.Payload()
	chip, ok := GetMapUint(p, 0)
	if !ok {
		return radio.Status{}, fmt.Errorf("%w: chip state", ErrMissingField)
	}
	ch, _ := GetMapUint(p, 1)
	frames, _ := GetMapUint(p, 2)
	overruns, _ := GetMapUint(p, 3)
	return radio.Status{
		Chip:     radio.ChipState(chip),
		Channel:  uint8(ch),
		Frames:   uint32(frames),
		Overruns: uint32(overruns),
	}, nil
}

// ParsePingResponse extracts the uptime in milliseconds from a PING_RESPONSE
func ParsePingResponse(m *Message) (uint64, error) {
	if m.Type() != MsgPingResponse {
		return 0, fmt.Errorf("%w: 0x%02X", ErrUnexpectedType, m.Type())
	}
	uptime, ok := GetMapUint(m.Payload(), 0)
	if !ok {
		return 0, fmt.Errorf("%w: uptime", ErrMissingField)
	}
	return uptime, nil
}
