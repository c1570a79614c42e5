// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package radio defines the narrow transceiver interface the link engine
// drives, and the chip status it reports.
package radio

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/hop"
)

// ErrInvalidChannel indicates a channel number the transceiver cannot tune
var ErrInvalidChannel = errors.New("invalid radio channel")

// Transceiver is a packet radio tuned by channel number.
//
// Every method is non-blocking. After a packet has been received the chip
// stops listening until StartReceive is called again.
type Transceiver interface {
	// SelectChannel tunes to ch and starts receiving.
	SelectChannel(ch uint8) error

	// StartReceive re-arms reception on the current channel.
	StartReceive() error

	// HasPacket reports whether a received frame is waiting.
	HasPacket() bool

	// TakePacket removes and returns the waiting frame, if any.
	TakePacket() (afhds.Frame, bool)

	// Status reports the chip state.
	Status() Status
}

// ChipState is the transceiver's operating state
type ChipState uint8

// Chip states
const (
	ChipIdle ChipState = iota
	ChipReceiving
	ChipPacketReady
	ChipFault
)

// String returns the chip state name
func (s ChipState) String() string {
	switch s {
	case ChipIdle:
		return "IDLE"
	case ChipReceiving:
		return "RECEIVING"
	case ChipPacketReady:
		return "PACKET_READY"
	case ChipFault:
		return "FAULT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

// Status is a snapshot of the transceiver
type Status struct {
	Chip    ChipState
	Channel uint8

	// Frames counts frames received since the transceiver was opened.
	Frames uint32

	// Overruns counts frames dropped because the previous one was not taken.
	Overruns uint32
}

// CheckChannel returns ErrInvalidChannel if ch is above hop.MaxChannel
func CheckChannel(ch uint8) error {
	if ch > hop.MaxChannel {
		return fmt.Errorf("%w: 0x%02X", ErrInvalidChannel, ch)
	}
	return nil
}
