// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
	"time"
)

// Decoder is the bridge message framing state machine
type Decoder struct {
	state       int
	buffer      [MaxMessageSize]byte
	bufferIndex int
	length      int
	crc         uint16
	escapeNext  bool
}

// NewDecoder creates a new message decoder
func NewDecoder() *Decoder {
	return &Decoder{state: stateIdle}
}

// Reset returns the decoder to idle
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.bufferIndex = 0
	d.length = 0
	d.crc = 0
	d.escapeNext = false
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed message, or nil if the message is incomplete.
// Returns an error if a framed message was corrupt; the decoder then waits
// for the next START byte.
func (d *Decoder) DecodeByte(b byte) (*Message, error) {
	// Framing bytes are never escaped on the wire
	switch b {
	case StartByte:
		d.Reset()
		d.state = stateLength
		return nil, nil
	case EndByte:
		return d.finish()
	case EscByte:
		d.escapeNext = true
		return nil, nil
	}

	if d.escapeNext {
		b ^= EscXor
		d.escapeNext = false
	}

	switch d.state {
	case stateIdle:
		return nil, nil

	case stateLength:
		if int(b) > MaxPayloadSize {
			d.Reset()
			return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidLength, b, MaxPayloadSize)
		}
		d.length = int(b)
		d.buffer[0] = b
		d.bufferIndex = 1
		if d.length == 0 {
			d.state = stateCRC1
		} else {
			d.state = statePayload
		}

	case statePayload:
		d.buffer[d.bufferIndex] = b
		d.bufferIndex++
		if d.bufferIndex > d.length {
			d.state = stateCRC1
		}

	case stateCRC1:
		d.crc = uint16(b) << 8
		d.state = stateCRC2

	case stateCRC2:
		d.crc |= uint16(b)
		d.state = stateComplete

	case stateComplete:
		d.Reset()
		return nil, fmt.Errorf("trailing data after CRC")
	}
	return nil, nil
}

func (d *Decoder) finish() (*Message, error) {
	if d.state == stateIdle {
		return nil, nil
	}
	if d.state != stateComplete {
		state := d.state
		d.Reset()
		return nil, fmt.Errorf("%w in state %d", ErrUnexpectedEnd, state)
	}

	data := d.buffer[:d.bufferIndex]
	calculated := CalculateCRC(data)
	if calculated != d.crc {
		received := d.crc
		d.Reset()
		return nil, fmt.Errorf("%w: expected 0x%04X, got 0x%04X", ErrCRCMismatch, calculated, received)
	}

	raw := append([]byte(nil), data[1:]...)
	crc := d.crc
	d.Reset()

	msgType, payload, err := ParseCBORMessage(raw)
	if err != nil {
		return nil, err
	}
	return &Message{
		msgType:   msgType,
		payload:   payload,
		raw:       raw,
		crc:       crc,
		timestamp: time.Now(),
	}, nil
}
