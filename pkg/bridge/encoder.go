// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
)

// Encode returns the wire form of m, including framing and byte stuffing
func Encode(m *Message) ([]byte, error) {
	return EncodeMessage(m.Type(), m.Payload())
}

// EncodeMessage creates a complete wire-formatted bridge message
func EncodeMessage(msgType uint8, payloadMap map[int]interface{}) ([]byte, error) {
	cborPayload, err := encodeCBORMessage(msgType, payloadMap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode CBOR payload: %w", err)
	}

	if len(cborPayload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(cborPayload), MaxPayloadSize)
	}

	// length + CBOR payload is what gets CRC'd and byte-stuffed
	data := make([]byte, 1+len(cborPayload), 1+len(cborPayload)+2)
	data[0] = uint8(len(cborPayload))
	copy(data[1:], cborPayload)

	crc := CalculateCRC(data)
	data = append(data, byte(crc>>8), byte(crc&0xFF))

	stuffed := stuffBytes(data)

	out := make([]byte, 0, len(stuffed)+2)
	out = append(out, StartByte)
	out = append(out, stuffed...)
	out = append(out, EndByte)
	return out, nil
}

// stuffBytes escapes START, END and ESC as ESC + (byte XOR EscXor)
func stuffBytes(data []byte) []byte {
	result := make([]byte, 0, len(data)*2)
	for _, b := range data {
		if b == StartByte || b == EndByte || b == EscByte {
			result = append(result, EscByte, b^EscXor)
		} else {
			result = append(result, b)
		}
	}
	return result
}

// UnstuffBytes removes byte stuffing from escaped data
func UnstuffBytes(data []byte) ([]byte, error) {
	result := make([]byte, 0, len(data))
	escapeNext := false

	for _, b := range data {
		switch {
		case escapeNext:
			result = append(result, b^EscXor)
			escapeNext = false
		case b == EscByte:
			escapeNext = true
		default:
			result = append(result, b)
		}
	}

	if escapeNext {
		return nil, fmt.Errorf("incomplete escape sequence at end of data")
	}
	return result, nil
}
