// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import "time"

// Message is one decoded bridge message
type Message struct {
	msgType   uint8
	payload   map[int]interface{}
	raw       []byte // CBOR bytes as received, nil for locally built messages
	crc       uint16
	timestamp time.Time
}

// NewMessage creates a message from a type and payload map
func NewMessage(msgType uint8, payload map[int]interface{}) *Message {
	return &Message{
		msgType:   msgType,
		payload:   payload,
		timestamp: time.Now(),
	}
}

// Type returns the message type
func (m *Message) Type() uint8 {
	return m.msgType
}

// Payload returns the decoded payload map (nil for empty payloads)
func (m *Message) Payload() map[int]interface{} {
	return m.payload
}

// Raw returns the received CBOR bytes
func (m *Message) Raw() []byte {
	return m.raw
}

// CRC returns the received checksum
func (m *Message) CRC() uint16 {
	return m.crc
}

// Timestamp returns when the message was decoded or built
func (m *Message) Timestamp() time.Time {
	return m.timestamp
}
