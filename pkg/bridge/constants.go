// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package bridge implements the serial protocol spoken between the host and a
// transceiver bridge: a small microcontroller that owns the 2.4GHz radio chip
// and forwards received frames over UART, USB CDC or a WebSocket relay.
//
// Messages are framed as
//
//	START | stuffed(LENGTH | CBOR[type, payload] | CRC16) | END
//
// where CRC16 is CRC-16-CCITT over LENGTH and the CBOR bytes, sent
// big-endian. The payload is a CBOR map with small integer keys.
package bridge

// Protocol framing bytes
const (
	StartByte = 0x7E
	EndByte   = 0x7F
	EscByte   = 0x7D
	EscXor    = 0x20
)

// Message size limits
const (
	MaxMessageSize = 120 // 1 length + 117 payload + 2 CRC
	MaxPayloadSize = 117
)

// CRC-16-CCITT configuration
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// Message types - Radio Commands (Host → Bridge) 0x10-0x1F
const (
	MsgSelectChannel = 0x10
	MsgStartReceive  = 0x11
	MsgStatusRequest = 0x12
)

// Message types - Service Commands (Host → Bridge) 0x20-0x2F
const (
	MsgPingRequest = 0x2F
)

// Message types - Radio Data (Bridge → Host) 0x30-0x3F
const (
	MsgRadioFrame   = 0x30
	MsgStatusData   = 0x31
	MsgPingResponse = 0x3F
)

// Message types - Errors (Bidirectional) 0xE0-0xEF
const (
	MsgErrorInvalidCmd = 0xE0
	MsgErrorRadioFault = 0xE1
)

// Decoder states (internal)
const (
	stateIdle = iota
	stateLength
	statePayload
	stateCRC1
	stateCRC2
	stateComplete // CRC read, waiting for END
)
