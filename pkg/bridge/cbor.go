// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ParseCBORMessage parses a bridge CBOR message: [msg_type, payload_map]
// Returns the message type and decoded payload map (nil for empty payloads)
func ParseCBORMessage(data []byte) (msgType uint8, payload map[int]interface{}, err error) {
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("empty CBOR payload")
	}

	var msg []interface{}
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return 0, nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}

	if len(msg) != 2 {
		return 0, nil, fmt.Errorf("expected 2-element array, got %d elements", len(msg))
	}

	switch v := msg[0].(type) {
	case uint64:
		if v > 255 {
			return 0, nil, fmt.Errorf("message type out of range: %d", v)
		}
		msgType = uint8(v)
	default:
		return 0, nil, fmt.Errorf("expected uint for message type, got %T", msg[0])
	}

	if msg[1] == nil {
		return msgType, nil, nil
	}

	switch v := msg[1].(type) {
	case map[interface{}]interface{}:
		payload = make(map[int]interface{}, len(v))
		for key, val := range v {
			switch k := key.(type) {
			case uint64:
				payload[int(k)] = val
			case int64:
				payload[int(k)] = val
			default:
				return 0, nil, fmt.Errorf("expected integer map key, got %T", key)
			}
		}
	default:
		return 0, nil, fmt.Errorf("expected map or nil for payload, got %T", msg[1])
	}

	return msgType, payload, nil
}

// encodeCBORMessage creates the CBOR encoding of [msgType, payloadMap]
func encodeCBORMessage(msgType uint8, payloadMap map[int]interface{}) ([]byte, error) {
	var msg interface{}
	if len(payloadMap) == 0 {
		msg = []interface{}{uint64(msgType), nil}
	} else {
		msg = []interface{}{uint64(msgType), payloadMap}
	}
	return cbor.Marshal(msg)
}

// GetMapUint extracts a uint64 from a CBOR map by key
func GetMapUint(m map[int]interface{}, key int) (uint64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch val := v.(type) {
	case uint64:
		return val, true
	case int64:
		if val >= 0 {
			return uint64(val), true
		}
	}
	return 0, false
}

// GetMapBytes extracts a []byte from a CBOR map by key
func GetMapBytes(m map[int]interface{}, key int) ([]byte, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	val, ok := v.([]byte)
	return val, ok
}
