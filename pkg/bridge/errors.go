// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import "errors"

// Sentinel errors for framing and payload decoding.
var (
	// ErrCRCMismatch indicates a complete message whose checksum did not match.
	ErrCRCMismatch = errors.New("CRC mismatch")

	// ErrInvalidLength indicates a length byte above MaxPayloadSize.
	ErrInvalidLength = errors.New("invalid length")

	// ErrUnexpectedEnd indicates an END byte before the message was complete.
	ErrUnexpectedEnd = errors.New("unexpected END byte")

	// ErrPayloadTooLarge indicates a message that does not fit in one frame.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrMissingField indicates a payload without a required key.
	ErrMissingField = errors.New("missing payload field")

	// ErrUnexpectedType indicates a message of a different type than requested.
	ErrUnexpectedType = errors.New("unexpected message type")

	// ErrClosed indicates the bridge connection has been closed.
	ErrClosed = errors.New("bridge closed")
)
