// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package afhds

import "errors"

// Sentinel errors returned by Decode and its wrappers.
var (
	// ErrFrameLength indicates raw bytes that are not exactly FrameSize long.
	ErrFrameLength = errors.New("invalid frame length")

	// ErrUnknownType indicates byte 0 is not a known packet type.
	ErrUnknownType = errors.New("unknown packet type")

	// ErrZeroIdentity indicates the transmitter identity is all zero.
	ErrZeroIdentity = errors.New("zero transmitter identity")

	// ErrStickRange indicates a control channel value outside StickMin..StickMax.
	ErrStickRange = errors.New("stick value out of range")

	// ErrNotBind indicates a valid packet that is not a bind packet.
	ErrNotBind = errors.New("not a bind packet")

	// ErrNotSticks indicates a valid packet that carries no channel values.
	ErrNotSticks = errors.New("not a stick packet")

	// ErrWrongTransmitter indicates a packet from a transmitter other than the bound one.
	ErrWrongTransmitter = errors.New("packet from another transmitter")
)
