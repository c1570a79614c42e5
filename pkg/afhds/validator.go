// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package afhds

import (
	"encoding/binary"
	"fmt"

	"github.com/Thermoquad/parhelion/pkg/hop"
)

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyUnknownType AnomalyType = iota
	AnomalyZeroIdentity
	AnomalyStickRange
	AnomalyHopList
)

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// Validate inspects a frame and reports every anomaly found.
// Returns an empty slice if the frame is valid.
//
// A bind packet without an advertised hop list is valid; one whose hop list
// is present but contains unusable channels is reported as AnomalyHopList.
func Validate(f *Frame) []ValidationError {
	errors := []ValidationError{}

	t := f.Type()
	if !knownType(t) {
		return append(errors, ValidationError{
			Type:    AnomalyUnknownType,
			Message: fmt.Sprintf("Unknown packet type 0x%02X", byte(t)),
			Details: map[string]interface{}{"type": byte(t)},
		})
	}

	if f.TxID().IsZero() {
		errors = append(errors, ValidationError{
			Type:    AnomalyZeroIdentity,
			Message: "Transmitter identity is zero",
		})
	}

	switch t {
	case PacketBind, PacketBindAlt:
		errors = append(errors, validateHopList(f)...)
	case PacketSticks, PacketFailsafe:
		errors = append(errors, validateChannels(f)...)
	}

	return errors
}

// validateChannels checks every control channel against the stick limits
func validateChannels(f *Frame) []ValidationError {
	errors := []ValidationError{}
	for i := 0; i < ControlChannels; i++ {
		off := offsetChannels + 2*i
		v := binary.LittleEndian.Uint16(f[off : off+2])
		if v < StickMin || v > StickMax {
			errors = append(errors, ValidationError{
				Type:    AnomalyStickRange,
				Message: fmt.Sprintf("Channel %d value %d out of range (valid %d-%d)", i+1, v, StickMin, StickMax),
				Details: map[string]interface{}{"channel": i + 1, "value": v, "min": StickMin, "max": StickMax},
			})
		}
	}
	return errors
}

// validateHopList checks an advertised hop list
func validateHopList(f *Frame) []ValidationError {
	var t hop.Table
	copy(t[:], f[offsetHops:offsetHops+hop.Length])

	advertised := false
	for _, ch := range t {
		if ch != 0xFF {
			advertised = true
			break
		}
	}
	if !advertised || t.Valid() {
		return nil
	}

	return []ValidationError{{
		Type:    AnomalyHopList,
		Message: fmt.Sprintf("Advertised hop list has unusable channels: %s", t),
		Details: map[string]interface{}{"hops": t.String(), "max": hop.MaxChannel},
	}}
}
