// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"fmt"
	"time"
)

// Statistics counts link activity. It is a plain value so the engine can
// update it every cycle without allocating.
type Statistics struct {
	// Frames received from the transceiver, valid or not
	Frames uint64

	// Accepted packets from the bound transmitter
	Accepted        uint64
	StickPackets    uint64
	FailsafePackets uint64

	// Bind packets counted towards an election
	BindFrames uint64

	// Rejected frames
	Malformed        uint64
	WrongTransmitter uint64
	Ignored          uint64

	// Timing
	Misses     uint64
	LinkLosses uint64
	Rebinds    uint64

	// Binding and persistence
	Binds        uint64
	Saves        uint64
	SaveFailures uint64

	// Transceiver calls that returned an error
	RadioErrors uint64
}

// Rejected returns the number of frames that were discarded
func (s Statistics) Rejected() uint64 {
	return s.Malformed + s.WrongTransmitter + s.Ignored
}

// Quality returns the share of expected packets that arrived, in percent
func (s Statistics) Quality() float64 {
	expected := s.Accepted + s.Misses
	if expected == 0 {
		return 0
	}
	return float64(s.Accepted) * 100.0 / float64(expected)
}

// Format returns a multi-line summary over the given elapsed time
func (s Statistics) Format(elapsed time.Duration) string {
	var frameRate, acceptRate float64
	if secs := elapsed.Seconds(); secs > 0 {
		frameRate = float64(s.Frames) / secs
		acceptRate = float64(s.Accepted) / secs
	}

	var acceptedPercent, rejectedPercent float64
	if s.Frames > 0 {
		acceptedPercent = float64(s.Accepted) * 100.0 / float64(s.Frames)
		rejectedPercent = float64(s.Rejected()) * 100.0 / float64(s.Frames)
	}

	result := fmt.Sprintf("=== Link Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Frames:          %8d\n", s.Frames)
	result += fmt.Sprintf("Accepted:        %8d (%.1f%%)\n", s.Accepted, acceptedPercent)
	if s.FailsafePackets > 0 {
		result += fmt.Sprintf("  Failsafe Pkts:    %5d\n", s.FailsafePackets)
	}
	if s.BindFrames > 0 {
		result += fmt.Sprintf("Bind Frames:     %8d\n", s.BindFrames)
	}
	if s.Rejected() > 0 {
		result += fmt.Sprintf("Rejected:        %8d (%.1f%%)\n", s.Rejected(), rejectedPercent)
		if s.Malformed > 0 {
			result += fmt.Sprintf("  Malformed:        %5d\n", s.Malformed)
		}
		if s.WrongTransmitter > 0 {
			result += fmt.Sprintf("  Wrong Tx:         %5d\n", s.WrongTransmitter)
		}
		if s.Ignored > 0 {
			result += fmt.Sprintf("  Ignored Types:    %5d\n", s.Ignored)
		}
	}
	result += fmt.Sprintf("Missed:          %8d\n", s.Misses)
	result += fmt.Sprintf("Link Quality:    %8.1f%%\n", s.Quality())
	if s.LinkLosses > 0 {
		result += fmt.Sprintf("Link Losses:     %8d\n", s.LinkLosses)
	}
	if s.Binds > 0 || s.Rebinds > 0 {
		result += fmt.Sprintf("Binds/Rebinds:   %4d/%-4d\n", s.Binds, s.Rebinds)
	}
	if s.SaveFailures > 0 {
		result += fmt.Sprintf("Save Failures:   %8d\n", s.SaveFailures)
	}
	if s.RadioErrors > 0 {
		result += fmt.Sprintf("Radio Errors:    %8d\n", s.RadioErrors)
	}
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", frameRate)
	result += fmt.Sprintf("Accept Rate:     %8.1f pkts/sec\n", acceptRate)
	result += "=====================================\n"

	return result
}
