// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import (
	"errors"
	"testing"

	"github.com/Thermoquad/parhelion/pkg/hop"
)

func TestCheckChannel(t *testing.T) {
	if err := CheckChannel(hop.DefaultBindChannel); err != nil {
		t.Errorf("CheckChannel(bind channel): %v", err)
	}
	if err := CheckChannel(hop.MaxChannel); err != nil {
		t.Errorf("CheckChannel(max): %v", err)
	}
	if err := CheckChannel(hop.MaxChannel + 1); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("CheckChannel(max+1) = %v, want ErrInvalidChannel", err)
	}
}

func TestChipState_String(t *testing.T) {
	tests := []struct {
		state ChipState
		want  string
	}{
		{ChipIdle, "IDLE"},
		{ChipReceiving, "RECEIVING"},
		{ChipPacketReady, "PACKET_READY"},
		{ChipFault, "FAULT"},
		{ChipState(9), "UNKNOWN(9)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("ChipState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
