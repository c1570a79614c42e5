// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Parhelion - 2.4GHz RC receiver link engine and bridge tooling
//
// Runs the receiver link state machine against a simulated air interface,
// a serial/WebSocket transceiver bridge, or a recorded capture.

package main

import (
	"os"

	"github.com/Thermoquad/parhelion/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
