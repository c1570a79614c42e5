// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package mixing turns received control channels into output commands and
// applies the failsafe policy when the link is unhealthy.
package mixing

import (
	"sync"

	"github.com/Thermoquad/parhelion/pkg/afhds"
)

// Failsafe passes sticks through while the link is healthy. When the link
// is lost it holds the transmitter's failsafe values if any were received,
// otherwise the neutral position with the throttle low.
//
// Updates come from the link loop; readers may be on other goroutines.
type Failsafe struct {
	mu sync.Mutex

	outputs      afhds.Sticks
	failsafe     bool
	txFailsafe   afhds.Sticks
	haveTxValues bool
	updates      uint64
}

// NewFailsafe creates a mixer that starts in failsafe
func NewFailsafe() *Failsafe {
	return &Failsafe{
		outputs:  afhds.NeutralSticks(),
		failsafe: true,
	}
}

// Update applies the latest sticks and link health
func (m *Failsafe) Update(sticks afhds.Sticks, healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updates++
	m.failsafe = !healthy
	if healthy {
		m.outputs = sticks
		return
	}
	if m.haveTxValues {
		m.outputs = m.txFailsafe
		return
	}
	m.outputs = afhds.NeutralSticks()
}

// SetFailsafe stores failsafe values provided by the transmitter
func (m *Failsafe) SetFailsafe(values afhds.Sticks) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txFailsafe = values
	m.haveTxValues = true
	if m.failsafe {
		m.outputs = values
	}
}

// Outputs returns the current output commands
func (m *Failsafe) Outputs() afhds.Sticks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outputs
}

// InFailsafe reports whether the outputs are failsafe values
func (m *Failsafe) InFailsafe() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failsafe
}

// Updates returns the number of Update calls
func (m *Failsafe) Updates() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}
