// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package tick provides the monotonic tick counter that paces the receiver.
//
// On the device the counter is advanced by a timer interrupt and read by the
// main loop. Counter keeps that split on the host: Drive plays the interrupt
// from its own goroutine and readers only ever load the value atomically.
package tick

import (
	"context"
	"sync/atomic"
	"time"
)

// Source reports the current tick count
type Source interface {
	Now() uint32
}

// Counter is a tick count shared between one incrementing context and any
// number of readers
type Counter struct {
	n atomic.Uint32
}

// Increment advances the counter by one tick
func (c *Counter) Increment() {
	c.n.Add(1)
}

// Now returns the current tick count
func (c *Counter) Now() uint32 {
	return c.n.Load()
}

// Drive increments c once per period until ctx is cancelled.
// It blocks, so callers run it in its own goroutine.
func Drive(ctx context.Context, c *Counter, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Increment()
		}
	}
}

// Manual is a clock advanced explicitly by its owner. It is not safe for
// concurrent use.
type Manual struct {
	now uint32
}

// NewManual creates a manual clock starting at start
func NewManual(start uint32) *Manual {
	return &Manual{now: start}
}

// Now returns the current tick count
func (m *Manual) Now() uint32 {
	return m.now
}

// Advance moves the clock forward by n ticks
func (m *Manual) Advance(n uint32) {
	m.now += n
}

// Set moves the clock to t
func (m *Manual) Set(t uint32) {
	m.now = t
}

// Since returns the number of ticks from then to now, across wraparound
func Since(now, then uint32) uint32 {
	return now - then
}

// Reached reports whether now is at or past deadline. Deadlines less than
// half the counter range ahead of now are treated as in the future.
func Reached(now, deadline uint32) bool {
	return int32(now-deadline) >= 0
}

// Duration converts a tick count to wall time for the given period
func Duration(ticks uint32, period time.Duration) time.Duration {
	return time.Duration(ticks) * period
}
