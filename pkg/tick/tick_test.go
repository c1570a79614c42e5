// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tick

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"
)

func TestCounter_ConcurrentReaders(t *testing.T) {
	var c Counter
	const increments = 10000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < increments; i++ {
			c.Increment()
		}
	}()

	last := uint32(0)
	for i := 0; i < 1000; i++ {
		now := c.Now()
		if now < last {
			t.Fatalf("counter went backwards: %d after %d", now, last)
		}
		last = now
	}
	wg.Wait()

	if c.Now() != increments {
		t.Errorf("Now() = %d, want %d", c.Now(), increments)
	}
}

func TestDrive_StopsOnCancel(t *testing.T) {
	var c Counter
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Drive(ctx, &c, time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for c.Now() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Drive did not return after cancel")
	}
	if c.Now() < 3 {
		t.Errorf("Drive produced %d ticks, want at least 3", c.Now())
	}
}

func TestManual(t *testing.T) {
	m := NewManual(10)
	m.Advance(5)
	if m.Now() != 15 {
		t.Errorf("Now() = %d, want 15", m.Now())
	}
	m.Set(math.MaxUint32)
	m.Advance(2)
	if m.Now() != 1 {
		t.Errorf("Now() after wrap = %d, want 1", m.Now())
	}
}

func TestReached(t *testing.T) {
	tests := []struct {
		name     string
		now      uint32
		deadline uint32
		want     bool
	}{
		{"before", 10, 20, false},
		{"at", 20, 20, true},
		{"after", 21, 20, true},
		{"deadline past wrap", math.MaxUint32 - 2, 3, false},
		{"now past wrap", 4, math.MaxUint32 - 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reached(tt.now, tt.deadline); got != tt.want {
				t.Errorf("Reached(%d, %d) = %v, want %v", tt.now, tt.deadline, got, tt.want)
			}
		})
	}
}

func TestSince_Wraps(t *testing.T) {
	if got := Since(2, math.MaxUint32-1); got != 4 {
		t.Errorf("Since across wrap = %d, want 4", got)
	}
}

func TestDuration(t *testing.T) {
	if got := Duration(25, time.Millisecond); got != 25*time.Millisecond {
		t.Errorf("Duration = %v", got)
	}
}
