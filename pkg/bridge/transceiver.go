// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/radio"
)

// QueueDepth is the number of received frames held for the link engine.
// When the queue is full the oldest frame is dropped and counted as an overrun.
const QueueDepth = 4

// Transceiver drives a radio bridge over a byte stream and implements
// radio.Transceiver.
//
// A reader goroutine decodes incoming messages and queues RADIO_FRAME
// payloads that arrived on the currently selected channel. HasPacket and
// TakePacket only look at that queue, so they never block.
type Transceiver struct {
	conn io.ReadWriteCloser

	writeMu sync.Mutex

	mu        sync.Mutex
	channel   uint8
	tuned     bool
	queue     [QueueDepth]afhds.Frame
	head      int
	count     int
	frames    uint32
	overruns  uint32
	remote    radio.Status
	faults    uint32
	decodeErr uint32
	readErr   error

	pings    chan uint64
	statuses chan radio.Status
	done     chan struct{}
}

// NewTransceiver starts reading from conn. Close stops the reader and
// closes conn.
func NewTransceiver(conn io.ReadWriteCloser) *Transceiver {
	t := &Transceiver{
		conn:     conn,
		pings:    make(chan uint64, 1),
		statuses: make(chan radio.Status, 1),
		done:     make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *Transceiver) readLoop() {
	defer close(t.done)

	decoder := NewDecoder()
	buf := make([]byte, 256)
	for {
		n, err := t.conn.Read(buf)
		for i := 0; i < n; i++ {
			msg, decodeErr := decoder.DecodeByte(buf[i])
			if decodeErr != nil {
				t.mu.Lock()
				t.decodeErr++
				t.mu.Unlock()
				continue
			}
			if msg != nil {
				t.handle(msg)
			}
		}
		if err != nil {
			t.mu.Lock()
			t.readErr = err
			t.mu.Unlock()
			return
		}
	}
}

func (t *Transceiver) handle(msg *Message) {
	switch msg.Type() {
	case MsgRadioFrame:
		f, ch, err := ParseRadioFrame(msg)
		t.mu.Lock()
		defer t.mu.Unlock()
		if err != nil {
			t.decodeErr++
			return
		}
		// Frames from before the last retune are stale
		if !t.tuned || ch != t.channel {
			return
		}
		t.push(f)

	case MsgStatusData:
		st, err := ParseStatusData(msg)
		if err != nil {
			return
		}
		t.mu.Lock()
		t.remote = st
		t.mu.Unlock()
		replaceLatest(t.statuses, st)

	case MsgPingResponse:
		uptime, err := ParsePingResponse(msg)
		if err != nil {
			return
		}
		replaceLatest(t.pings, uptime)

	case MsgErrorInvalidCmd, MsgErrorRadioFault:
		t.mu.Lock()
		t.faults++
		t.mu.Unlock()
	}
}

// push appends f to the queue, dropping the oldest frame when full.
// Caller holds mu.
func (t *Transceiver) push(f afhds.Frame) {
	t.frames++
	if t.count == QueueDepth {
		t.head = (t.head + 1) % QueueDepth
		t.count--
		t.overruns++
	}
	t.queue[(t.head+t.count)%QueueDepth] = f
	t.count++
}

// replaceLatest delivers v on a one-slot channel, replacing an unread value
func replaceLatest[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

func (t *Transceiver) send(m *Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.conn.Write(data); err != nil {
		return fmt.Errorf("bridge write: %w", err)
	}
	return nil
}

// SelectChannel discards queued frames and asks the bridge to tune to ch
func (t *Transceiver) SelectChannel(ch uint8) error {
	if err := radio.CheckChannel(ch); err != nil {
		return err
	}

	t.mu.Lock()
	t.channel = ch
	t.tuned = true
	t.head = 0
	t.count = 0
	t.mu.Unlock()

	return t.send(NewSelectChannel(ch))
}

// StartReceive asks the bridge to re-arm reception on the current channel
func (t *Transceiver) StartReceive() error {
	return t.send(NewStartReceive())
}

// HasPacket reports whether a frame is queued
func (t *Transceiver) HasPacket() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count > 0
}

// TakePacket removes and returns the oldest queued frame
func (t *Transceiver) TakePacket() (afhds.Frame, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.count == 0 {
		return afhds.Frame{}, false
	}
	f := t.queue[t.head]
	t.head = (t.head + 1) % QueueDepth
	t.count--
	return f, true
}

// Status reports the host-side view of the bridge. Overruns include frames
// the bridge itself reported dropping in its last STATUS_DATA.
func (t *Transceiver) Status() radio.Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := radio.Status{
		Chip:     radio.ChipIdle,
		Channel:  t.channel,
		Frames:   t.frames,
		Overruns: t.overruns + t.remote.Overruns,
	}
	switch {
	case t.readErr != nil || t.remote.Chip == radio.ChipFault:
		st.Chip = radio.ChipFault
	case t.count > 0:
		st.Chip = radio.ChipPacketReady
	case t.tuned:
		st.Chip = radio.ChipReceiving
	}
	return st
}

// Ping sends PING_REQUEST and waits for the bridge's uptime in milliseconds
func (t *Transceiver) Ping(ctx context.Context) (uint64, error) {
	select {
	case <-t.pings:
	default:
	}
	if err := t.send(NewPingRequest()); err != nil {
		return 0, err
	}

	select {
	case uptime := <-t.pings:
		return uptime, nil
	case <-t.done:
		return 0, t.closedErr()
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// RequestStatus sends STATUS_REQUEST and waits for the bridge's report
func (t *Transceiver) RequestStatus(ctx context.Context) (radio.Status, error) {
	select {
	case <-t.statuses:
	default:
	}
	if err := t.send(NewStatusRequest()); err != nil {
		return radio.Status{}, err
	}

	select {
	case st := <-t.statuses:
		return st, nil
	case <-t.done:
		return radio.Status{}, t.closedErr()
	case <-ctx.Done():
		return radio.Status{}, ctx.Err()
	}
}

// Faults returns the number of error messages received from the bridge
func (t *Transceiver) Faults() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.faults
}

// DecodeErrors returns the number of corrupt messages received
func (t *Transceiver) DecodeErrors() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.decodeErr
}

// Err returns the error that stopped the reader, or nil while it runs
func (t *Transceiver) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readErr
}

func (t *Transceiver) closedErr() error {
	if err := t.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return ErrClosed
}

// Done is closed when the reader stops
func (t *Transceiver) Done() <-chan struct{} {
	return t.done
}

// Close closes the connection and waits for the reader to stop
func (t *Transceiver) Close() error {
	err := t.conn.Close()
	<-t.done
	return err
}
