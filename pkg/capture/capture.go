// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records received radio frames to CBOR sequence files and
// plays them back as a transceiver.
//
// A capture file is a plain concatenation of CBOR-encoded Records with no
// header, so a partially written file stays readable up to the last
// complete record.
package capture

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/parhelion/pkg/afhds"
)

// Record is one received frame
type Record struct {
	// Tick is the tick count at reception.
	Tick uint32 `cbor:"0,keyasint"`

	// Channel is the channel the frame was received on.
	Channel uint8 `cbor:"1,keyasint"`

	// Frame is the raw frame, normally afhds.FrameSize bytes.
	Frame []byte `cbor:"2,keyasint"`
}

// NewRecord creates a record from a received frame
func NewRecord(tick uint32, ch uint8, f afhds.Frame) Record {
	return Record{Tick: tick, Channel: ch, Frame: append([]byte(nil), f[:]...)}
}

// AirFrame returns the record's frame as an afhds.Frame
func (r Record) AirFrame() (afhds.Frame, error) {
	return afhds.FrameFromBytes(r.Frame)
}

// Writer appends records to a capture stream
type Writer struct {
	enc   *cbor.Encoder
	count int
}

// NewWriter creates a writer on w
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: cbor.NewEncoder(w)}
}

// Write encodes one record
func (w *Writer) Write(r Record) error {
	if err := w.enc.Encode(r); err != nil {
		return fmt.Errorf("write capture record: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of records written
func (w *Writer) Count() int {
	return w.count
}

// Reader reads records from a capture stream
type Reader struct {
	dec   *cbor.Decoder
	count int
}

// NewReader creates a reader on r
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream. A
// record cut short by the end of the stream reports ErrTruncated.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, fmt.Errorf("%w after %d records", ErrTruncated, r.count)
		}
		return Record{}, fmt.Errorf("read capture record %d: %w", r.count, err)
	}
	r.count++
	return rec, nil
}

// ReadAll reads every record from r. Records must be in tick order.
func ReadAll(r io.Reader) ([]Record, error) {
	reader := NewReader(r)
	var records []Record
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		if n := len(records); n > 0 && int32(rec.Tick-records[n-1].Tick) < 0 {
			return records, fmt.Errorf("%w: record %d at tick %d", ErrOutOfOrder, n, rec.Tick)
		}
		records = append(records, rec)
	}
}
