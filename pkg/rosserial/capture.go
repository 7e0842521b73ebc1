// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Capture direction markers.
const (
	CaptureRx = 0 // frame received from the peer
	CaptureTx = 1 // frame sent to the peer
)

// CaptureRecord is one frame in a capture file: a CBOR stream of records,
// each carrying the millisecond offset from the start of the capture, the
// direction, and the frame contents.
type CaptureRecord struct {
	OffsetMillis uint64 `cbor:"1,keyasint"`
	Direction    uint8  `cbor:"2,keyasint"`
	TopicID      uint16 `cbor:"3,keyasint"`
	Payload      []byte `cbor:"4,keyasint"`
}

// CaptureWriter appends frame records to a capture stream.
type CaptureWriter struct {
	enc *cbor.Encoder
}

// NewCaptureWriter creates a capture writer on w.
func NewCaptureWriter(w io.Writer) *CaptureWriter {
	return &CaptureWriter{enc: cbor.NewEncoder(w)}
}

// Record appends one frame to the capture.
func (c *CaptureWriter) Record(offsetMillis uint64, direction uint8, f *Frame) error {
	rec := CaptureRecord{
		OffsetMillis: offsetMillis,
		Direction:    direction,
		TopicID:      f.topicID,
		Payload:      f.payload,
	}
	if err := c.enc.Encode(rec); err != nil {
		return fmt.Errorf("capture write failed: %w", err)
	}
	return nil
}

// CaptureReader iterates the records of a capture stream.
type CaptureReader struct {
	dec *cbor.Decoder
}

// NewCaptureReader creates a capture reader on r.
func NewCaptureReader(r io.Reader) *CaptureReader {
	return &CaptureReader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream.
func (c *CaptureReader) Next() (*CaptureRecord, error) {
	var rec CaptureRecord
	if err := c.dec.Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Frame converts a record back into a frame.
func (r *CaptureRecord) Frame() *Frame {
	return NewFrame(r.TopicID, r.Payload)
}
