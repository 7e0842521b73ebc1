// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import "time"

// Frame represents a decoded rosserial frame: a topic ID and an opaque
// payload. Frames produced by the Decoder reference the decoder's internal
// receive buffer; the payload is valid until the next call to DecodeByte.
// Call Clone to retain a frame across decoder invocations.
type Frame struct {
	topicID   uint16
	payload   []byte
	timestamp time.Time
}

// NewFrame creates a frame with its own copy of the payload.
func NewFrame(topicID uint16, payload []byte) *Frame {
	p := make([]byte, len(payload))
	copy(p, payload)
	return &Frame{topicID: topicID, payload: p, timestamp: time.Now()}
}

// TopicID returns the frame's wire topic identifier.
func (f *Frame) TopicID() uint16 {
	return f.topicID
}

// Payload returns the frame's payload bytes.
func (f *Frame) Payload() []byte {
	return f.payload
}

// Timestamp returns the frame's decode timestamp.
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Clone returns a copy of the frame whose payload does not alias the
// decoder's receive buffer.
func (f *Frame) Clone() *Frame {
	p := make([]byte, len(f.payload))
	copy(p, f.payload)
	return &Frame{topicID: f.topicID, payload: p, timestamp: f.timestamp}
}

// IsReserved returns true for frames on a reserved system topic.
func (f *Frame) IsReserved() bool {
	return f.topicID < TopicIDSubscriberBase
}
