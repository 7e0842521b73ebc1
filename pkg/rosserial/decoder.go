// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import "time"

// Decoder implements the rosserial receive state machine.
//
// The decoder is fed one byte at a time and yields a complete frame when
// the trailing checksum validates. Parse failures never surface as errors:
// sync and size failures increment the link statistics, a checksum failure
// drops the frame without counting it, and the decoder resynchronizes on
// the next 0xFF 0xFF pair. This keeps the link making forward progress on a
// noisy stream.
type Decoder struct {
	state     int
	topic     uint16
	remaining uint16
	dataIndex int
	checksum  uint32
	buffer    [MaxPayload]byte
	frame     Frame
	stats     *Statistics
}

// NewDecoder creates a decoder reporting into stats.
func NewDecoder(stats *Statistics) *Decoder {
	if stats == nil {
		stats = NewStatistics()
	}
	return &Decoder{state: stateFirstFF, stats: stats}
}

// Stats returns the statistics tracker shared with this decoder.
func (d *Decoder) Stats() *Statistics {
	return d.stats
}

// Reset returns the decoder to the initial sync-hunting state. Any
// half-parsed frame is discarded.
func (d *Decoder) Reset() {
	d.state = stateFirstFF
	d.topic = 0
	d.remaining = 0
	d.dataIndex = 0
	d.checksum = 0
}

// DecodeByte processes a single byte through the state machine. It returns
// a completed frame, or nil if no frame completed on this byte. The
// returned frame's payload aliases the decoder's receive buffer and is
// valid until the next call; use Frame.Clone to retain it.
func (d *Decoder) DecodeByte(b byte) *Frame {
	d.stats.BytesConsumed++

	switch d.state {
	case stateFirstFF:
		if b == SyncByte {
			d.state = stateSecondFF
		} else {
			d.stats.addStateError()
			d.Reset()
		}

	case stateSecondFF:
		if b == SyncByte {
			d.state = stateTopicLow
		} else {
			d.stats.addStateError()
			d.Reset()
		}

	case stateTopicLow:
		// First byte covered by the checksum.
		d.checksum = uint32(b)
		d.topic = uint16(b)
		d.state = stateTopicHigh

	case stateTopicHigh:
		d.checksum += uint32(b)
		d.topic |= uint16(b) << 8
		d.state = stateSizeLow

	case stateSizeLow:
		d.checksum += uint32(b)
		d.remaining = uint16(b)
		d.state = stateSizeHigh

	case stateSizeHigh:
		d.checksum += uint32(b)
		d.remaining |= uint16(b) << 8
		if d.remaining == 0 {
			d.state = stateChecksum
		} else if d.remaining <= MaxPayload {
			d.state = stateMessage
		} else {
			// Protect against buffer overflow.
			d.stats.addInvalidSize()
			d.Reset()
		}

	case stateMessage:
		d.checksum += uint32(b)
		d.buffer[d.dataIndex] = b
		d.dataIndex++
		d.remaining--
		if d.remaining == 0 {
			d.state = stateChecksum
		}

	case stateChecksum:
		valid := (d.checksum+uint32(b))%256 == 255
		if valid {
			d.stats.addValidFrame()
			d.frame = Frame{
				topicID:   d.topic,
				payload:   d.buffer[:d.dataIndex],
				timestamp: time.Now(),
			}
			d.Reset()
			return &d.frame
		}
		// Corrupt frame: dropped silently; no counter is incremented.
		d.Reset()

	default:
		d.Reset()
	}

	return nil
}
