// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import (
	"fmt"
	"math"
	"time"
)

// Statistics tracks frame and error counts for one link.
//
// The four error counters mirror the device-side protocol counters: state
// errors (bad sync byte), invalid sizes (declared payload over MaxPayload),
// checksum errors, and malformed messages (subscriber handler rejected the
// payload). As on the device, ChecksumErrors counts valid frames on an
// unroutable topic; a frame that fails its checksum is dropped by the
// decoder without being counted. UnknownTopicErrors counts the same
// unroutable frames separately so the distinction stays visible.
type Statistics struct {
	StartTime     time.Time
	LastFrameTime time.Time

	BytesConsumed uint64
	ValidFrames   uint64

	StateErrors            uint32
	InvalidSizeErrors      uint32
	ChecksumErrors         uint32
	MalformedMessageErrors uint32
	UnknownTopicErrors     uint32

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:     now,
		LastFrameTime: now,
	}
}

// satInc increments a saturating counter. The counters are monotonic and
// never reset during a link's lifetime.
func satInc(c *uint32) {
	if *c < math.MaxUint32 {
		*c++
	}
}

func (s *Statistics) addStateError()    { satInc(&s.StateErrors) }
func (s *Statistics) addInvalidSize()   { satInc(&s.InvalidSizeErrors) }
func (s *Statistics) addChecksumError() { satInc(&s.ChecksumErrors) }
func (s *Statistics) addMalformed()     { satInc(&s.MalformedMessageErrors) }
func (s *Statistics) addUnknownTopic()  { satInc(&s.UnknownTopicErrors) }

func (s *Statistics) addValidFrame() {
	s.ValidFrames++
	s.LastFrameTime = time.Now()
}

// ErrorCount returns the sum of the four protocol error counters.
// UnknownTopicErrors is not added, since ChecksumErrors already includes
// those frames.
func (s *Statistics) ErrorCount() uint64 {
	return uint64(s.StateErrors) + uint64(s.InvalidSizeErrors) +
		uint64(s.ChecksumErrors) + uint64(s.MalformedMessageErrors)
}

// CalculateRates calculates frame and error rates.
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.ValidFrames) / elapsed
		s.ErrorRate = float64(s.ErrorCount()) / elapsed
	}
}

// String returns a formatted statistics summary.
func (s *Statistics) String() string {
	s.CalculateRates()

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Link Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Bytes Consumed:  %8d\n", s.BytesConsumed)
	result += fmt.Sprintf("Valid Frames:    %8d\n", s.ValidFrames)

	if s.StateErrors > 0 {
		result += fmt.Sprintf("State Errors:    %8d\n", s.StateErrors)
	}
	if s.InvalidSizeErrors > 0 {
		result += fmt.Sprintf("Invalid Sizes:   %8d\n", s.InvalidSizeErrors)
	}
	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", s.ChecksumErrors)
		if s.UnknownTopicErrors > 0 {
			result += fmt.Sprintf("  Unknown Topics:   %5d\n", s.UnknownTopicErrors)
		}
	}
	if s.MalformedMessageErrors > 0 {
		result += fmt.Sprintf("Malformed Msgs:  %8d\n", s.MalformedMessageErrors)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "==================================\n"

	return result
}
