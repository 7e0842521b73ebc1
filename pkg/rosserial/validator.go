// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import "fmt"

// AnomalyType represents different kinds of frame anomalies. These are
// diagnostic findings for the monitoring tools; the engine itself accepts
// any checksum-valid frame and leaves interpretation to its handlers.
type AnomalyType int

const (
	AnomalyTruncatedPayload AnomalyType = iota
	AnomalyInvalidLogLevel
	AnomalyTopicOutOfRange
	AnomalyEmptyTopicName
)

// ValidationError represents a frame validation failure.
type ValidationError struct {
	Type    AnomalyType
	Message string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame inspects reserved-topic payload shapes and topic ranges.
// Returns a slice of validation errors (empty if the frame is clean).
func ValidateFrame(f *Frame) []ValidationError {
	errors := []ValidationError{}

	switch f.topicID {
	case TopicNegotiation, TopicSubscribers:
		if len(f.payload) == 0 {
			break // bare negotiation request
		}
		var info TopicInfo
		if err := info.Deserialize(f.payload); err != nil {
			errors = append(errors, ValidationError{
				Type:    AnomalyTruncatedPayload,
				Message: fmt.Sprintf("topic info does not parse: %v", err),
			})
			break
		}
		if info.TopicName == "" {
			errors = append(errors, ValidationError{
				Type:    AnomalyEmptyTopicName,
				Message: "topic info with empty topic name",
			})
		}

	case TopicIDTime:
		if len(f.payload) != 0 && len(f.payload) != 8 {
			errors = append(errors, ValidationError{
				Type:    AnomalyTruncatedPayload,
				Message: fmt.Sprintf("time payload is %d bytes (want 0 or 8)", len(f.payload)),
			})
		}

	case TopicIDLog:
		var l LogMsg
		if err := l.Deserialize(f.payload); err != nil {
			errors = append(errors, ValidationError{
				Type:    AnomalyTruncatedPayload,
				Message: fmt.Sprintf("log payload does not parse: %v", err),
			})
			break
		}
		if l.Level > LogLevelFatal {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidLogLevel,
				Message: fmt.Sprintf("unknown log level %d", l.Level),
			})
		}

	default:
		if f.topicID > TopicIDLog && f.topicID < TopicIDSubscriberBase {
			errors = append(errors, ValidationError{
				Type:    AnomalyTopicOutOfRange,
				Message: fmt.Sprintf("topic %d is in the reserved range but unassigned", f.topicID),
			})
		}
		if f.topicID >= TopicIDPublisherBase+MaxPublishers {
			errors = append(errors, ValidationError{
				Type:    AnomalyTopicOutOfRange,
				Message: fmt.Sprintf("topic %d is beyond the dynamic ID range", f.topicID),
			})
		}
	}

	return errors
}
