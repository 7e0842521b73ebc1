// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import (
	"fmt"
	"strings"
)

// FormatFrame formats a frame into a human-readable string.
func FormatFrame(f *Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")
	topic := FormatTopicID(f.topicID)

	result := fmt.Sprintf("[%s] %s (id=%d) len=%d\n", timestamp, topic, f.topicID, len(f.payload))
	result += FormatPayload(f.topicID, f.payload)
	return result
}

// FormatTopicID returns the human-readable name for a wire topic ID.
func FormatTopicID(topicID uint16) string {
	switch {
	case topicID == TopicNegotiation:
		return "NEGOTIATION"
	case topicID == TopicSubscribers:
		return "SUBSCRIBER_INFO"
	case topicID == TopicIDTime:
		return "TIME"
	case topicID == TopicIDParameter:
		return "PARAMETER"
	case topicID == TopicIDLog:
		return "LOG"
	case topicID >= TopicIDSubscriberBase && topicID < TopicIDPublisherBase:
		return "SUBSCRIBER_DATA"
	case topicID >= TopicIDPublisherBase && topicID < TopicIDPublisherBase+MaxPublishers:
		return "PUBLISHER_DATA"
	default:
		return "UNKNOWN"
	}
}

// FormatLogLevel returns the human-readable name for a log level.
func FormatLogLevel(level byte) string {
	switch level {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// FormatPayload decodes reserved-topic payloads and hex-dumps the rest.
func FormatPayload(topicID uint16, payload []byte) string {
	switch topicID {
	case TopicNegotiation, TopicSubscribers:
		if len(payload) == 0 {
			return "  (negotiation request)\n"
		}
		var info TopicInfo
		if err := info.Deserialize(payload); err != nil {
			return fmt.Sprintf("  (unparseable topic info: %v)\n", err)
		}
		return fmt.Sprintf("  Topic: %s [%s] id=%d\n", info.TopicName, info.MessageType, info.TopicID)

	case TopicIDTime:
		var t TimeMsg
		if err := t.Deserialize(payload); err != nil {
			return "  (time request)\n"
		}
		return fmt.Sprintf("  Time: %d.%09d\n", t.Sec, t.Nsec)

	case TopicIDLog:
		var l LogMsg
		if err := l.Deserialize(payload); err != nil {
			return fmt.Sprintf("  (unparseable log: %v)\n", err)
		}
		return fmt.Sprintf("  [%s] %s\n", FormatLogLevel(l.Level), l.Msg)

	case TopicIDParameter:
		var resp ParamResponse
		if err := resp.Deserialize(payload); err != nil {
			var req RequestParam
			if err := req.Deserialize(payload); err == nil {
				return fmt.Sprintf("  Request: %q\n", req.Name)
			}
			return fmt.Sprintf("  (unparseable parameter payload: %v)\n", err)
		}
		return fmt.Sprintf("  Ints: %v, Floats: %v, Strings: %v\n", resp.Ints, resp.Floats, resp.Strings)

	default:
		if len(payload) == 0 {
			return "  (no payload)\n"
		}
		return "  " + formatHex(payload) + "\n"
	}
}

// formatHex renders payload bytes as space-separated hex, 16 per line.
func formatHex(payload []byte) string {
	var b strings.Builder
	for i, p := range payload {
		if i > 0 {
			if i%16 == 0 {
				b.WriteString("\n  ")
			} else {
				b.WriteByte(' ')
			}
		}
		fmt.Fprintf(&b, "%02X", p)
	}
	return b.String()
}
