// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import (
	"errors"
	"fmt"
)

// ErrPayloadTooLarge is returned when an outbound payload exceeds MaxPayload.
var ErrPayloadTooLarge = errors.New("payload exceeds maximum frame payload")

// Checksum computes the additive frame checksum over the four header bytes
// (topic and size, little-endian) and the payload. The checksum byte is
// chosen so that the covered bytes plus the checksum sum to 255 mod 256.
// The two sync bytes are not covered.
func Checksum(topicID uint16, payload []byte) byte {
	sum := uint32(topicID&0xFF) + uint32(topicID>>8)
	size := uint16(len(payload))
	sum += uint32(size&0xFF) + uint32(size>>8)
	for _, b := range payload {
		sum += uint32(b)
	}
	return byte(255 - (sum % 256))
}

// EncodeFrame writes a complete wire frame for topicID/payload into dst and
// returns the number of bytes written. dst must hold at least
// len(payload)+FrameOverhead bytes.
func EncodeFrame(dst []byte, topicID uint16, payload []byte) (int, error) {
	if len(payload) > MaxPayload {
		return 0, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayload)
	}
	if len(dst) < len(payload)+FrameOverhead {
		return 0, fmt.Errorf("encode buffer too small: %d bytes for %d-byte frame",
			len(dst), len(payload)+FrameOverhead)
	}

	size := uint16(len(payload))
	dst[0] = SyncByte
	dst[1] = SyncByte
	dst[2] = byte(topicID & 0xFF)
	dst[3] = byte(topicID >> 8)
	dst[4] = byte(size & 0xFF)
	dst[5] = byte(size >> 8)
	copy(dst[6:], payload)
	dst[6+len(payload)] = Checksum(topicID, payload)

	return len(payload) + FrameOverhead, nil
}

// Encode allocates and returns a complete wire frame for topicID/payload.
func Encode(topicID uint16, payload []byte) ([]byte, error) {
	buf := make([]byte, len(payload)+FrameOverhead)
	n, err := EncodeFrame(buf, topicID, payload)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// EncodeMessage serializes msg into scratch and frames it under topicID.
// scratch must hold at least MaxPayload bytes.
func EncodeMessage(dst, scratch []byte, topicID uint16, msg Message) (int, error) {
	n, err := msg.Serialize(scratch)
	if err != nil {
		return 0, err
	}
	return EncodeFrame(dst, topicID, scratch[:n])
}
