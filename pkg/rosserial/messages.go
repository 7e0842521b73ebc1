// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Message is any payload the node can serialize into a frame. User message
// types implement this; the engine treats the resulting bytes as opaque.
type Message interface {
	// Serialize writes the wire form into buf and returns the byte count.
	Serialize(buf []byte) (int, error)
}

// ErrTruncated is returned when a payload is too short for its declared
// contents.
var ErrTruncated = errors.New("message truncated")

// RawMessage is a pre-serialized payload.
type RawMessage []byte

func (m RawMessage) Serialize(buf []byte) (int, error) {
	if len(buf) < len(m) {
		return 0, ErrTruncated
	}
	return copy(buf, m), nil
}

// Strings are serialized as a little-endian uint32 length followed by the
// raw bytes, per the rosserial message serialization rules.

func writeString(buf []byte, s string) (int, error) {
	if len(buf) < 4+len(s) {
		return 0, ErrTruncated
	}
	binary.LittleEndian.PutUint32(buf, uint32(len(s)))
	copy(buf[4:], s)
	return 4 + len(s), nil
}

func readString(data []byte) (string, int, error) {
	if len(data) < 4 {
		return "", 0, ErrTruncated
	}
	n := binary.LittleEndian.Uint32(data)
	if uint32(len(data)-4) < n {
		return "", 0, fmt.Errorf("%w: declared string length %d, %d bytes left", ErrTruncated, n, len(data)-4)
	}
	return string(data[4 : 4+n]), 4 + int(n), nil
}

// TopicInfo declares one publisher or subscriber during topic negotiation.
type TopicInfo struct {
	TopicID     uint16
	TopicName   string
	MessageType string
}

func (m *TopicInfo) Serialize(buf []byte) (int, error) {
	if len(buf) < 2 {
		return 0, ErrTruncated
	}
	binary.LittleEndian.PutUint16(buf, m.TopicID)
	off := 2
	n, err := writeString(buf[off:], m.TopicName)
	if err != nil {
		return 0, err
	}
	off += n
	n, err = writeString(buf[off:], m.MessageType)
	if err != nil {
		return 0, err
	}
	return off + n, nil
}

func (m *TopicInfo) Deserialize(data []byte) error {
	if len(data) < 2 {
		return ErrTruncated
	}
	m.TopicID = binary.LittleEndian.Uint16(data)
	off := 2
	name, n, err := readString(data[off:])
	if err != nil {
		return err
	}
	m.TopicName = name
	off += n
	typ, _, err := readString(data[off:])
	if err != nil {
		return err
	}
	m.MessageType = typ
	return nil
}

// TimeMsg carries the remote clock as seconds and nanoseconds since the
// ROS epoch. The zero value doubles as the empty time-sync request.
type TimeMsg struct {
	Sec  uint32
	Nsec uint32
}

func (m *TimeMsg) Serialize(buf []byte) (int, error) {
	if len(buf) < 8 {
		return 0, ErrTruncated
	}
	binary.LittleEndian.PutUint32(buf, m.Sec)
	binary.LittleEndian.PutUint32(buf[4:], m.Nsec)
	return 8, nil
}

func (m *TimeMsg) Deserialize(data []byte) error {
	if len(data) < 8 {
		return ErrTruncated
	}
	m.Sec = binary.LittleEndian.Uint32(data)
	m.Nsec = binary.LittleEndian.Uint32(data[4:])
	return nil
}

// AddMillis returns the time advanced by ms milliseconds, normalized.
func (m TimeMsg) AddMillis(ms uint64) TimeMsg {
	nsec := uint64(m.Nsec) + (ms%1000)*1_000_000
	sec := uint64(m.Sec) + ms/1000 + nsec/1_000_000_000
	return TimeMsg{Sec: uint32(sec), Nsec: uint32(nsec % 1_000_000_000)}
}

// LogMsg is a log record forwarded to the peer's logging sink.
type LogMsg struct {
	Level byte
	Msg   string
}

func (m *LogMsg) Serialize(buf []byte) (int, error) {
	if len(buf) < 1 {
		return 0, ErrTruncated
	}
	buf[0] = m.Level
	n, err := writeString(buf[1:], m.Msg)
	if err != nil {
		return 0, err
	}
	return 1 + n, nil
}

func (m *LogMsg) Deserialize(data []byte) error {
	if len(data) < 1 {
		return ErrTruncated
	}
	m.Level = data[0]
	msg, _, err := readString(data[1:])
	if err != nil {
		return err
	}
	m.Msg = msg
	return nil
}

// RequestParam asks the peer to look up a named parameter.
type RequestParam struct {
	Name string
}

func (m *RequestParam) Serialize(buf []byte) (int, error) {
	return writeString(buf, m.Name)
}

func (m *RequestParam) Deserialize(data []byte) error {
	name, _, err := readString(data)
	if err != nil {
		return err
	}
	m.Name = name
	return nil
}

// ParamResponse is the peer's answer to a RequestParam. A parameter value
// is an array of ints, floats, or strings; unused arrays are empty.
type ParamResponse struct {
	Ints    []int32
	Floats  []float32
	Strings []string
}

func (m *ParamResponse) Serialize(buf []byte) (int, error) {
	off := 0
	if len(buf) < 4+4*len(m.Ints) {
		return 0, ErrTruncated
	}
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(m.Ints)))
	off += 4
	for _, v := range m.Ints {
		binary.LittleEndian.PutUint32(buf[off:], uint32(v))
		off += 4
	}
	if len(buf[off:]) < 4+4*len(m.Floats) {
		return 0, ErrTruncated
	}
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(m.Floats)))
	off += 4
	for _, v := range m.Floats {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	if len(buf[off:]) < 4 {
		return 0, ErrTruncated
	}
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(m.Strings)))
	off += 4
	for _, s := range m.Strings {
		n, err := writeString(buf[off:], s)
		if err != nil {
			return 0, err
		}
		off += n
	}
	return off, nil
}

func (m *ParamResponse) Deserialize(data []byte) error {
	off := 0
	readCount := func() (int, error) {
		if len(data[off:]) < 4 {
			return 0, ErrTruncated
		}
		n := binary.LittleEndian.Uint32(data[off:])
		off += 4
		return int(n), nil
	}

	count, err := readCount()
	if err != nil {
		return err
	}
	if len(data[off:]) < 4*count {
		return fmt.Errorf("%w: %d ints declared", ErrTruncated, count)
	}
	m.Ints = make([]int32, count)
	for i := range m.Ints {
		m.Ints[i] = int32(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}

	count, err = readCount()
	if err != nil {
		return err
	}
	if len(data[off:]) < 4*count {
		return fmt.Errorf("%w: %d floats declared", ErrTruncated, count)
	}
	m.Floats = make([]float32, count)
	for i := range m.Floats {
		m.Floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		off += 4
	}

	count, err = readCount()
	if err != nil {
		return err
	}
	m.Strings = make([]string, count)
	for i := range m.Strings {
		s, n, err := readString(data[off:])
		if err != nil {
			return err
		}
		m.Strings[i] = s
		off += n
	}
	return nil
}
