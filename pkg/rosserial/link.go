// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import (
	"io"
	"sync"
)

// Link is the byte pipe between the node and its peer. ReadByte must not
// block: it reports ok=false when no byte is pending. A non-nil error
// (io.EOF once the transport closes) is terminal. Write may block until
// the transport accepts the bytes.
type Link interface {
	ReadByte() (b byte, ok bool, err error)
	Write(p []byte) (int, error)
	Close() error
}

// StreamLink adapts a blocking io.ReadWriteCloser (serial port, TCP
// connection, WebSocket wrapper) to the non-blocking Link contract. A pump
// goroutine reads from the transport into a buffered channel of
// StreamBuffer bytes; ReadByte drains the channel without blocking.
type StreamLink struct {
	rw io.ReadWriteCloser
	in chan byte

	mu      sync.Mutex
	pumpErr error

	closeOnce sync.Once
}

// NewStreamLink starts the pump goroutine and returns the link.
func NewStreamLink(rw io.ReadWriteCloser) *StreamLink {
	l := &StreamLink{
		rw: rw,
		in: make(chan byte, StreamBuffer),
	}
	go l.pump()
	return l
}

func (l *StreamLink) pump() {
	buf := make([]byte, 512)
	for {
		n, err := l.rw.Read(buf)
		for i := 0; i < n; i++ {
			l.in <- buf[i]
		}
		if err != nil {
			l.mu.Lock()
			l.pumpErr = err
			l.mu.Unlock()
			close(l.in)
			return
		}
	}
}

func (l *StreamLink) readErr() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pumpErr == nil {
		return io.EOF
	}
	return l.pumpErr
}

// ReadByte returns the next buffered byte. After the transport fails or
// closes, it drains remaining buffered bytes and then returns the pump's
// error (io.EOF for a clean close).
func (l *StreamLink) ReadByte() (byte, bool, error) {
	select {
	case b, open := <-l.in:
		if !open {
			return 0, false, l.readErr()
		}
		return b, true, nil
	default:
		return 0, false, nil
	}
}

// Write passes through to the transport.
func (l *StreamLink) Write(p []byte) (int, error) {
	return l.rw.Write(p)
}

// Close closes the underlying transport, which also stops the pump.
func (l *StreamLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.rw.Close()
	})
	return err
}
