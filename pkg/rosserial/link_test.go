// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeRW is a minimal in-process io.ReadWriteCloser for StreamLink tests.
type pipeRW struct {
	r *io.PipeReader

	written chan []byte
}

func newPipeRW() (*pipeRW, *io.PipeWriter) {
	r, feed := io.Pipe()
	return &pipeRW{r: r, written: make(chan []byte, 16)}, feed
}

func (p *pipeRW) Read(b []byte) (int, error) {
	return p.r.Read(b)
}

func (p *pipeRW) Write(b []byte) (int, error) {
	out := make([]byte, len(b))
	copy(out, b)
	p.written <- out
	return len(b), nil
}

func (p *pipeRW) Close() error {
	return p.r.Close()
}

// waitByte polls ReadByte until a byte arrives or the deadline passes.
func waitByte(t *testing.T, l *StreamLink) byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b, ok, err := l.ReadByte()
		require.NoError(t, err)
		if ok {
			return b
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no byte arrived")
	return 0
}

func TestStreamLink_PumpsBytes(t *testing.T) {
	rw, feed := newPipeRW()
	l := NewStreamLink(rw)
	defer l.Close()

	go feed.Write([]byte{0x01, 0x02})

	assert.Equal(t, byte(0x01), waitByte(t, l))
	assert.Equal(t, byte(0x02), waitByte(t, l))

	// Nothing pending: non-blocking miss.
	_, ok, err := l.ReadByte()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStreamLink_EOFAfterDrain(t *testing.T) {
	rw, feed := newPipeRW()
	l := NewStreamLink(rw)

	go func() {
		feed.Write([]byte{0x42})
		feed.Close()
	}()

	assert.Equal(t, byte(0x42), waitByte(t, l))

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, ok, err := l.ReadByte()
		require.False(t, ok)
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
		require.True(t, time.Now().Before(deadline), "EOF never surfaced")
		time.Sleep(time.Millisecond)
	}
}

func TestStreamLink_WritePassesThrough(t *testing.T) {
	rw, _ := newPipeRW()
	l := NewStreamLink(rw)
	defer l.Close()

	n, err := l.Write([]byte{0xFF, 0xFF, 0x00})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0xFF, 0xFF, 0x00}, <-rw.written)
}
