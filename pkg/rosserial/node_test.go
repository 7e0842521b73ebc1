// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually-driven Clock. When step is nonzero every Millis
// call advances the clock, which lets blocking loops make time progress.
type fakeClock struct {
	ms   uint64
	step uint64
}

func (c *fakeClock) Millis() uint64 {
	m := c.ms
	c.ms += c.step
	return m
}

func (c *fakeClock) Advance(ms uint64) {
	c.ms += ms
}

// memLink is an in-memory Link: tests inject inbound bytes and inspect
// the outbound stream.
type memLink struct {
	in     []byte
	out    bytes.Buffer
	eof    bool
	closed bool
}

func (l *memLink) ReadByte() (byte, bool, error) {
	if len(l.in) > 0 {
		b := l.in[0]
		l.in = l.in[1:]
		return b, true, nil
	}
	if l.eof {
		return 0, false, io.EOF
	}
	return 0, false, nil
}

func (l *memLink) Write(p []byte) (int, error) {
	return l.out.Write(p)
}

func (l *memLink) Close() error {
	l.closed = true
	l.eof = true
	return nil
}

func (l *memLink) inject(t *testing.T, topicID uint16, payload []byte) {
	t.Helper()
	frame, err := Encode(topicID, payload)
	require.NoError(t, err)
	l.in = append(l.in, frame...)
}

// sentFrames decodes the outbound stream back into frames.
func (l *memLink) sentFrames(t *testing.T) []*Frame {
	t.Helper()
	d := NewDecoder(nil)
	frames := feedFrames(d, l.out.Bytes())
	require.Zero(t, d.Stats().StateErrors, "outbound stream must be clean")
	return frames
}

func newTestNode() (*Node, *memLink, *fakeClock) {
	link := &memLink{}
	clock := &fakeClock{ms: 1000}
	return NewNode(link, clock), link, clock
}

func spinAll(t *testing.T, n *Node) {
	t.Helper()
	for {
		count, err := n.Spin()
		require.NoError(t, err)
		if count == 0 {
			return
		}
	}
}

func TestNode_NegotiationEmitsTopicInfo(t *testing.T) {
	n, link, _ := newTestNode()

	id, err := n.Advertise(&Publisher{TopicName: "chatter", MessageType: "std_msgs/String"})
	require.NoError(t, err)
	assert.Equal(t, uint16(125), id)

	// Bare negotiation request: FF FF 00 00 00 00 FF.
	link.in = append(link.in, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00, 0xFF)
	spinAll(t, n)

	sent := link.sentFrames(t)
	require.Len(t, sent, 2)

	// The negotiation trigger also kicks a time-sync request.
	assert.Equal(t, uint16(TopicIDTime), sent[0].TopicID())
	assert.Equal(t, make([]byte, 8), sent[0].Payload())

	assert.Equal(t, uint16(TopicPublishers), sent[1].TopicID())
	var info TopicInfo
	require.NoError(t, info.Deserialize(sent[1].Payload()))
	assert.Equal(t, TopicInfo{TopicID: 125, TopicName: "chatter", MessageType: "std_msgs/String"}, info)
}

func TestNode_TimeSyncRoundTrip(t *testing.T) {
	n, link, clock := newTestNode()

	assert.False(t, n.Connected())

	link.inject(t, TopicNegotiation, nil)
	spinAll(t, n)
	require.False(t, n.Connected(), "request alone does not connect")

	// Peer replies 20 ms later; half the round trip is credited.
	clock.Advance(20)
	reply := make([]byte, 8)
	remote := TimeMsg{Sec: 1000}
	remote.Serialize(reply)
	link.inject(t, TopicIDTime, reply)
	spinAll(t, n)

	assert.True(t, n.Connected())
	assert.Equal(t, TimeMsg{Sec: 1000, Nsec: 10_000_000}, n.Now())

	// The clock keeps extrapolating between handshakes.
	clock.Advance(500)
	assert.Equal(t, TimeMsg{Sec: 1000, Nsec: 510_000_000}, n.Now())

	// A completed sync is logged to the peer.
	sent := link.sentFrames(t)
	last := sent[len(sent)-1]
	assert.Equal(t, uint16(TopicIDLog), last.TopicID())
	var log LogMsg
	require.NoError(t, log.Deserialize(last.Payload()))
	assert.Equal(t, byte(LogLevelDebug), log.Level)
	assert.Equal(t, "Time: 1000 10000000", log.Msg)
}

func TestNode_TimeSyncBadPayloadIgnored(t *testing.T) {
	n, link, clock := newTestNode()

	link.inject(t, TopicNegotiation, nil)
	spinAll(t, n)

	clock.Advance(10)
	link.inject(t, TopicIDTime, []byte{1, 2, 3}) // truncated time
	spinAll(t, n)

	assert.False(t, n.Connected())
}

func TestNode_ConnectionTimeout(t *testing.T) {
	n, link, clock := newTestNode()

	connect(t, n, link, clock)
	require.True(t, n.Connected())

	clock.Advance(ConnectionTimeoutMillis + 1)
	_, err := n.Spin()
	require.NoError(t, err)
	assert.False(t, n.Connected())

	// The next handshake restores liveness.
	connect(t, n, link, clock)
	assert.True(t, n.Connected())
}

func TestNode_PeriodicResync(t *testing.T) {
	n, link, clock := newTestNode()

	connect(t, n, link, clock)
	before := len(link.sentFrames(t))

	clock.Advance(SyncPeriodMillis + 1)
	_, err := n.Spin()
	require.NoError(t, err)

	sent := link.sentFrames(t)
	require.Len(t, sent, before+1)
	assert.Equal(t, uint16(TopicIDTime), sent[len(sent)-1].TopicID())
	assert.True(t, n.Connected(), "re-sync does not drop the connection")
}

// connect drives one full time handshake.
func connect(t *testing.T, n *Node, link *memLink, clock *fakeClock) {
	t.Helper()
	link.inject(t, TopicNegotiation, nil)
	spinAll(t, n)
	clock.Advance(2)
	reply := make([]byte, 8)
	remote := TimeMsg{Sec: 500}
	remote.Serialize(reply)
	link.inject(t, TopicIDTime, reply)
	spinAll(t, n)
	require.True(t, n.Connected())
}

func TestNode_SubscriberDelivery(t *testing.T) {
	n, link, _ := newTestNode()

	var got [][]byte
	id, err := n.Subscribe(&Subscriber{
		TopicName:   "cmd_vel",
		MessageType: "geometry_msgs/Twist",
		Handler: func(payload []byte) bool {
			p := make([]byte, len(payload))
			copy(p, payload)
			got = append(got, p)
			return true
		},
	})
	require.NoError(t, err)
	assert.Equal(t, uint16(100), id)

	link.inject(t, 100, []byte{0x01, 0x02, 0x03})
	spinAll(t, n)

	require.Len(t, got, 1)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, got[0])
	assert.Zero(t, n.Stats().ErrorCount())
}

func TestNode_PoisonedChecksumNotDispatched(t *testing.T) {
	n, link, _ := newTestNode()

	called := false
	_, err := n.Subscribe(&Subscriber{
		TopicName:   "cmd_vel",
		MessageType: "geometry_msgs/Twist",
		Handler:     func([]byte) bool { called = true; return true },
	})
	require.NoError(t, err)

	frame, err := Encode(100, []byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	frame[len(frame)-1]++
	link.in = append(link.in, frame...)
	spinAll(t, n)

	assert.False(t, called)
	assert.Zero(t, n.Stats().ChecksumErrors)
}

func TestNode_RejectedPayloadCountsMalformed(t *testing.T) {
	n, link, _ := newTestNode()

	_, err := n.Subscribe(&Subscriber{
		TopicName:   "cmd_vel",
		MessageType: "geometry_msgs/Twist",
		Handler:     func([]byte) bool { return false },
	})
	require.NoError(t, err)

	link.inject(t, 100, []byte{0xBA, 0xD0})
	spinAll(t, n)

	assert.Equal(t, uint32(1), n.Stats().MalformedMessageErrors)
}

func TestNode_UnroutableFrameCounted(t *testing.T) {
	n, link, _ := newTestNode()

	link.inject(t, 101, []byte{0x01}) // no subscriber in that slot
	link.inject(t, 4242, nil)         // far outside any range
	spinAll(t, n)

	assert.Equal(t, uint32(2), n.Stats().ChecksumErrors)
	assert.Equal(t, uint32(2), n.Stats().UnknownTopicErrors)
}

func TestNode_PublishWireBytes(t *testing.T) {
	n, link, _ := newTestNode()

	id, err := n.Advertise(&Publisher{TopicName: "chatter", MessageType: "std_msgs/String"})
	require.NoError(t, err)

	require.NoError(t, n.Publish(id, RawMessage([]byte{0xAB})))

	sent := link.sentFrames(t)
	require.Len(t, sent, 1)
	assert.Equal(t, id, sent[0].TopicID())
	assert.Equal(t, []byte{0xAB}, sent[0].Payload())
}

func TestNode_PublishTooLarge(t *testing.T) {
	n, _, _ := newTestNode()
	err := n.Publish(125, RawMessage(make([]byte, MaxPayload+1)))
	assert.Error(t, err)
}

func TestNode_GetParamTimeout(t *testing.T) {
	n, _, clock := newTestNode()
	clock.step = 1 // the blocking loop advances time itself

	resp, err := n.GetParam("missing", 50)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrParamTimeout)
	assert.LessOrEqual(t, clock.ms-1000, uint64(60), "timeout observed promptly")
}

func TestNode_GetParamResponse(t *testing.T) {
	n, link, clock := newTestNode()
	clock.step = 1

	payload := make([]byte, MaxPayload)
	pn, err := (&ParamResponse{Ints: []int32{7, 8}}).Serialize(payload)
	require.NoError(t, err)
	link.inject(t, TopicIDParameter, payload[:pn])

	resp, err := n.GetParam("wheel_radius", 1000)
	require.NoError(t, err)
	assert.Equal(t, []int32{7, 8}, resp.Ints)

	// The request went out before the response was consumed.
	sent := link.sentFrames(t)
	require.NotEmpty(t, sent)
	var req RequestParam
	require.NoError(t, req.Deserialize(sent[0].Payload()))
	assert.Equal(t, "wheel_radius", req.Name)
}

func TestNode_GetParamTypedAccessors(t *testing.T) {
	n, link, clock := newTestNode()
	clock.step = 1

	respond := func() {
		payload := make([]byte, MaxPayload)
		pn, err := (&ParamResponse{Ints: []int32{1, 2, 3}}).Serialize(payload)
		require.NoError(t, err)
		link.inject(t, TopicIDParameter, payload[:pn])
	}

	respond()
	ints, err := n.GetParamInts("gains", 3, 1000)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, ints)

	// Length mismatch fails even though the response arrived.
	respond()
	_, err = n.GetParamInts("gains", 2, 1000)
	assert.ErrorIs(t, err, ErrParamMismatch)
}

func TestNode_SpinReturnsEOF(t *testing.T) {
	n, link, _ := newTestNode()

	link.inject(t, 4242, nil)
	link.eof = true

	// Buffered bytes drain before EOF surfaces.
	count, err := n.Spin()
	assert.Equal(t, FrameOverhead, count)
	assert.ErrorIs(t, err, io.EOF)
}

func TestNode_ShutdownClosesLink(t *testing.T) {
	n, link, _ := newTestNode()
	require.NoError(t, n.Shutdown())
	assert.True(t, link.closed)

	_, err := n.Spin()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNode_SpinBoundedPerCall(t *testing.T) {
	n, link, _ := newTestNode()

	link.in = make([]byte, MaxBytesPerSpin+100)
	count, err := n.Spin()
	require.NoError(t, err)
	assert.Equal(t, MaxBytesPerSpin, count)

	count, err = n.Spin()
	require.NoError(t, err)
	assert.Equal(t, 100, count)
}
