// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import "fmt"

// Node is the protocol engine for one link: it owns the receive state
// machine, the topic registry, time synchronization, and the outbound
// frame path.
//
// The node is single-threaded and cooperative. Exactly one goroutine
// drives it by calling Spin (directly or through GetParam); no internal
// goroutines or timers exist. Subscriber handlers run synchronously inside
// Spin and must not publish on the same link.
type Node struct {
	link  Link
	clock Clock

	stats    *Statistics
	decoder  *Decoder
	registry topicRegistry
	ts       timeSync

	paramReceived bool
	paramResp     ParamResponse

	// Outbound scratch buffers. Publish serializes into payloadBuf and
	// frames into frameBuf, so steady-state operation allocates nothing.
	payloadBuf [MaxPayload]byte
	frameBuf   [MaxFrameSize]byte
}

// NewNode creates a node on the given link and clock.
func NewNode(link Link, clock Clock) *Node {
	stats := NewStatistics()
	n := &Node{
		link:    link,
		clock:   clock,
		stats:   stats,
		decoder: NewDecoder(stats),
	}
	n.ts.clock = clock
	return n
}

// Spin runs one cooperative step: time-sync housekeeping, then up to
// MaxBytesPerSpin inbound bytes through the receive state machine. It
// returns the number of bytes consumed. A non-nil error (io.EOF on a
// closed link) is terminal; the driver loop should exit and the caller
// owns reconnection.
func (n *Node) Spin() (int, error) {
	if dropped := n.ts.tick(n.Publish); dropped {
		// Flush any half-parsed frame from the dead connection.
		n.decoder.Reset()
	}

	count := 0
	for ; count < MaxBytesPerSpin; count++ {
		b, ok, err := n.link.ReadByte()
		if err != nil {
			return count, err
		}
		if !ok {
			break
		}
		if frame := n.decoder.DecodeByte(b); frame != nil {
			n.dispatch(frame)
		}
	}
	return count, nil
}

// dispatch routes one validated frame by topic ID.
func (n *Node) dispatch(f *Frame) {
	switch f.topicID {
	case TopicNegotiation:
		n.ts.request(n.Publish)
		n.registry.emitAll(n.Publish)

	case TopicIDTime:
		if n.ts.complete(f.payload) {
			n.Logdebug(fmt.Sprintf("Time: %d %d", n.ts.syncTime.Sec, n.ts.syncTime.Nsec))
		}

	case TopicIDParameter:
		var resp ParamResponse
		if resp.Deserialize(f.payload) == nil {
			n.paramResp = resp
			n.paramReceived = true
		}

	default:
		if sub := n.registry.subscriberFor(f.topicID); sub != nil {
			if !sub.Handler(f.payload) {
				n.stats.addMalformed()
			}
			return
		}
		// An unroutable frame bumps the checksum counter to match the
		// device firmware's accounting; the unknown-topic counter keeps
		// the distinction observable.
		n.stats.addChecksumError()
		n.stats.addUnknownTopic()
	}
}

// Advertise registers a publisher and returns its assigned wire topic ID.
func (n *Node) Advertise(p *Publisher) (uint16, error) {
	return n.registry.advertise(p)
}

// Subscribe registers a subscriber and returns its assigned wire topic ID.
func (n *Node) Subscribe(s *Subscriber) (uint16, error) {
	return n.registry.subscribe(s)
}

// Publish serializes msg and sends it as one frame under topicID.
func (n *Node) Publish(topicID uint16, msg Message) error {
	pn, err := msg.Serialize(n.payloadBuf[:])
	if err != nil {
		return err
	}
	fn, err := EncodeFrame(n.frameBuf[:], topicID, n.payloadBuf[:pn])
	if err != nil {
		return err
	}
	_, err = n.link.Write(n.frameBuf[:fn])
	return err
}

// Log sends a log frame to the peer's logging sink.
func (n *Node) Log(level byte, msg string) error {
	return n.Publish(TopicIDLog, &LogMsg{Level: level, Msg: msg})
}

// Logdebug sends a debug-level log frame.
func (n *Node) Logdebug(msg string) error { return n.Log(LogLevelDebug, msg) }

// Loginfo sends an info-level log frame.
func (n *Node) Loginfo(msg string) error { return n.Log(LogLevelInfo, msg) }

// Logwarn sends a warn-level log frame.
func (n *Node) Logwarn(msg string) error { return n.Log(LogLevelWarn, msg) }

// Logerror sends an error-level log frame.
func (n *Node) Logerror(msg string) error { return n.Log(LogLevelError, msg) }

// Logfatal sends a fatal-level log frame.
func (n *Node) Logfatal(msg string) error { return n.Log(LogLevelFatal, msg) }

// Now returns the peer's clock extrapolated to the current instant. Only
// meaningful once a time handshake has completed.
func (n *Node) Now() TimeMsg {
	return n.ts.now()
}

// Connected reports whether a time handshake completed within the
// connection timeout.
func (n *Node) Connected() bool {
	return n.ts.connected
}

// Stats returns the link's statistics counters.
func (n *Node) Stats() *Statistics {
	return n.stats
}

// Shutdown closes the link. Later Spin calls return the terminal error the
// link then reports: io.EOF for a link that signals a clean close, or, for
// a StreamLink, the error the transport's Read returns once it is closed.
func (n *Node) Shutdown() error {
	return n.link.Close()
}
