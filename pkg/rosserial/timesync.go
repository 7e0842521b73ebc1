// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

// timeSync drives the periodic round-trip clock handshake and the
// connection liveness model derived from it.
//
// A request publishes an empty TimeMsg under TopicIDTime; the peer replies
// with its current time on the same topic. Half the measured round trip is
// added to the remote time to estimate the remote clock at the instant the
// reply arrived. The link counts as connected from the first completed
// handshake until ConnectionTimeoutMillis pass without another one.
type timeSync struct {
	clock Clock

	// startMillis is nonzero while a request is in flight.
	startMillis uint64
	endMillis   uint64
	syncTime    TimeMsg
	connected   bool
}

// request starts a handshake unless one is already in flight.
func (t *timeSync) request(send func(topicID uint16, msg Message) error) {
	if t.startMillis > 0 {
		// A time sync request is already in flight.
		return
	}
	t.startMillis = t.clock.Millis()
	// The empty message is the wire contract: any frame under TopicIDTime
	// makes the peer reply with its current time.
	var empty TimeMsg
	send(TopicIDTime, &empty)
}

// complete finishes a handshake from the peer's reply payload. Returns
// true when the reply parsed and the synced clock was updated.
func (t *timeSync) complete(payload []byte) bool {
	var remote TimeMsg
	if err := remote.Deserialize(payload); err != nil {
		return false
	}
	t.endMillis = t.clock.Millis()
	offset := (t.endMillis - t.startMillis) / 2
	t.syncTime = remote.AddMillis(offset)
	t.startMillis = 0
	t.connected = true
	return true
}

// now extrapolates the synced remote clock to the current instant.
func (t *timeSync) now() TimeMsg {
	return t.syncTime.AddMillis(t.clock.Millis() - t.endMillis)
}

// tick enforces the liveness timeout and the periodic re-sync. It returns
// true when the connection was dropped, so the caller can flush the
// receive state machine.
func (t *timeSync) tick(send func(topicID uint16, msg Message) error) (dropped bool) {
	if !t.connected {
		return false
	}
	now := t.clock.Millis()
	if now-t.endMillis > ConnectionTimeoutMillis {
		t.connected = false
		t.startMillis = 0
		return true
	}
	if now-t.endMillis > SyncPeriodMillis {
		t.request(send)
	}
	return false
}
