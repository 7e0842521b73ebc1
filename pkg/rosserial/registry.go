// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import "errors"

// ErrRegistryFull is returned when no publisher or subscriber slot is free.
var ErrRegistryFull = errors.New("topic registry full")

// Publisher describes one outbound topic. The registry owns only the
// descriptor; messages are sent through Node.Publish with the assigned ID.
type Publisher struct {
	TopicName   string
	MessageType string

	id uint16
}

// ID returns the wire topic ID assigned at Advertise time.
func (p *Publisher) ID() uint16 {
	return p.id
}

// Subscriber describes one inbound topic. Handler receives the raw payload
// of each frame routed to this subscriber and returns false if the payload
// could not be interpreted. The payload slice is only valid for the
// duration of the call. Handlers must not publish on the same link; they
// run inside Spin and the outbound path is not re-entrant.
type Subscriber struct {
	TopicName   string
	MessageType string
	Handler     func(payload []byte) bool

	id uint16
}

// ID returns the wire topic ID assigned at Subscribe time.
func (s *Subscriber) ID() uint16 {
	return s.id
}

// topicRegistry holds the publisher and subscriber slots. Slots fill
// sequentially and contiguously, so iteration stops at the first empty one.
type topicRegistry struct {
	publishers  [MaxPublishers]*Publisher
	subscribers [MaxSubscribers]*Subscriber
}

func (r *topicRegistry) advertise(p *Publisher) (uint16, error) {
	for i := range r.publishers {
		if r.publishers[i] == nil {
			r.publishers[i] = p
			p.id = uint16(i + TopicIDPublisherBase)
			return p.id, nil
		}
	}
	return 0, ErrRegistryFull
}

func (r *topicRegistry) subscribe(s *Subscriber) (uint16, error) {
	for i := range r.subscribers {
		if r.subscribers[i] == nil {
			r.subscribers[i] = s
			s.id = uint16(i + TopicIDSubscriberBase)
			return s.id, nil
		}
	}
	return 0, ErrRegistryFull
}

// subscriberFor maps a wire topic ID to its live subscriber slot, or nil.
func (r *topicRegistry) subscriberFor(topicID uint16) *Subscriber {
	if topicID < TopicIDSubscriberBase || topicID >= TopicIDSubscriberBase+MaxSubscribers {
		return nil
	}
	return r.subscribers[topicID-TopicIDSubscriberBase]
}

// emitAll publishes a TopicInfo frame for every occupied slot, publishers
// first, then subscribers.
func (r *topicRegistry) emitAll(send func(topicID uint16, msg Message) error) error {
	var info TopicInfo
	for i := 0; i < MaxPublishers && r.publishers[i] != nil; i++ {
		info.TopicID = r.publishers[i].id
		info.TopicName = r.publishers[i].TopicName
		info.MessageType = r.publishers[i].MessageType
		if err := send(TopicPublishers, &info); err != nil {
			return err
		}
	}
	for i := 0; i < MaxSubscribers && r.subscribers[i] != nil; i++ {
		info.TopicID = r.subscribers[i].id
		info.TopicName = r.subscribers[i].TopicName
		info.MessageType = r.subscribers[i].MessageType
		if err := send(TopicSubscribers, &info); err != nil {
			return err
		}
	}
	return nil
}
