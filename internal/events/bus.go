/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package events provides the in-process pubsub used for live dashboard
// updates. Delivery is best-effort: slow subscribers drop messages rather
// than block lifecycle operations or the broadcast loop.
package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventStationStatusChanged EventType = "stationStatusChanged"
	EventSessionTimerTick     EventType = "sessionTimerTick"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Publisher is the publish capability injected into services that emit
// events. The in-process Bus and the external bridges all satisfy it.
type Publisher interface {
	Publish(eventType EventType, payload Payload)
}

const subscriberBuffer = 16

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Subscribers with full buffers are
// skipped; a once-per-second progress display can tolerate a lost tick.
// The sends happen under the read lock: they cannot block, and holding it
// keeps them mutually exclusive with the close in Unsubscribe, so a
// subscriber leaving mid-publish cannot panic the publisher.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
