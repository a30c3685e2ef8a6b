/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus bridges the in-process event bus to external pub/sub
// systems so dashboards and other services can follow station activity
// without connecting to this process. Delivery stays best-effort; local
// in-process subscribers are always served even when the external system
// is down.
package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/playloft/playloft/internal/events"
)

// message is the JSON envelope published to external subjects/channels.
type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
}

func marshalMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
	})
}

// subjectFor maps an event type to its external subject/channel name.
func subjectFor(eventType events.EventType) string {
	return fmt.Sprintf("playloft.events.%s", eventType)
}
