package eventbus

import (
	"encoding/json"
	"testing"

	"github.com/playloft/playloft/internal/events"
)

func TestMarshalMessage_RoundTrip(t *testing.T) {
	data, err := marshalMessage(events.EventStationStatusChanged, events.Payload{
		"stationId": "s1",
		"status":    "playing",
	}, "node-1")
	if err != nil {
		t.Fatalf("marshalMessage() failed: %v", err)
	}

	var got message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if got.EventType != events.EventStationStatusChanged {
		t.Errorf("event type = %s, want stationStatusChanged", got.EventType)
	}
	if got.NodeID != "node-1" {
		t.Errorf("node id = %s, want node-1", got.NodeID)
	}
	if got.Payload["stationId"] != "s1" {
		t.Errorf("payload stationId = %v, want s1", got.Payload["stationId"])
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestSubjectFor(t *testing.T) {
	if got := subjectFor(events.EventSessionTimerTick); got != "playloft.events.sessionTimerTick" {
		t.Errorf("subject = %s", got)
	}
	if got := subjectFor(events.EventStationStatusChanged); got != "playloft.events.stationStatusChanged" {
		t.Errorf("subject = %s", got)
	}
}
