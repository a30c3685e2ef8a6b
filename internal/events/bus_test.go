package events

import (
	"sync"
	"testing"
)

func TestBus_PublishDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	first := bus.Subscribe(EventStationStatusChanged)
	second := bus.Subscribe(EventStationStatusChanged)
	other := bus.Subscribe(EventSessionTimerTick)

	bus.Publish(EventStationStatusChanged, Payload{"stationId": "s1", "status": "playing"})

	for i, sub := range []Subscriber{first, second} {
		select {
		case payload := <-sub:
			if payload["stationId"] != "s1" {
				t.Errorf("subscriber %d stationId = %v, want s1", i, payload["stationId"])
			}
		default:
			t.Errorf("subscriber %d received nothing", i)
		}
	}

	select {
	case payload := <-other:
		t.Fatalf("timer tick subscriber got station event: %v", payload)
	default:
	}
}

func TestBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventSessionTimerTick)

	// Overfill: the extra publishes beyond the buffer must not block.
	for i := 0; i < subscriberBuffer+5; i++ {
		bus.Publish(EventSessionTimerTick, Payload{"n": i})
	}

	received := 0
	for {
		select {
		case <-sub:
			received++
			continue
		default:
		}
		break
	}
	if received != subscriberBuffer {
		t.Errorf("received %d events, want %d buffered", received, subscriberBuffer)
	}
}

func TestBus_PublishDuringUnsubscribeDoesNotPanic(t *testing.T) {
	bus := NewBus()

	// Publishers hammer the bus while subscribers churn; a send racing a
	// close would panic and kill the process, failing the test.
	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					bus.Publish(EventSessionTimerTick, Payload{"n": 1})
				}
			}
		}()
	}

	for i := 0; i < 10_000; i++ {
		sub := bus.Subscribe(EventSessionTimerTick)
		bus.Unsubscribe(EventSessionTimerTick, sub)
	}

	close(done)
	wg.Wait()
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventStationStatusChanged)
	bus.Unsubscribe(EventStationStatusChanged, sub)

	if _, ok := <-sub; ok {
		t.Fatal("unsubscribed channel not closed")
	}

	// Publishing after unsubscribe reaches no one and must not panic.
	bus.Publish(EventStationStatusChanged, Payload{"stationId": "s1"})
}
