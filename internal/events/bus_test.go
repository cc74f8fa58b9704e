package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan PhaseChangedEvent, 1)

	unsub := bus.Subscribe(func(e PhaseChangedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(PhaseChangedEvent{Phase: "rest", Previous: "work", Cycle: 1})

	select {
	case got := <-received:
		if got.Phase != "rest" || got.Previous != "work" {
			t.Errorf("got %+v, want rest after work", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_TypesAreIsolated(t *testing.T) {
	bus := New()
	phases := make(chan PhaseChangedEvent, 1)

	unsub := bus.Subscribe(func(e PhaseChangedEvent) {
		phases <- e
	})
	defer unsub()

	bus.Publish(SettingsUpdatedEvent{Source: "http"})

	select {
	case e := <-phases:
		t.Fatalf("phase subscriber received %+v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan SettingsUpdatedEvent, 1)

	unsub := bus.Subscribe(func(e SettingsUpdatedEvent) {
		received <- e
	})

	bus.Publish(SettingsUpdatedEvent{Source: "http"})
	<-received

	unsub()

	bus.Publish(SettingsUpdatedEvent{Source: "nats"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	if unsub == nil {
		t.Fatal("Subscribe returned nil unsubscribe for unknown handler")
	}
	unsub()
}

func TestSubscribeToChannel_DropsWhenFull(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)

	unsub := SubscribeToChannel[PhaseChangedEvent](bus, ch)
	defer unsub()

	bus.Publish(PhaseChangedEvent{Cycle: 1})
	bus.Publish(PhaseChangedEvent{Cycle: 2})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for first event")
	}
}
