package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. Delivery is asynchronous; a slow
// subscriber never blocks the publisher.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers of its concrete type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case PhaseChangedEvent:
		event.Publish(b.dispatcher, e)
	case SettingsUpdatedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a typed handler and returns its unsubscribe function.
// Handlers of an unknown type get a no-op unsubscribe.
//
//	unsub := bus.Subscribe(func(e PhaseChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(PhaseChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SettingsUpdatedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
