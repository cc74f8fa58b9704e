package nats

import (
	"log/slog"
	"sync"

	"github.com/smazurov/pomodorox/internal/events"
)

// Publisher is the subset of Client the bridge needs.
type Publisher interface {
	PublishPhase(m PhaseMessage)
	PublishSettings(m SettingsMessage)
}

// Bridge forwards event bus traffic to NATS.
type Bridge struct {
	bus       *events.Bus
	publisher Publisher
	logger    *slog.Logger
	mu        sync.Mutex
	unsubs    []func()
}

// NewBridge creates a bus-to-NATS bridge.
func NewBridge(bus *events.Bus, publisher Publisher, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		bus:       bus,
		publisher: publisher,
		logger:    logger.With("component", "nats-bridge"),
	}
}

// Start subscribes to the bus.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.unsubs = append(b.unsubs,
		b.bus.Subscribe(b.handlePhase),
		b.bus.Subscribe(b.handleSettings),
	)
	b.logger.Debug("NATS bridge started")
}

func (b *Bridge) handlePhase(e events.PhaseChangedEvent) {
	b.publisher.PublishPhase(PhaseMessage{
		Timestamp:  e.Timestamp,
		Phase:      e.Phase,
		Previous:   e.Previous,
		DurationMs: e.DurationMs,
		Cycle:      e.Cycle,
	})
}

func (b *Bridge) handleSettings(e events.SettingsUpdatedEvent) {
	b.publisher.PublishSettings(SettingsMessage{
		Timestamp:   e.Timestamp,
		Debug:       e.Debug,
		WorkDelayMs: e.WorkDelayMs,
		RestDelayMs: e.RestDelayMs,
		Source:      e.Source,
		Persisted:   e.Persisted,
	})
}

// Stop unsubscribes from the bus.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
	b.logger.Debug("NATS bridge stopped")
}
