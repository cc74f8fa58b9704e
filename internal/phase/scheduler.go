package phase

import (
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/pomodorox/internal/logging"
)

// fallbackDuration replaces a non-positive duration read at phase entry.
const fallbackDuration = 500 * time.Millisecond

// Durations supplies the configured phase lengths. It is read only when a
// phase is entered.
type Durations interface {
	WorkDelay() time.Duration
	RestDelay() time.Duration
}

// Renderer draws the visual effect of a phase. Both calls must return
// promptly; they run inside the driver loop.
type Renderer interface {
	// Enter renders the entry transition of a phase.
	Enter(p Phase) error
	// Render advances the phase effect to the given elapsed fraction in [0,1].
	Render(p Phase, fraction float64) error
}

// Observer is notified after every phase transition.
type Observer interface {
	PhaseChanged(previous, current State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(previous, current State)

// PhaseChanged calls f.
func (f ObserverFunc) PhaseChanged(previous, current State) { f(previous, current) }

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver registers a transition observer.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observers = append(s.observers, o)
	}
}

// WithLogger overrides the module logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// Scheduler is the Work/Rest state machine. Tick is driven by a single
// caller (the driver loop); Current may be called from any goroutine.
type Scheduler struct {
	durations Durations
	renderer  Renderer
	observers []Observer
	logger    *slog.Logger

	mu           sync.RWMutex
	state        State
	initialized  bool
	entryPending bool
	renderFailed bool
}

// New creates a scheduler. Call Initialize before the first Tick.
func New(durations Durations, renderer Renderer, opts ...Option) *Scheduler {
	s := &Scheduler{
		durations: durations,
		renderer:  renderer,
		logger:    logging.GetLogger("phase"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize enters Work at now. Rendering is deferred to the first Tick.
func (s *Scheduler) Initialize(now time.Time) {
	s.mu.Lock()
	s.state = State{
		Phase:     Work,
		EnteredAt: now,
		Duration:  s.durationFor(Work),
	}
	s.initialized = true
	s.entryPending = true
	state := s.state
	s.mu.Unlock()

	s.logger.Info("Phase scheduler initialized",
		"phase", state.Phase.String(),
		"duration", state.Duration)
}

// Tick renders the active phase and flips to the next one once its duration
// has elapsed. At most one transition happens per call. Tick never blocks
// and never fails; renderer errors are logged and otherwise ignored.
func (s *Scheduler) Tick(now time.Time) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return
	}
	state := s.state
	enter := s.entryPending
	s.entryPending = false
	s.mu.Unlock()

	if enter {
		s.render("enter", s.renderer.Enter(state.Phase), state)
	}
	s.render("progress", s.renderer.Render(state.Phase, state.Fraction(now)), state)

	if !state.Expired(now) {
		return
	}

	next := state.Phase.Next()
	entered := State{
		Phase:     next,
		EnteredAt: now,
		Duration:  s.durationFor(next),
		Cycle:     state.Cycle + 1,
	}

	s.mu.Lock()
	s.state = entered
	s.entryPending = true
	s.mu.Unlock()

	s.logger.Info("Phase changed",
		"from", state.Phase.String(),
		"to", next.String(),
		"duration", entered.Duration,
		"cycle", entered.Cycle)

	for _, o := range s.observers {
		o.PhaseChanged(state, entered)
	}
}

// Current returns a snapshot of the active phase.
func (s *Scheduler) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// durationFor reads the configured duration for p.
func (s *Scheduler) durationFor(p Phase) time.Duration {
	var d time.Duration
	if p == Work {
		d = s.durations.WorkDelay()
	} else {
		d = s.durations.RestDelay()
	}
	if d <= 0 {
		s.logger.Warn("Non-positive phase duration, using fallback",
			"phase", p.String(), "duration", d, "fallback", fallbackDuration)
		return fallbackDuration
	}
	return d
}

// render logs the first failure of a streak at warn and the rest at debug.
func (s *Scheduler) render(step string, err error, state State) {
	s.mu.Lock()
	wasFailing := s.renderFailed
	s.renderFailed = err != nil
	s.mu.Unlock()

	switch {
	case err == nil && wasFailing:
		s.logger.Info("Renderer recovered", "phase", state.Phase.String())
	case err != nil && !wasFailing:
		s.logger.Warn("Render failed", "step", step, "phase", state.Phase.String(), "error", err)
	case err != nil:
		s.logger.Debug("Render still failing", "step", step, "phase", state.Phase.String(), "error", err)
	}
}
