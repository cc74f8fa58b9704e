// Package driver runs the phase scheduler and auxiliary periodic jobs on a
// single cooperative loop.
package driver

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/smazurov/pomodorox/internal/logging"
	"github.com/smazurov/pomodorox/internal/metrics"
)

// DefaultTickInterval paces rendering; it is well below any phase duration.
const DefaultTickInterval = 20 * time.Millisecond

// Ticker is driven by the loop. phase.Scheduler satisfies it.
type Ticker interface {
	Initialize(now time.Time)
	Tick(now time.Time)
}

// Option configures a Loop.
type Option func(*Loop)

// WithTickInterval sets the tick period.
func WithTickInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(l *Loop) { l.clock = c }
}

// WithLogger overrides the module logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// Loop owns a gocron scheduler limited to one running job at a time, so the
// phase tick and auxiliary jobs never run concurrently.
type Loop struct {
	ticker   Ticker
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger

	scheduler gocron.Scheduler

	mu      sync.Mutex
	started bool
}

// New creates a loop for ticker. Jobs may be added before Start.
func New(ticker Ticker, opts ...Option) (*Loop, error) {
	l := &Loop{
		ticker:   ticker,
		interval: DefaultTickInterval,
		clock:    clockwork.NewRealClock(),
		logger:   logging.GetLogger("driver"),
	}
	for _, opt := range opts {
		opt(l)
	}

	s, err := gocron.NewScheduler(
		gocron.WithClock(l.clock),
		gocron.WithLimitConcurrentJobs(1, gocron.LimitModeWait),
		gocron.WithLogger(l.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	l.scheduler = s

	if _, err := s.NewJob(
		gocron.DurationJob(l.interval),
		gocron.NewTask(l.tick),
		gocron.WithName("phase-tick"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create tick job: %w", err)
	}
	return l, nil
}

// Every schedules fn at interval alongside the tick.
func (l *Loop) Every(name string, interval time.Duration, fn func(now time.Time)) error {
	_, err := l.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { fn(l.clock.Now()) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", name, err)
	}
	l.logger.Debug("Scheduled job", "name", name, "interval", interval)
	return nil
}

// Start initializes the ticker and starts the jobs.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.started = true

	l.ticker.Initialize(l.clock.Now())
	l.scheduler.Start()
	l.logger.Info("Driver loop started", "tick_interval", l.interval)
}

// Stop shuts the scheduler down, waiting for a running job to finish.
func (l *Loop) Stop() error {
	l.logger.Info("Stopping driver loop")
	return l.scheduler.Shutdown()
}

func (l *Loop) tick() {
	now := l.clock.Now()
	l.ticker.Tick(now)
	metrics.ObserveTick(l.clock.Since(now))
}
