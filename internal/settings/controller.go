package settings

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/pomodorox/internal/events"
	"github.com/smazurov/pomodorox/internal/logging"
)

// Update sources, reported in events and metrics.
const (
	SourceBoot = "boot"
	SourceHTTP = "http"
	SourceAPI  = "api"
	SourceNATS = "nats"
	SourceFile = "file"
	SourceCLI  = "cli"
)

// Publisher receives settings events.
type Publisher interface {
	Publish(ev events.Event)
}

// Recorder receives controller outcomes for metrics.
type Recorder interface {
	SettingsApplied(source string, persisted bool)
	SettingsRejected(source string)
	ConfigLoadFailed(reason string)
}

// Result describes an applied update.
type Result struct {
	Config    Config
	Persisted bool
	// PersistErr is a *PersistenceWriteError when Persisted is false.
	PersistErr error
}

// Option configures a Controller.
type Option func(*Controller)

// WithPublisher publishes a SettingsUpdatedEvent after every applied change.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithRecorder reports outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithDebugHandler is called with the debug flag whenever it is installed.
func WithDebugHandler(fn func(debug bool)) Option {
	return func(c *Controller) { c.onDebug = fn }
}

// WithLogger overrides the module logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// Controller owns the live configuration. Reads are safe from any
// goroutine; updates are serialized so the persisted blob always matches
// the last installed config.
type Controller struct {
	store     Store
	publisher Publisher
	recorder  Recorder
	onDebug   func(bool)
	logger    *slog.Logger

	mu      sync.RWMutex
	current Config

	// writeMu orders swap+persist pairs.
	writeMu sync.Mutex
}

// NewController creates a controller holding the defaults until LoadOnBoot.
func NewController(store Store, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		logger:  logging.GetLogger("settings"),
		current: Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadOnBoot reads the persisted blob and installs it. Any failure is
// logged and the defaults are installed instead; it never fails.
func (c *Controller) LoadOnBoot(ctx context.Context) Config {
	cfg, err := c.load(ctx)
	if err != nil {
		var loadErr *ConfigLoadError
		if errors.As(err, &loadErr) {
			if errors.Is(err, ErrNotFound) {
				c.logger.Info("No saved configuration, using defaults")
			} else {
				c.logger.Warn("Failed to load configuration, using defaults", "reason", loadErr.Reason, "error", loadErr.Err)
			}
			if c.recorder != nil {
				c.recorder.ConfigLoadFailed(loadErr.Reason)
			}
		}
		cfg = Default()
	}

	c.writeMu.Lock()
	c.install(cfg)
	c.writeMu.Unlock()

	c.logger.Info("Configuration loaded",
		"debug", cfg.Debug,
		"work_delay_ms", cfg.WorkDelay.Milliseconds(),
		"rest_delay_ms", cfg.RestDelay.Milliseconds())
	c.notify(cfg, SourceBoot, true)
	return cfg
}

// ApplyUpdate validates req, installs it and persists it. Validation
// failures leave everything untouched. A persistence failure is logged and
// reported in Result; the new config stays live regardless.
func (c *Controller) ApplyUpdate(ctx context.Context, req UpdateRequest, source string) (Result, error) {
	cfg, err := req.Parse()
	if err != nil {
		c.logger.Warn("Rejected settings update", "source", source, "error", err)
		if c.recorder != nil {
			c.recorder.SettingsRejected(source)
		}
		return Result{}, err
	}
	return c.Apply(ctx, cfg, source), nil
}

// Apply installs an already typed config and persists it.
func (c *Controller) Apply(ctx context.Context, cfg Config, source string) Result {
	cfg = cfg.Normalize()

	c.writeMu.Lock()
	c.install(cfg)
	result := Result{Config: cfg, Persisted: true}
	if err := c.persist(ctx, cfg); err != nil {
		result.Persisted = false
		result.PersistErr = err
	}
	c.writeMu.Unlock()

	if result.Persisted {
		c.logger.Info("Settings saved", "source", source, "config", cfg.String())
	} else {
		c.logger.Error("Settings applied but not persisted", "source", source, "config", cfg.String(), "error", result.PersistErr)
	}
	if c.recorder != nil {
		c.recorder.SettingsApplied(source, result.Persisted)
	}
	c.notify(cfg, source, result.Persisted)
	return result
}

// Reload re-reads the store and adopts its content. Unlike LoadOnBoot a
// bad blob is reported and the live config is kept.
func (c *Controller) Reload(ctx context.Context, source string) (Config, bool, error) {
	return c.adoptFrom(source, func() (Config, error) { return c.load(ctx) })
}

// Adopt installs cfg without writing it back, for configs that came from
// storage. It reports false when cfg equals the live config.
func (c *Controller) Adopt(cfg Config, source string) bool {
	_, changed, _ := c.adoptFrom(source, func() (Config, error) { return cfg, nil })
	return changed
}

// adoptFrom reads and installs under writeMu, so a read can never observe
// storage older than the last Apply.
func (c *Controller) adoptFrom(source string, read func() (Config, error)) (Config, bool, error) {
	c.writeMu.Lock()
	cfg, err := read()
	if err != nil {
		c.writeMu.Unlock()
		return c.Current(), false, err
	}
	cfg = cfg.Normalize()
	if c.Current() == cfg {
		c.writeMu.Unlock()
		return cfg, false, nil
	}
	c.install(cfg)
	c.writeMu.Unlock()

	c.logger.Info("Settings reloaded", "source", source, "config", cfg.String())
	if c.recorder != nil {
		c.recorder.SettingsApplied(source, true)
	}
	c.notify(cfg, source, true)
	return cfg, true, nil
}

// Current returns the live configuration.
func (c *Controller) Current() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// WorkDelay returns the live Work duration.
func (c *Controller) WorkDelay() time.Duration {
	return c.Current().WorkDelay
}

// RestDelay returns the live Rest duration.
func (c *Controller) RestDelay() time.Duration {
	return c.Current().RestDelay
}

// Debug returns the live debug flag.
func (c *Controller) Debug() bool {
	return c.Current().Debug
}

func (c *Controller) load(ctx context.Context) (Config, error) {
	data, err := c.store.Read(ctx)
	if err != nil {
		return Config{}, &ConfigLoadError{Reason: loadReason(err), Err: err}
	}
	cfg, err := Decode(data)
	if err != nil {
		return Config{}, &ConfigLoadError{Reason: loadReason(err), Err: err}
	}
	return cfg, nil
}

func (c *Controller) install(cfg Config) {
	c.mu.Lock()
	c.current = cfg
	c.mu.Unlock()

	if c.onDebug != nil {
		c.onDebug(cfg.Debug)
	}
}

func (c *Controller) persist(ctx context.Context, cfg Config) error {
	data, err := Encode(cfg)
	if err != nil {
		return &PersistenceWriteError{Err: err}
	}
	if err := c.store.Write(ctx, data); err != nil {
		return &PersistenceWriteError{Err: err}
	}
	return nil
}

func (c *Controller) notify(cfg Config, source string, persisted bool) {
	if c.publisher == nil {
		return
	}
	c.publisher.Publish(events.SettingsUpdatedEvent{
		Debug:       cfg.Debug,
		WorkDelayMs: cfg.WorkDelay.Milliseconds(),
		RestDelayMs: cfg.RestDelay.Milliseconds(),
		Source:      source,
		Persisted:   persisted,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}
