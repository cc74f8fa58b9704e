package settings

import (
	"fmt"
	"math"
	"time"
)

// Built-in values used when nothing valid is persisted.
const (
	DefaultDebug     = true
	DefaultWorkDelay = 20 * time.Second
	DefaultRestDelay = 5 * time.Second

	// SafeDelay replaces zero or negative durations.
	SafeDelay = 500 * time.Millisecond

	// MaxDelay is the largest duration representable as uint32 milliseconds.
	MaxDelay = time.Duration(math.MaxUint32) * time.Millisecond

	// MaxBlobSize bounds the persisted document.
	MaxBlobSize = 1024
)

// Config is the device configuration. Durations are always positive once a
// Config has been through Normalize.
type Config struct {
	Debug     bool
	WorkDelay time.Duration
	RestDelay time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Debug:     DefaultDebug,
		WorkDelay: DefaultWorkDelay,
		RestDelay: DefaultRestDelay,
	}
}

// Normalize coerces non-positive durations to SafeDelay and truncates
// durations to whole milliseconds.
func (c Config) Normalize() Config {
	c.WorkDelay = normalizeDelay(c.WorkDelay)
	c.RestDelay = normalizeDelay(c.RestDelay)
	return c
}

// String renders the config for logs.
func (c Config) String() string {
	return fmt.Sprintf("debug=%t work_delay=%dms rest_delay=%dms", c.Debug, c.WorkDelay.Milliseconds(), c.RestDelay.Milliseconds())
}

// DelayFromMillis converts a millisecond count to a delay. The sign is
// checked before scaling so large negative counts cannot wrap around.
func DelayFromMillis(ms int64) time.Duration {
	if ms <= 0 {
		return SafeDelay
	}
	if ms > MaxDelay.Milliseconds() {
		return MaxDelay
	}
	return time.Duration(ms) * time.Millisecond
}

func normalizeDelay(d time.Duration) time.Duration {
	d = d.Truncate(time.Millisecond)
	if d <= 0 {
		return SafeDelay
	}
	if d > MaxDelay {
		return MaxDelay
	}
	return d
}
