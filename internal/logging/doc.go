// Package logging provides structured logging with per-module log levels.
//
// Loggers are created per module and cached:
//
//	logger := logging.GetLogger("phase")
//	logger.Info("Phase changed", "phase", "rest")
//
// Each module owns a [slog.LevelVar], so levels can be raised or lowered at
// runtime with [SetModuleLevel]. The settings controller uses this to follow
// the device debug flag without restarting the process.
//
// Output goes to stdout (text or json) and, when journald is reachable, to the
// systemd journal under the "pomodorox" identifier:
//
//	journalctl -t pomodorox -f
//	journalctl -t pomodorox MODULE=phase
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	phase = "debug"
package logging
