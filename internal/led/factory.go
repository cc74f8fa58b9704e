package led

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/smazurov/pomodorox/internal/phase"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// Driver names accepted by New.
const (
	DriverAuto   = "auto"
	DriverSysfs  = "sysfs"
	DriverNoop   = "noop"
	DriverMemory = "memory"
)

// Config selects and sizes the output device.
type Config struct {
	Driver     string
	Pixels     int
	Brightness uint8
}

// New creates the phase renderer for the configured driver. "auto" picks the
// board status LED on known boards and falls back to the no-op strip.
func New(cfg Config, logger *slog.Logger) (phase.Renderer, error) {
	if cfg.Pixels <= 0 {
		cfg.Pixels = DefaultPixels
	}
	if cfg.Brightness == 0 {
		cfg.Brightness = DefaultBrightness
	}
	opts := []RendererOption{WithBrightness(cfg.Brightness)}

	switch cfg.Driver {
	case DriverMemory:
		return NewPhaseRenderer(NewMemoryStrip(cfg.Pixels), opts...), nil
	case DriverNoop:
		return NewPhaseRenderer(newNoop(cfg.Pixels, logger), opts...), nil
	case DriverSysfs, DriverAuto, "":
	default:
		return nil, fmt.Errorf("unknown LED driver %q", cfg.Driver)
	}

	boardModel := detectBoard()
	logger.Info("Detecting board for LED output", "board_model", boardModel)

	if name, ok := statusLEDFor(boardModel); ok {
		logger.Info("Using sysfs status LED", "led", name)
		return newSysfs(name), nil
	}

	if cfg.Driver == DriverSysfs {
		return nil, fmt.Errorf("no sysfs status LED known for board %q", boardModel)
	}
	logger.Info("No LED support detected, using no-op strip", "pixels", cfg.Pixels)
	return NewPhaseRenderer(newNoop(cfg.Pixels, logger), opts...), nil
}

// statusLEDFor maps a device-tree model to its user-controllable LED.
func statusLEDFor(boardModel string) (string, bool) {
	switch {
	case strings.Contains(boardModel, "NanoPC-T6"):
		return "usr_led", true
	case strings.Contains(boardModel, "Orange Pi"):
		return "green_led", true
	case strings.Contains(boardModel, "Raspberry Pi"):
		return "ACT", true
	default:
		return "", false
	}
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
