package led

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/smazurov/pomodorox/internal/phase"
)

const sysfsLEDPath = "/sys/class/leds"

// Trigger names understood by the Linux LED class.
const (
	triggerNone      = "none"
	triggerDefaultOn = "default-on"
	triggerHeartbeat = "heartbeat"
)

// sysfs renders phases on a single board status LED through the Linux LED
// class: solid during work, heartbeat during rest. It is the fallback for
// boards without an addressable strip.
type sysfs struct {
	root string
	name string
}

func newSysfs(name string) *sysfs {
	return &sysfs{root: sysfsLEDPath, name: name}
}

// Enter switches the LED trigger for the new phase.
func (s *sysfs) Enter(p phase.Phase) error {
	ledPath := filepath.Join(s.root, s.name)
	if _, err := os.Stat(ledPath); os.IsNotExist(err) {
		return fmt.Errorf("LED %q not found at %s", s.name, ledPath)
	}

	triggerPath := filepath.Join(ledPath, "trigger")
	switch p {
	case phase.Work:
		if err := os.WriteFile(triggerPath, []byte(triggerNone), 0o644); err != nil {
			return fmt.Errorf("failed to set LED trigger: %w", err)
		}
		if err := os.WriteFile(filepath.Join(ledPath, "brightness"), []byte("1"), 0o644); err != nil {
			return fmt.Errorf("failed to set LED brightness: %w", err)
		}
	default:
		if err := os.WriteFile(triggerPath, []byte(triggerHeartbeat), 0o644); err != nil {
			return fmt.Errorf("failed to set LED trigger: %w", err)
		}
	}
	return nil
}

// Render is a no-op; the kernel trigger animates the LED on its own.
func (s *sysfs) Render(_ phase.Phase, _ float64) error {
	return nil
}
