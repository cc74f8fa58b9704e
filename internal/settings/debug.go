package settings

import "github.com/smazurov/pomodorox/internal/logging"

// verboseModules follow the debug flag.
var verboseModules = []string{"phase", "led", "driver"}

// LogLevelHandler returns a debug handler that raises the verbose modules
// to debug when the flag is set and restores them to base otherwise.
func LogLevelHandler(base string) func(bool) {
	return func(debug bool) {
		level := base
		if debug {
			level = "debug"
		}
		for _, module := range verboseModules {
			logging.SetModuleLevel(module, level)
		}
	}
}
