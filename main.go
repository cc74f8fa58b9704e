package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/pomodorox/cmd"
	"github.com/smazurov/pomodorox/internal/api"
	"github.com/smazurov/pomodorox/internal/config"
	"github.com/smazurov/pomodorox/internal/driver"
	"github.com/smazurov/pomodorox/internal/events"
	"github.com/smazurov/pomodorox/internal/led"
	"github.com/smazurov/pomodorox/internal/logging"
	"github.com/smazurov/pomodorox/internal/metrics"
	"github.com/smazurov/pomodorox/internal/nats"
	"github.com/smazurov/pomodorox/internal/phase"
	"github.com/smazurov/pomodorox/internal/settings"
	"github.com/smazurov/pomodorox/internal/settings/store"
	"github.com/smazurov/pomodorox/internal/systemd"
	"github.com/smazurov/pomodorox/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"pomodorox.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8080" toml:"server.port" env:"SERVER_PORT"`

	// Settings persistence
	SettingsStore string `help:"Settings backend (file, sqlite)" default:"file" toml:"settings.store" env:"SETTINGS_STORE"`
	SettingsPath  string `help:"Settings location (default depends on backend)" default:"" toml:"settings.path" env:"SETTINGS_PATH"`
	SettingsWatch bool   `help:"Re-apply external edits of the settings file" default:"true" toml:"settings.watch" env:"SETTINGS_WATCH"`

	// LED settings
	LEDDriver     string `help:"LED driver (auto, sysfs, memory, noop)" default:"auto" toml:"led.driver" env:"LED_DRIVER"`
	LEDPixels     int    `help:"Number of pixels on the strip" default:"12" toml:"led.pixels" env:"LED_PIXELS"`
	LEDBrightness int    `help:"Strip brightness (1-255)" default:"64" toml:"led.brightness" env:"LED_BRIGHTNESS"`

	// Driver loop settings
	DriverTickMs int `help:"Driver loop tick interval in milliseconds" default:"20" toml:"driver.tick_ms" env:"DRIVER_TICK_MS"`

	// NATS settings
	NATSURL          string `help:"NATS server URL (empty disables NATS)" default:"" toml:"nats.url" env:"NATS_URL"`
	NATSDevice       string `help:"Device name used in NATS subjects" default:"pomodorox" toml:"nats.device" env:"NATS_DEVICE"`
	NATSEmbedded     bool   `help:"Run an embedded NATS server" default:"false" toml:"nats.embedded" env:"NATS_EMBEDDED"`
	NATSEmbeddedPort int    `help:"Embedded NATS server port" default:"4222" toml:"nats.embedded_port" env:"NATS_EMBEDDED_PORT"`
	NATSHeartbeatSec int    `help:"Heartbeat interval in seconds" default:"10" toml:"nats.heartbeat_sec" env:"NATS_HEARTBEAT_SEC"`

	// API settings
	APISettingsWritesPerMin int `help:"Max settings updates per minute over HTTP (0 = unlimited)" default:"30" toml:"api.settings_writes_per_min" env:"API_SETTINGS_WRITES_PER_MIN"`

	// Auth settings
	AuthUsername string `help:"Basic auth username for /api" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password for /api" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingPhase    string `help:"Phase scheduler logging level" default:"info" toml:"logging.phase" env:"LOGGING_PHASE"`
	LoggingSettings string `help:"Settings logging level" default:"info" toml:"logging.settings" env:"LOGGING_SETTINGS"`
	LoggingLED      string `help:"LED logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`
	LoggingDriver   string `help:"Driver loop logging level" default:"info" toml:"logging.driver" env:"LOGGING_DRIVER"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP     string `help:"HTTP access logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingNATS     string `help:"NATS logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
}

func main() {
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"phase":    opts.LoggingPhase,
				"settings": opts.LoggingSettings,
				"led":      opts.LoggingLED,
				"driver":   opts.LoggingDriver,
				"api":      opts.LoggingAPI,
				"http":     opts.LoggingHTTP,
				"nats":     opts.LoggingNATS,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")
		notifier := systemd.NewNotifier(logger)
		ctx := context.Background()

		// Settings store and controller
		settingsStore, err := store.Open(ctx, opts.SettingsStore, opts.SettingsPath)
		if err != nil {
			logger.Error("Failed to open settings store", "backend", opts.SettingsStore, "error", err)
			os.Exit(1)
		}

		eventBus := events.New()
		controller := settings.NewController(settingsStore,
			settings.WithPublisher(eventBus),
			settings.WithRecorder(metrics.Recorder{}),
			settings.WithDebugHandler(settings.LogLevelHandler(opts.LoggingLevel)),
		)
		bootConfig := controller.LoadOnBoot(ctx)
		logBanner(logger, bootConfig)

		// Renderer and phase scheduler
		renderer, err := led.New(led.Config{
			Driver:     opts.LEDDriver,
			Pixels:     opts.LEDPixels,
			Brightness: clampBrightness(opts.LEDBrightness),
		}, logging.GetLogger("led"))
		if err != nil {
			logger.Warn("Failed to initialize LED driver, rendering disabled", "driver", opts.LEDDriver, "error", err)
			renderer, _ = led.New(led.Config{Driver: led.DriverNoop}, logging.GetLogger("led"))
		}

		scheduler := phase.New(controller, renderer,
			phase.WithObserver(metrics.Recorder{}),
			phase.WithObserver(phasePublisher(eventBus)),
		)

		loop, err := driver.New(scheduler, driver.WithTickInterval(time.Duration(opts.DriverTickMs)*time.Millisecond))
		if err != nil {
			logger.Error("Failed to create driver loop", "error", err)
			os.Exit(1)
		}

		if interval := systemd.WatchdogInterval(); interval > 0 {
			if err := loop.Every("watchdog", interval, func(time.Time) { notifier.Watchdog() }); err != nil {
				logger.Warn("Failed to schedule watchdog", "error", err)
			}
		}

		// Optional NATS telemetry and remote control
		var natsServer *nats.Server
		var natsClient *nats.Client
		var bridge *nats.Bridge
		natsURL := opts.NATSURL
		if opts.NATSEmbedded {
			serverOpts := nats.DefaultServerOptions()
			serverOpts.Port = opts.NATSEmbeddedPort
			serverOpts.Logger = logging.GetLogger("nats")
			natsServer = nats.NewServer(serverOpts)
			if natsURL == "" {
				natsURL = natsServer.ClientURL()
			}
		}
		if natsURL != "" {
			natsClient = nats.NewClient(natsURL, opts.NATSDevice, logging.GetLogger("nats"))
			bridge = nats.NewBridge(eventBus, natsClient, logging.GetLogger("nats"))

			heartbeat := time.Duration(opts.NATSHeartbeatSec) * time.Second
			if heartbeat <= 0 {
				heartbeat = 10 * time.Second
			}
			if err := loop.Every("heartbeat", heartbeat, func(now time.Time) {
				state := scheduler.Current()
				natsClient.PublishHeartbeat(nats.HeartbeatMessage{
					Timestamp:   now.Format(time.RFC3339),
					Version:     version.Version,
					Phase:       state.Phase.String(),
					RemainingMs: state.Remaining(now).Milliseconds(),
					Cycle:       state.Cycle,
				})
			}); err != nil {
				logger.Warn("Failed to schedule heartbeat", "error", err)
			}
		}

		// Watch the settings file for external edits
		var watcher *config.Watcher[settings.Config]
		if opts.SettingsWatch && opts.SettingsStore != store.BackendSQLite {
			path := opts.SettingsPath
			if path == "" {
				path = store.DefaultPath(store.BackendFile)
			}
			watcher, err = settings.WatchFile(controller, path, logging.GetLogger("settings"))
			if err != nil {
				logger.Warn("Failed to watch settings file", "path", path, "error", err)
			}
		}

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Settings:          controller,
			Phase:             scheduler,
			EventBus:          eventBus,
			PrometheusHandler: metrics.Handler(),

			SettingsWritesPerMinute: opts.APISettingsWritesPerMin,
		})

		hooks.OnStart(func() {
			if natsServer != nil {
				if startErr := natsServer.Start(); startErr != nil {
					logger.Warn("Failed to start embedded NATS server", "error", startErr)
				}
			}
			if natsClient != nil {
				// An absent broker is retried in the background
				_ = natsClient.Connect()
				natsClient.ServeSettings(controller)
				bridge.Start()
			}

			loop.Start()
			notifier.Ready()

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			notifier.Stopping()

			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if stopErr := server.Stop(stopCtx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			if stopErr := loop.Stop(); stopErr != nil {
				logger.Error("Error stopping driver loop", "error", stopErr)
			}
			if watcher != nil {
				if stopErr := watcher.Stop(); stopErr != nil {
					logger.Error("Error stopping settings watcher", "error", stopErr)
				}
			}
			if bridge != nil {
				bridge.Stop()
			}
			if natsClient != nil {
				natsClient.Close()
			}
			if natsServer != nil {
				natsServer.Stop()
			}
			if closeErr := settingsStore.Close(); closeErr != nil {
				logger.Error("Error closing settings store", "error", closeErr)
			}
		})
	})

	// Add settings command
	cli.Root().AddCommand(cmd.CreateSettingsCmd())

	// Add service command
	cli.Root().AddCommand(cmd.CreateServiceCmd())

	// Add update command
	cli.Root().AddCommand(cmd.CreateUpdateCmd())

	cli.Root().Version = version.String()

	// Run the CLI
	cli.Run()
}

// logBanner reports the build flavour the way the device did on its serial console.
func logBanner(logger *slog.Logger, cfg settings.Config) {
	flavour := "PRODUCTION BUILD"
	if cfg.Debug {
		flavour = "DEBUG BUILD"
	}
	logger.Info(flavour,
		"version", version.Version,
		"work_delay_ms", cfg.WorkDelay.Milliseconds(),
		"rest_delay_ms", cfg.RestDelay.Milliseconds())
}

// phasePublisher forwards transitions to the event bus.
func phasePublisher(bus *events.Bus) phase.Observer {
	return phase.ObserverFunc(func(previous, current phase.State) {
		bus.Publish(events.PhaseChangedEvent{
			Phase:      current.Phase.String(),
			Previous:   previous.Phase.String(),
			DurationMs: current.Duration.Milliseconds(),
			Cycle:      current.Cycle,
			Timestamp:  current.EnteredAt.UTC().Format(time.RFC3339),
		})
	})
}

func clampBrightness(v int) uint8 {
	switch {
	case v <= 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
