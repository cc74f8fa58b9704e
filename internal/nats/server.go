package nats

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/smazurov/pomodorox/internal/settings"
)

// maxPayload bounds any message on the embedded broker.
const maxPayload = 4 * settings.MaxBlobSize

const readyTimeout = 5 * time.Second

// ServerOptions configures the in-process broker for devices with no NATS
// server on their network.
type ServerOptions struct {
	Host   string
	Port   int
	Name   string
	Logger *slog.Logger
}

// DefaultServerOptions listens on loopback at the standard client port.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{Host: "127.0.0.1", Port: 4222, Name: "pomodorox"}
}

// Server is an embedded broker whose log output goes through slog.
type Server struct {
	opts   ServerOptions
	ns     *server.Server
	logger *slog.Logger
}

// NewServer fills unset options from DefaultServerOptions.
func NewServer(opts ServerOptions) *Server {
	defaults := DefaultServerOptions()
	if opts.Host == "" {
		opts.Host = defaults.Host
	}
	if opts.Port == 0 {
		opts.Port = defaults.Port
	}
	if opts.Name == "" {
		opts.Name = defaults.Name
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{opts: opts, logger: logger.With("component", "nats-server")}
}

// Start runs the broker and blocks until it accepts clients.
func (s *Server) Start() error {
	ns, err := server.NewServer(&server.Options{
		ServerName: s.opts.Name,
		Host:       s.opts.Host,
		Port:       s.opts.Port,
		MaxPayload: maxPayload,
		NoSigs:     true,
	})
	if err != nil {
		return fmt.Errorf("nats: create embedded server: %w", err)
	}
	ns.SetLogger(brokerLog{s.logger}, true, false)

	go ns.Start()
	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return fmt.Errorf("nats: embedded server on %s:%d not ready after %s", s.opts.Host, s.opts.Port, readyTimeout)
	}

	s.ns = ns
	s.logger.Info("Embedded NATS server started", "url", s.ClientURL())
	return nil
}

// Stop shuts the broker down and waits for it.
func (s *Server) Stop() {
	if s.ns == nil {
		return
	}
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
	s.ns = nil
	s.logger.Info("Embedded NATS server stopped")
}

// ClientURL is the address the device client dials. Before Start it is
// derived from the options.
func (s *Server) ClientURL() string {
	if s.ns == nil {
		return fmt.Sprintf("nats://%s:%d", s.opts.Host, s.opts.Port)
	}
	return s.ns.ClientURL()
}

// IsRunning reports whether the broker is up.
func (s *Server) IsRunning() bool {
	return s.ns != nil && s.ns.Running()
}

// brokerLog adapts slog to the broker's printf-style logger.
type brokerLog struct {
	logger *slog.Logger
}

func (l brokerLog) Noticef(format string, v ...any) { l.logger.Info(fmt.Sprintf(format, v...)) }
func (l brokerLog) Warnf(format string, v ...any)   { l.logger.Warn(fmt.Sprintf(format, v...)) }
func (l brokerLog) Errorf(format string, v ...any)  { l.logger.Error(fmt.Sprintf(format, v...)) }
func (l brokerLog) Fatalf(format string, v ...any)  { l.logger.Error(fmt.Sprintf(format, v...)) }
func (l brokerLog) Debugf(format string, v ...any)  { l.logger.Debug(fmt.Sprintf(format, v...)) }
func (l brokerLog) Tracef(format string, v ...any)  { l.logger.Debug(fmt.Sprintf(format, v...)) }
