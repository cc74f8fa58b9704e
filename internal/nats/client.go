package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/pomodorox/internal/metrics"
	"github.com/smazurov/pomodorox/internal/settings"
)

// ErrPending means the broker was not reachable at Connect. The client
// keeps retrying in the background and goes live once it answers.
var ErrPending = errors.New("nats: broker not reachable yet, retrying")

// Updater applies settings received over NATS.
type Updater interface {
	ApplyUpdate(ctx context.Context, req settings.UpdateRequest, source string) (settings.Result, error)
}

// Client publishes device telemetry and serves settings requests.
// Gracefully degrades when NATS is unavailable: publishes become no-ops.
type Client struct {
	url     string
	device  string
	conn    *nats.Conn
	sub     *nats.Subscription
	updater Updater
	logger  *slog.Logger
	mu      sync.RWMutex

	connected bool
}

// NewClient creates a client for device.
func NewClient(url, device string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:    url,
		device: device,
		logger: logger.With("component", "nats-client", "device", device),
	}
}

// Device returns the device name used in subjects.
func (c *Client) Device() string { return c.device }

// Connect dials the server. A missing broker is retried in the background
// and Connect returns ErrPending; publishes are dropped until it connects.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	opts := []nats.Option{
		nats.Name("pomodorox-" + c.device),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.ConnectHandler(func(_ *nats.Conn) {
			c.setConnected(true)
			c.logger.Info("Connected to NATS", "url", c.url)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.setConnected(false)
			if err != nil {
				c.logger.Warn("NATS disconnected", "error", err)
			} else {
				c.logger.Debug("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			c.setConnected(true)
			c.logger.Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(c.url, opts...)
	if err != nil {
		c.logger.Warn("Failed to connect to NATS, running in offline mode", "error", err)
		return err
	}

	c.conn = conn
	c.connected = conn.IsConnected()
	// Subscriptions made while pending are sent once the broker answers.
	c.subscribeControlLocked()

	if !c.connected {
		c.logger.Warn("NATS broker unreachable, retrying in background", "url", c.url)
		return ErrPending
	}
	return nil
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// ServeSettings answers requests on the control subject with u.
func (c *Client) ServeSettings(u Updater) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updater = u
	c.subscribeControlLocked()
}

// subscribeControlLocked subscribes once both a connection and an updater
// exist. nats.go restores subscriptions after a reconnect on its own.
func (c *Client) subscribeControlLocked() {
	if c.conn == nil || c.updater == nil || c.sub != nil {
		return
	}

	subject := SubjectControlSettings(c.device)
	sub, err := c.conn.Subscribe(subject, c.handleSettings)
	if err != nil {
		c.logger.Warn("Failed to subscribe to settings requests", "subject", subject, "error", err)
		return
	}
	c.sub = sub
	c.logger.Debug("Serving settings requests", "subject", subject)
}

func (c *Client) handleSettings(msg *nats.Msg) {
	c.mu.RLock()
	updater := c.updater
	c.mu.RUnlock()

	reply := c.applySettings(updater, msg.Data)
	if msg.Reply == "" {
		return
	}
	data, err := Marshal(reply)
	if err != nil {
		c.logger.Warn("Failed to marshal settings reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		c.logger.Warn("Failed to send settings reply", "error", err)
	}
}

func (c *Client) applySettings(updater Updater, data []byte) SettingsReply {
	req, err := UnmarshalSettingsRequest(data)
	if err != nil {
		return SettingsReply{Error: "malformed request: " + err.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := updater.ApplyUpdate(ctx, req.UpdateRequest(), settings.SourceNATS)
	if err != nil {
		var verr *settings.ValidationError
		if errors.As(err, &verr) {
			return SettingsReply{Error: verr.Error()}
		}
		return SettingsReply{Error: err.Error()}
	}
	return SettingsReply{
		OK:          true,
		Debug:       result.Config.Debug,
		WorkDelayMs: result.Config.WorkDelay.Milliseconds(),
		RestDelayMs: result.Config.RestDelay.Milliseconds(),
		Persisted:   result.Persisted,
	}
}

// PublishPhase publishes a phase transition.
func (c *Client) PublishPhase(m PhaseMessage) {
	m.Device = c.device
	c.publish("phase", SubjectPhase(c.device), m)
}

// PublishSettings publishes an applied settings change.
func (c *Client) PublishSettings(m SettingsMessage) {
	m.Device = c.device
	c.publish("settings", SubjectSettings(c.device), m)
}

// PublishHeartbeat publishes a liveness message.
func (c *Client) PublishHeartbeat(m HeartbeatMessage) {
	m.Device = c.device
	c.publish("heartbeat", SubjectHeartbeat(c.device), m)
}

// publish is a no-op when not connected.
func (c *Client) publish(kind, subject string, m any) {
	c.mu.RLock()
	conn := c.conn
	connected := c.connected
	c.mu.RUnlock()

	if conn == nil || !connected {
		metrics.RecordNATSPublish(kind, false)
		return
	}

	data, err := Marshal(m)
	if err != nil {
		c.logger.Warn("Failed to marshal message", "kind", kind, "error", err)
		metrics.RecordNATSPublish(kind, false)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		c.logger.Warn("Failed to publish", "subject", subject, "error", err)
		metrics.RecordNATSPublish(kind, false)
		return
	}
	metrics.RecordNATSPublish(kind, true)
}

// IsConnected reports whether the connection is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.conn != nil
}

// Close drains the subscription and closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sub != nil {
		_ = c.sub.Unsubscribe()
		c.sub = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	c.logger.Debug("NATS client closed")
}

// RequestSettings sends req to device's control subject over a short-lived
// connection and waits for the reply.
func RequestSettings(ctx context.Context, url, device string, req SettingsRequest) (SettingsReply, error) {
	conn, err := nats.Connect(url, nats.Name("pomodorox-cli"))
	if err != nil {
		return SettingsReply{}, fmt.Errorf("connect to %s: %w", url, err)
	}
	defer conn.Close()

	data, err := Marshal(req)
	if err != nil {
		return SettingsReply{}, err
	}
	msg, err := conn.RequestWithContext(ctx, SubjectControlSettings(device), data)
	if err != nil {
		return SettingsReply{}, fmt.Errorf("request settings: %w", err)
	}

	var reply SettingsReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return SettingsReply{}, fmt.Errorf("decode reply: %w", err)
	}
	return reply, nil
}

// NewSettingsRequest builds a request from textual values.
func NewSettingsRequest(debug, workDelay, restDelay string) SettingsRequest {
	d, w, r := loose(debug), loose(workDelay), loose(restDelay)
	return SettingsRequest{Debug: &d, WorkDelay: &w, RestDelay: &r}
}
