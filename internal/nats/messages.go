package nats

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/smazurov/pomodorox/internal/settings"
)

// SubjectPrefix roots every subject.
const SubjectPrefix = "pomodorox"

// SubjectPhase carries phase transitions.
func SubjectPhase(device string) string {
	return fmt.Sprintf("%s.%s.phase", SubjectPrefix, device)
}

// SubjectSettings carries applied settings changes.
func SubjectSettings(device string) string {
	return fmt.Sprintf("%s.%s.settings", SubjectPrefix, device)
}

// SubjectHeartbeat carries the periodic liveness message.
func SubjectHeartbeat(device string) string {
	return fmt.Sprintf("%s.%s.heartbeat", SubjectPrefix, device)
}

// SubjectControlSettings is the request/reply subject for settings updates.
func SubjectControlSettings(device string) string {
	return fmt.Sprintf("%s.%s.control.settings", SubjectPrefix, device)
}

// PhaseMessage is published on every phase transition.
type PhaseMessage struct {
	Device     string `json:"device"`
	Timestamp  string `json:"timestamp"`
	Phase      string `json:"phase"`
	Previous   string `json:"previous"`
	DurationMs int64  `json:"duration_ms"`
	Cycle      uint64 `json:"cycle"`
}

// SettingsMessage is published after a settings change.
type SettingsMessage struct {
	Device      string `json:"device"`
	Timestamp   string `json:"timestamp"`
	Debug       bool   `json:"debug"`
	WorkDelayMs int64  `json:"work_delay"`
	RestDelayMs int64  `json:"rest_delay"`
	Source      string `json:"source"`
	Persisted   bool   `json:"persisted"`
}

// HeartbeatMessage is published by the driver loop.
type HeartbeatMessage struct {
	Device      string `json:"device"`
	Timestamp   string `json:"timestamp"`
	Version     string `json:"version"`
	Phase       string `json:"phase"`
	RemainingMs int64  `json:"remaining_ms"`
	Cycle       uint64 `json:"cycle"`
}

// SettingsRequest asks the device to apply new settings. Values may be
// sent as JSON strings, numbers or booleans; absent keys are rejected.
type SettingsRequest struct {
	Debug     *loose `json:"debug"`
	WorkDelay *loose `json:"work_delay"`
	RestDelay *loose `json:"rest_delay"`
}

// UpdateRequest converts the message into a settings request.
func (r SettingsRequest) UpdateRequest() settings.UpdateRequest {
	return settings.UpdateRequest{
		Debug:     r.Debug.ptr(),
		WorkDelay: r.WorkDelay.ptr(),
		RestDelay: r.RestDelay.ptr(),
	}
}

// SettingsReply answers a SettingsRequest.
type SettingsReply struct {
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
	Debug       bool   `json:"debug"`
	WorkDelayMs int64  `json:"work_delay"`
	RestDelayMs int64  `json:"rest_delay"`
	Persisted   bool   `json:"persisted"`
}

// loose is a scalar read from JSON in its textual form.
type loose string

func (l *loose) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = loose(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*l = loose(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*l = loose(strconv.FormatBool(b))
		return nil
	}
	return fmt.Errorf("unsupported value %s", data)
}

func (l *loose) ptr() *string {
	if l == nil {
		return nil
	}
	s := string(*l)
	return &s
}

// Marshal serializes any message to JSON.
func Marshal(m any) ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalSettingsRequest deserializes a SettingsRequest.
func UnmarshalSettingsRequest(data []byte) (SettingsRequest, error) {
	var m SettingsRequest
	err := json.Unmarshal(data, &m)
	return m, err
}
