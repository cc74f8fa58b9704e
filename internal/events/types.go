package events

// Event type constants for kelindar/event.
const (
	TypePhaseChanged uint32 = iota + 1
	TypeSettingsUpdated
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PhaseChangedEvent is published every time the scheduler enters a phase.
type PhaseChangedEvent struct {
	Phase      string `json:"phase" example:"rest" doc:"Phase that was entered (work or rest)"`
	Previous   string `json:"previous" example:"work" doc:"Phase that was left"`
	DurationMs int64  `json:"duration_ms" example:"5000" doc:"Duration captured for the new phase"`
	Cycle      uint64 `json:"cycle" example:"3" doc:"Number of transitions since boot"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for PhaseChangedEvent.
func (e PhaseChangedEvent) Type() uint32 { return TypePhaseChanged }

// SettingsUpdatedEvent is published after a configuration change was applied.
type SettingsUpdatedEvent struct {
	Debug       bool   `json:"debug" example:"true" doc:"Debug flag"`
	WorkDelayMs int64  `json:"work_delay" example:"20000" doc:"Work phase duration in milliseconds"`
	RestDelayMs int64  `json:"rest_delay" example:"5000" doc:"Rest phase duration in milliseconds"`
	Source      string `json:"source" example:"http" doc:"Where the update came from (boot, http, api, nats, file, cli)"`
	Persisted   bool   `json:"persisted" example:"true" doc:"Whether the change reached durable storage"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Update timestamp"`
}

// Type returns the event type identifier for SettingsUpdatedEvent.
func (e SettingsUpdatedEvent) Type() uint32 { return TypeSettingsUpdated }
