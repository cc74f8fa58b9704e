// Package models holds request and response bodies for the HTTP API.
package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	App       string `json:"app" example:"pomodorox" doc:"Application name"`
	Version   string `json:"version" example:"0.0.1" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build date"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Settings models
type SettingsData struct {
	Debug     bool  `json:"debug" example:"true" doc:"Verbose logging of the phase cycle"`
	WorkDelay int64 `json:"work_delay" example:"20000" doc:"Work phase duration in milliseconds"`
	RestDelay int64 `json:"rest_delay" example:"5000" doc:"Rest phase duration in milliseconds"`
}

type SettingsResponse struct {
	Body SettingsData
}

type SettingsUpdateData struct {
	Debug     bool  `json:"debug" example:"false" doc:"Verbose logging of the phase cycle"`
	WorkDelay int64 `json:"work_delay" maximum:"4294967295" example:"1500000" doc:"Work phase duration in milliseconds; zero or negative means 500"`
	RestDelay int64 `json:"rest_delay" maximum:"4294967295" example:"300000" doc:"Rest phase duration in milliseconds; zero or negative means 500"`
}

type SettingsUpdateRequest struct {
	Body SettingsUpdateData
}

type SettingsUpdateResult struct {
	SettingsData
	Persisted bool   `json:"persisted" example:"true" doc:"Whether the change reached durable storage"`
	Warning   string `json:"warning,omitempty" doc:"Why the change was not persisted"`
}

type SettingsUpdateResponse struct {
	Body SettingsUpdateResult
}

// Phase models
type PhaseData struct {
	Phase       string  `json:"phase" example:"work" doc:"Active phase"`
	EnteredAt   string  `json:"entered_at" example:"2025-01-27T10:30:00Z" doc:"When the phase was entered"`
	DurationMs  int64   `json:"duration_ms" example:"20000" doc:"Duration captured at phase entry"`
	RemainingMs int64   `json:"remaining_ms" example:"12000" doc:"Time left in the phase"`
	Fraction    float64 `json:"fraction" example:"0.4" doc:"Elapsed fraction of the phase"`
	Cycle       uint64  `json:"cycle" example:"3" doc:"Transitions since boot"`
}

type PhaseResponse struct {
	Body PhaseData
}

// Metrics models
type MetricsData struct {
	Phase            string `json:"phase" example:"rest" doc:"Last phase reported by the scheduler"`
	Transitions      uint64 `json:"transitions" example:"12" doc:"Phase transitions since boot"`
	SettingsApplied  uint64 `json:"settings_applied" example:"2" doc:"Settings updates applied"`
	SettingsRejected uint64 `json:"settings_rejected" example:"0" doc:"Settings updates rejected by validation"`
	PersistFailures  uint64 `json:"persist_failures" example:"0" doc:"Applied updates that failed to persist"`
	LoadFailures     uint64 `json:"load_failures" example:"0" doc:"Boot loads that fell back to defaults"`
}

type MetricsResponse struct {
	Body MetricsData
}
