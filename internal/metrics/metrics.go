// Package metrics provides Prometheus metrics for the phase cycle,
// settings changes and the driver loop.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/pomodorox/internal/phase"
)

const namespace = "pomodorox"

var (
	phaseActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "phase",
		Name:      "active",
		Help:      "1 for the active phase, 0 otherwise",
	}, []string{"phase"})

	phaseDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "phase",
		Name:      "duration_seconds",
		Help:      "Duration captured when the phase was last entered",
	}, []string{"phase"})

	phaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "phase",
		Name:      "transitions_total",
		Help:      "Phase transitions by entered phase",
	}, []string{"to"})

	settingsUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "settings",
		Name:      "updates_total",
		Help:      "Settings updates by source and result (applied, unpersisted, rejected)",
	}, []string{"source", "result"})

	configLoadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "settings",
		Name:      "load_failures_total",
		Help:      "Boot-time configuration load failures by reason",
	}, []string{"reason"})

	driverTick = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "driver",
		Name:      "tick_seconds",
		Help:      "Time spent in one scheduler tick",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	natsPublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "nats",
		Name:      "publishes_total",
		Help:      "NATS publishes by message kind and result",
	}, []string{"kind", "result"})

	// Local cache for the API.
	snapshot   Snapshot
	snapshotMu sync.RWMutex
)

// Snapshot mirrors the counters served over the JSON API.
type Snapshot struct {
	Phase            string
	Transitions      uint64
	SettingsApplied  uint64
	SettingsRejected uint64
	PersistFailures  uint64
	LoadFailures     uint64
}

// Recorder feeds the scheduler and the settings controller into the
// registry. The zero value is ready to use.
type Recorder struct{}

// PhaseChanged implements phase.Observer.
func (Recorder) PhaseChanged(previous, current phase.State) {
	SetPhase(current.Phase, current.Duration)
	phaseTransitions.WithLabelValues(current.Phase.String()).Inc()
	update(func(s *Snapshot) { s.Transitions++ })
}

// SettingsApplied counts an installed update.
func (Recorder) SettingsApplied(source string, persisted bool) {
	result := "applied"
	if !persisted {
		result = "unpersisted"
	}
	settingsUpdates.WithLabelValues(source, result).Inc()
	update(func(s *Snapshot) {
		s.SettingsApplied++
		if !persisted {
			s.PersistFailures++
		}
	})
}

// SettingsRejected counts an update that failed validation.
func (Recorder) SettingsRejected(source string) {
	settingsUpdates.WithLabelValues(source, "rejected").Inc()
	update(func(s *Snapshot) { s.SettingsRejected++ })
}

// ConfigLoadFailed counts a boot load that fell back to defaults.
func (Recorder) ConfigLoadFailed(reason string) {
	configLoadFailures.WithLabelValues(reason).Inc()
	update(func(s *Snapshot) { s.LoadFailures++ })
}

// SetPhase marks p as the active phase.
func SetPhase(p phase.Phase, d time.Duration) {
	for _, candidate := range []phase.Phase{phase.Work, phase.Rest} {
		v := 0.0
		if candidate == p {
			v = 1
		}
		phaseActive.WithLabelValues(candidate.String()).Set(v)
	}
	phaseDuration.WithLabelValues(p.String()).Set(d.Seconds())
	update(func(s *Snapshot) { s.Phase = p.String() })
}

// ObserveTick records how long one driver tick took.
func ObserveTick(d time.Duration) {
	driverTick.Observe(d.Seconds())
}

// RecordNATSPublish counts a publish attempt.
func RecordNATSPublish(kind string, ok bool) {
	result := "ok"
	if !ok {
		result = "dropped"
	}
	natsPublishes.WithLabelValues(kind, result).Inc()
}

// Get returns a copy of the cached counters.
func Get() Snapshot {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	return snapshot
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func update(fn func(*Snapshot)) {
	snapshotMu.Lock()
	defer snapshotMu.Unlock()
	fn(&snapshot)
}
