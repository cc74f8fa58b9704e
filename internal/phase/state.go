package phase

import (
	"fmt"
	"time"
)

// Phase is one of the two mutually exclusive operating states.
type Phase int

const (
	Work Phase = iota
	Rest
)

// String returns the lowercase phase name used in logs, events and the API.
func (p Phase) String() string {
	switch p {
	case Work:
		return "work"
	case Rest:
		return "rest"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Next returns the phase that follows p. The cycle has no terminal state.
func (p Phase) Next() Phase {
	if p == Work {
		return Rest
	}
	return Work
}

// State is a snapshot of the active phase.
type State struct {
	Phase     Phase
	EnteredAt time.Time
	// Duration is captured from the configuration when the phase is entered
	// and is not re-read while the phase runs.
	Duration time.Duration
	// Cycle counts transitions since Initialize.
	Cycle uint64
}

// Elapsed returns how long the phase has been running at now.
// A clock that moved backwards counts as zero.
func (s State) Elapsed(now time.Time) time.Duration {
	elapsed := now.Sub(s.EnteredAt)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Remaining returns the time left in the phase, never negative.
func (s State) Remaining(now time.Time) time.Duration {
	remaining := s.Duration - s.Elapsed(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Fraction returns elapsed/duration clamped to [0,1].
func (s State) Fraction(now time.Time) float64 {
	if s.Duration <= 0 {
		return 1
	}
	fraction := float64(s.Elapsed(now)) / float64(s.Duration)
	if fraction > 1 {
		return 1
	}
	return fraction
}

// Expired reports whether the phase has run for its full duration.
func (s State) Expired(now time.Time) bool {
	return s.Elapsed(now) >= s.Duration
}
