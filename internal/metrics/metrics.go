// Package metrics accumulates throughput and error-rate counters across
// concurrent pipeline runs. One Aggregator is constructed at startup and
// injected into every coordinator; there is no ambient global.
package metrics

import (
	"sync"
	"time"

	"github.com/agchaparroh/noticias-pipeline/internal/resilience"
)

// PhaseOutcome classifies one phase invocation.
type PhaseOutcome string

const (
	PhaseSuccess  PhaseOutcome = "success"
	PhaseFallback PhaseOutcome = "fallback"
	PhaseFailure  PhaseOutcome = "failure"
)

// PhaseCounts tallies invocations of one phase by outcome.
type PhaseCounts struct {
	Success  int64 `json:"success"`
	Fallback int64 `json:"fallback"`
	Failure  int64 `json:"failure"`
	// TotalMillis accumulates phase wall time for average computation.
	TotalMillis int64 `json:"total_millis"`
}

// Snapshot is a consistent point-in-time copy of all counters plus the
// derived gauges. Gauges are computed at snapshot time from the same
// locked read, not maintained incrementally, so floating-point drift
// cannot accumulate across updates.
type Snapshot struct {
	TotalProcessed int64                      `json:"total_processed"`
	TotalFailed    int64                      `json:"total_failed"`
	TotalDegraded  int64                      `json:"total_degraded"`
	ErrorsByKind   map[string]int64           `json:"errors_by_kind"`
	Phases         map[string]PhaseCounts     `json:"phases"`
	TotalMillis    int64                      `json:"total_millis"`
	ErrorRate      float64                    `json:"error_rate"`
	AvgMillis      float64                    `json:"avg_millis"`
	TakenAt        time.Time                  `json:"taken_at"`
}

// Aggregator is the concurrency-safe metrics accumulator. One coarse
// lock guards all counters; the critical section is arithmetic only.
type Aggregator struct {
	mu sync.Mutex

	totalProcessed int64
	totalFailed    int64
	totalDegraded  int64
	errorsByKind   map[resilience.Kind]int64
	phases         map[string]PhaseCounts
	totalDuration  time.Duration

	// countFallbackAsError folds degraded runs into the error-rate
	// numerator when set. Off by default: a fallback-completed run is
	// not a true failure.
	countFallbackAsError bool
}

// New creates an empty aggregator.
func New(countFallbackAsError bool) *Aggregator {
	return &Aggregator{
		errorsByKind:         make(map[resilience.Kind]int64),
		phases:               make(map[string]PhaseCounts),
		countFallbackAsError: countFallbackAsError,
	}
}

// RecordRun records one completed coordinator run. kind is empty for
// successful runs; degraded marks runs that used at least one fallback.
func (a *Aggregator) RecordRun(duration time.Duration, kind resilience.Kind, degraded bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalProcessed++
	a.totalDuration += duration
	if kind != "" {
		a.totalFailed++
		a.errorsByKind[kind]++
	}
	if degraded {
		a.totalDegraded++
	}
}

// RecordPhase records one phase invocation.
func (a *Aggregator) RecordPhase(phase string, outcome PhaseOutcome, duration time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c := a.phases[phase]
	switch outcome {
	case PhaseSuccess:
		c.Success++
	case PhaseFallback:
		c.Fallback++
	case PhaseFailure:
		c.Failure++
	}
	c.TotalMillis += duration.Milliseconds()
	a.phases[phase] = c
}

// Snapshot returns a consistent copy of all counters with gauges
// computed from the same locked read.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		TotalProcessed: a.totalProcessed,
		TotalFailed:    a.totalFailed,
		TotalDegraded:  a.totalDegraded,
		ErrorsByKind:   make(map[string]int64, len(a.errorsByKind)),
		Phases:         make(map[string]PhaseCounts, len(a.phases)),
		TotalMillis:    a.totalDuration.Milliseconds(),
		TakenAt:        time.Now().UTC(),
	}
	for k, v := range a.errorsByKind {
		s.ErrorsByKind[string(k)] = v
	}
	for name, c := range a.phases {
		s.Phases[name] = c
	}

	if a.totalProcessed > 0 {
		failures := a.totalFailed
		if a.countFallbackAsError {
			failures += a.totalDegraded
		}
		s.ErrorRate = float64(failures) / float64(a.totalProcessed)
		s.AvgMillis = float64(s.TotalMillis) / float64(a.totalProcessed)
	}

	return s
}
