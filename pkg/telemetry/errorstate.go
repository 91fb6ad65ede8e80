package telemetry

import (
	"sync"
	"time"
)

// errorStateWindow is how far back whisper/VAD failures are counted before
// ageing out, and how long VAD must stay inactive before it alone trips
// safe mode.
const errorStateWindow = 10 * time.Second

// ErrorStateManager accumulates inference failures and VAD inactivity
// into a single safe_mode verdict: two or more failures inside
// errorStateWindow, or VAD inactivity that outlasts it, escalate safe_mode
// and emit a RETRY or SILENT_FAIL telemetry event; a subsequent clean
// signal clears it and emits RECOVERED.
type ErrorStateManager struct {
	events *Log

	mu               sync.Mutex
	window           time.Duration
	failures         []time.Time
	vadInactiveSince time.Time
	safeMode         bool
}

// NewErrorStateManager builds an accumulator that writes its state
// transitions to events. events may be nil, in which case safe_mode is
// still tracked but nothing is telemetered.
func NewErrorStateManager(events *Log) *ErrorStateManager {
	return &ErrorStateManager{events: events, window: errorStateWindow}
}

// RecordFailure registers an inference failure. The Sentinel reports
// failed VAD calls here.
func (e *ErrorStateManager) RecordFailure(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = append(e.failures, now)
	e.trim(now)
	if len(e.failures) >= 2 && !e.safeMode {
		e.safeMode = true
		e.emit("RETRY", now)
	}
}

// RecordSuccess registers a successful inference call, clearing the
// failure window and, if nothing else is keeping safe_mode up, recovering.
func (e *ErrorStateManager) RecordSuccess(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = nil
	e.maybeRecover(now)
}

// RecordVADInactive registers that VAD produced no speech activity at now.
// Called repeatedly while the Sentinel stays in a non-speaking state.
func (e *ErrorStateManager) RecordVADInactive(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.vadInactiveSince.IsZero() {
		e.vadInactiveSince = now
		return
	}
	if now.Sub(e.vadInactiveSince) > e.window && !e.safeMode {
		e.safeMode = true
		e.emit("SILENT_FAIL", now)
	}
}

// RecordVADActive clears the inactivity clock once speech resumes.
func (e *ErrorStateManager) RecordVADActive(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vadInactiveSince = time.Time{}
	e.maybeRecover(now)
}

func (e *ErrorStateManager) maybeRecover(now time.Time) {
	if e.safeMode && len(e.failures) == 0 && e.vadInactiveSince.IsZero() {
		e.safeMode = false
		e.emit("RECOVERED", now)
	}
}

func (e *ErrorStateManager) trim(now time.Time) {
	cutoff := now.Add(-e.window)
	kept := e.failures[:0]
	for _, t := range e.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.failures = kept
}

// SafeMode reports whether the accumulator is currently in safe mode.
func (e *ErrorStateManager) SafeMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.safeMode
}

func (e *ErrorStateManager) emit(state string, now time.Time) {
	if e.events == nil {
		return
	}
	e.events.writeRaw(map[string]any{
		"type":      TypeErrorState,
		"state":     state,
		"timestamp": now.Unix(),
	})
}
