package worker

import "time"

// MaxLatency is the hard age budget (§6 max_latency_ms) past which a
// result is suppressed regardless of content.
const MaxLatency = 1500 * time.Millisecond

// Governor is the latency/repeat policy gate between worker compute and
// user-visible output. It holds no state of its own beyond what's passed
// in: the Worker owns safeMode and the RepeatFilter.
type Governor struct {
	repeatFilter *RepeatFilter
	maxLatency   time.Duration
}

// NewGovernor builds a Governor backed by the given RepeatFilter, using
// the default MaxLatency budget.
func NewGovernor(rf *RepeatFilter) *Governor {
	return &Governor{repeatFilter: rf, maxLatency: MaxLatency}
}

// SetMaxLatency overrides the default age budget past which a result is
// suppressed as late.
func (g *Governor) SetMaxLatency(d time.Duration) {
	g.maxLatency = d
}

// Decide applies the fixed precedence order from §4.6: lateness first,
// then safe mode, then repeat suppression, else success. now and
// eventTimestamp are compared to compute total age.
func (g *Governor) Decide(now, eventTimestamp time.Time, safeMode bool, promptID string, score float64) Decision {
	if now.Sub(eventTimestamp) > g.maxLatency {
		return DecisionSuppressedLate
	}
	if safeMode {
		return DecisionSuppressedSafeMode
	}
	if g.repeatFilter.IsRepeat(promptID, score) {
		return DecisionSuppressedRepeat
	}
	return DecisionSuccess
}
