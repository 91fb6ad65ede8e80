// Package dialogue turns (intent, utterance) pairs into a conversation
// state and a non-repeating suggestion, via a sticky finite state machine,
// bounded rolling memory, and a small suggestion rule table.
package dialogue

import (
	"regexp"
	"strings"
	"time"
)

// State is one of the fixed conversation phases.
type State string

const (
	StateOpening   State = "opening"
	StateDiscovery State = "discovery"
	StatePain      State = "pain"
	StateObjection State = "objection"
	StateClose     State = "close"
)

// ConfirmationsRequired is the number of consecutive identical candidate
// proposals needed before the sticky state machine actually transitions.
const ConfirmationsRequired = 2

// allowedTransitions encodes the §4.7 transition graph. close is
// special-cased in Process: it is reachable regardless of
// the current state's entry here, by design (see the Open Question note
// in DESIGN.md).
var allowedTransitions = map[State]map[State]bool{
	StateOpening:   {StateOpening: true, StateDiscovery: true, StateObjection: true},
	StateDiscovery: {StateDiscovery: true, StatePain: true, StateObjection: true},
	StatePain:      {StatePain: true, StateObjection: true},
	StateObjection: {StateObjection: true, StateClose: true},
	StateClose:     {StateClose: true},
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// keywordTargets maps a keyword found in the case-folded, stripped
// (intent + " " + utterance) text to its candidate target state.
// Multiple keywords may map to the same state; the first match in
// iteration order wins, so order here only matters for determinism of
// ties, which the test suite does not rely on.
var keywordTargets = []struct {
	keyword string
	target  State
}{
	{"rapport", StateOpening},
	{"probe", StateDiscovery},
	{"question", StateDiscovery},
	{"painsignal", StatePain},
	{"pain", StatePain},
	{"stallobjection", StateObjection},
	{"objection", StateObjection},
	{"price", StateObjection},
	{"timeline", StateObjection},
	{"decision", StateDiscovery},
	{"closingbuyindicator", StateClose},
	{"ready", StateClose},
}

// ConversationState is the FSM's full observable state.
type ConversationState struct {
	State        State
	PendingState State
	PendingCount int
	LastUpdateTs time.Time
}

// StateMachine is the sticky conversation-phase FSM. It is owned
// exclusively by the DialogueBrain; nothing outside this package mutates
// it directly.
type StateMachine struct {
	resetAfter time.Duration
	cs         ConversationState
	onReset    func()
}

// NewStateMachine builds a StateMachine starting at StateOpening.
// resetAfter is reset_seconds (90s prod, 10s debug per §6). onReset, if
// non-nil, is invoked whenever an inactivity reset occurs, so callers can
// publish a reset_event without this package depending on the bus.
func NewStateMachine(resetAfter time.Duration, onReset func()) *StateMachine {
	return &StateMachine{
		resetAfter: resetAfter,
		cs: ConversationState{
			State: StateOpening,
		},
		onReset: onReset,
	}
}

// CandidateTarget maps an (intent, utterance) pair to its keyword-driven
// candidate target state, or current if no keyword matches (a no-op
// candidate).
func CandidateTarget(intent, utterance string, current State) State {
	text := nonAlphanumeric.ReplaceAllString(strings.ToLower(intent+" "+utterance), "")
	for _, kt := range keywordTargets {
		if strings.Contains(text, kt.keyword) {
			return kt.target
		}
	}
	return current
}

// Process advances the FSM with one (intent, utterance) observation at
// time now, applying the inactivity-reset rule first, then the
// stickiness rule, and returns the resulting state.
func (sm *StateMachine) Process(intent, utterance string, now time.Time) State {
	if !sm.cs.LastUpdateTs.IsZero() && now.Sub(sm.cs.LastUpdateTs) > sm.resetAfter {
		sm.cs = ConversationState{State: StateOpening}
		if sm.onReset != nil {
			sm.onReset()
		}
	}
	sm.cs.LastUpdateTs = now

	candidate := CandidateTarget(intent, utterance, sm.cs.State)

	if candidate == sm.cs.State {
		sm.cs.PendingState = ""
		sm.cs.PendingCount = 0
		return sm.cs.State
	}

	if candidate != sm.cs.PendingState {
		sm.cs.PendingState = candidate
		sm.cs.PendingCount = 1
	} else {
		sm.cs.PendingCount++
	}

	if sm.cs.PendingCount < ConfirmationsRequired {
		return sm.cs.State
	}

	// close bypasses the allowed-transition graph by design; every other
	// candidate must be reachable from the current state.
	if candidate == StateClose || allowedTransitions[sm.cs.State][candidate] {
		sm.cs.State = candidate
		sm.cs.PendingState = ""
		sm.cs.PendingCount = 0
	}

	return sm.cs.State
}

// State returns the current confirmed state without advancing anything.
func (sm *StateMachine) State() State {
	return sm.cs.State
}

// Snapshot returns a copy of the full ConversationState, for tests and
// telemetry.
func (sm *StateMachine) Snapshot() ConversationState {
	return sm.cs
}
