package dialogue

import (
	"testing"
	"time"
)

func TestStateMachine_RequiresTwoConsecutiveConfirmations(t *testing.T) {
	sm := NewStateMachine(time.Minute, nil)
	now := time.Now()

	if s := sm.Process("probe", "tell me about your process", now); s != StateOpening {
		t.Fatalf("expected state to remain opening after one probe, got %s", s)
	}
	now = now.Add(time.Second)
	if s := sm.Process("probe", "what do you use today", now); s != StateDiscovery {
		t.Fatalf("expected discovery after two consecutive probes, got %s", s)
	}
}

func TestStateMachine_DifferentCandidateResetsPendingCounter(t *testing.T) {
	sm := NewStateMachine(time.Minute, nil)
	now := time.Now()

	sm.Process("probe", "what's your process", now)
	now = now.Add(time.Second)
	sm.Process("pain_signal", "this is costing us a lot", now) // different candidate resets pending
	now = now.Add(time.Second)
	if s := sm.Process("probe", "walk me through it", now); s != StateOpening {
		t.Fatalf("expected state to stay opening, a single interleaved pain_signal must not move to pain, got %s", s)
	}
}

func TestStateMachine_CloseBypassesAllowedTransitionGraph(t *testing.T) {
	sm := NewStateMachine(time.Minute, nil)
	now := time.Now()

	// From opening, close is not in the allowed-transition set, but the
	// explicit bypass still permits it once confirmed twice.
	sm.Process("ready", "let's do this", now)
	now = now.Add(time.Second)
	if s := sm.Process("ready", "sign me up", now); s != StateClose {
		t.Fatalf("expected close to bypass the allowed-transition graph after two confirmations, got %s", s)
	}
}

func TestStateMachine_ClosingBuyIndicatorMapsToClose(t *testing.T) {
	sm := NewStateMachine(time.Minute, nil)
	now := time.Now()

	sm.Process("closing_buy_indicator", "so what's the next step", now)
	now = now.Add(time.Second)
	if s := sm.Process("closing_buy_indicator", "let's get this signed", now); s != StateClose {
		t.Fatalf("expected two closing_buy_indicator intents to reach close, got %s", s)
	}
}

func TestStateMachine_InactivityResetReturnsToOpening(t *testing.T) {
	resetCalled := false
	sm := NewStateMachine(200*time.Millisecond, func() { resetCalled = true })
	now := time.Now()

	sm.Process("probe", "tell me more", now)
	now = now.Add(10 * time.Millisecond)
	sm.Process("probe", "and then?", now)
	if sm.State() != StateDiscovery {
		t.Fatalf("expected discovery before reset, got %s", sm.State())
	}

	now = now.Add(time.Second) // far past resetAfter
	sm.Process("rapport", "hi again", now)
	if sm.State() != StateOpening {
		t.Fatalf("expected state to return to opening after inactivity reset, got %s", sm.State())
	}
	if !resetCalled {
		t.Fatal("expected onReset callback to fire on inactivity reset")
	}
}
