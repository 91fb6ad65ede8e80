package dialogue

import (
	"testing"
	"time"
)

func TestRollingMemory_TracksLastFiveOfEach(t *testing.T) {
	m := NewRollingMemory(time.Minute)
	now := time.Now()
	for i := 0; i < 8; i++ {
		m.RecordIntent("intent", now)
		m.RecordSuggestion("suggestion", now)
	}
	if len(m.RecentIntents(now)) != RollingMemoryDepth {
		t.Fatalf("expected %d intents retained, got %d", RollingMemoryDepth, len(m.RecentIntents(now)))
	}
	if len(m.RecentSuggestions(now)) != RollingMemoryDepth {
		t.Fatalf("expected %d suggestions retained, got %d", RollingMemoryDepth, len(m.RecentSuggestions(now)))
	}
}

func TestRollingMemory_ClearsAfterInactivity(t *testing.T) {
	m := NewRollingMemory(50 * time.Millisecond)
	now := time.Now()
	m.RecordIntent("probe", now)

	later := now.Add(time.Second)
	if got := m.RecentIntents(later); len(got) != 0 {
		t.Fatalf("expected memory cleared after inactivity window, got %v", got)
	}
}

func TestRollingMemory_ContainsSuggestion(t *testing.T) {
	m := NewRollingMemory(time.Minute)
	now := time.Now()
	m.RecordSuggestion("ask about timeline", now)
	if !m.ContainsSuggestion("ask about timeline", now) {
		t.Fatal("expected recorded suggestion to be found")
	}
	if m.ContainsSuggestion("unrelated", now) {
		t.Fatal("expected unrecorded suggestion to not be found")
	}
}
