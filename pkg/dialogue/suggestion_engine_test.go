package dialogue

import "testing"

func TestSuggestionEngine_FiveConsecutiveAreDistinct(t *testing.T) {
	table := SuggestionTable{
		StateDiscovery: {"a", "b", "c", "d", "e"},
	}
	e := NewSuggestionEngine(table)

	var recent []string
	seen := make(map[string]int)
	for i := 0; i < 5; i++ {
		s := e.Select(StateDiscovery, recent)
		seen[s]++
		recent = append(recent, s)
		if len(recent) > RollingMemoryDepth {
			recent = recent[len(recent)-RollingMemoryDepth:]
		}
	}
	for s, count := range seen {
		if count != 1 {
			t.Fatalf("expected each of 5 consecutive suggestions distinct, %q appeared %d times", s, count)
		}
	}
}

func TestSuggestionEngine_FallsBackWhenAllFiltered(t *testing.T) {
	table := SuggestionTable{
		StateOpening: {"only-one"},
	}
	e := NewSuggestionEngine(table)
	recent := []string{"only-one"}

	got := e.Select(StateOpening, recent)
	if got != "only-one" {
		t.Fatalf("expected fallback to still return the sole candidate, got %q", got)
	}
}

func TestSuggestionEngine_UnknownStateReturnsFallback(t *testing.T) {
	e := NewSuggestionEngine(SuggestionTable{})
	got := e.Select(StateClose, nil)
	if got != fallbackSuggestion {
		t.Fatalf("expected fallback suggestion for unknown state, got %q", got)
	}
}
