package dialogue

import "math/rand"

// SuggestionTable is a static {state → candidate suggestions} table.
type SuggestionTable map[State][]string

// DefaultSuggestionTable returns the built-in per-state suggestion rule
// table used by the production pipeline.
func DefaultSuggestionTable() SuggestionTable {
	return SuggestionTable{
		StateOpening: {
			"Thank them for their time and confirm who else is involved in the decision.",
			"Ask an open question about what prompted the call today.",
			"Mirror their last phrase to build rapport before moving on.",
		},
		StateDiscovery: {
			"Ask what their current process looks like end to end.",
			"Probe for the cost of doing nothing about this problem.",
			"Ask who else is affected by this pain point.",
			"Clarify their timeline for making a decision.",
		},
		StatePain: {
			"Quantify the pain in hours or dollars lost per month.",
			"Ask how long this problem has been going on.",
			"Confirm this is a top-three priority for them this quarter.",
		},
		StateObjection: {
			"Acknowledge the concern before countering it.",
			"Ask what would need to be true for the price to make sense.",
			"Offer a smaller pilot scope to de-risk the timeline concern.",
			"Ask if this is the only blocker to moving forward.",
		},
		StateClose: {
			"Propose a specific next step with a date attached.",
			"Summarize the agreed value and ask for a verbal commitment.",
			"Ask who needs to sign off before paperwork can start.",
		},
	}
}

// fallbackSuggestion is returned whenever the suggestion engine cannot
// safely produce a candidate; the DialogueBrain never propagates an
// error up to its caller.
const fallbackSuggestion = "Let me think..."

// SuggestionEngine selects a non-repeating suggestion per conversation
// state, walking a per-state cursor through DefaultSuggestionTable (or an
// injected table) and falling back to a random pick when every candidate
// is already in recent memory.
type SuggestionEngine struct {
	table  SuggestionTable
	cursor map[State]int
}

// NewSuggestionEngine builds a SuggestionEngine over the given table.
func NewSuggestionEngine(table SuggestionTable) *SuggestionEngine {
	return &SuggestionEngine{
		table:  table,
		cursor: make(map[State]int),
	}
}

// Select returns the next non-repeating suggestion for state, given the
// recent suggestion history in memory. It never returns an error: if the
// table has no entries for state, it returns fallbackSuggestion.
func (e *SuggestionEngine) Select(state State, recentSuggestions []string) string {
	candidates := e.table[state]
	if len(candidates) == 0 {
		return fallbackSuggestion
	}

	recent := make(map[string]bool, len(recentSuggestions))
	for _, s := range recentSuggestions {
		recent[s] = true
	}

	start := e.cursor[state]
	for i := 0; i < len(candidates); i++ {
		idx := (start + i) % len(candidates)
		cand := candidates[idx]
		if !recent[cand] {
			e.cursor[state] = (idx + 1) % len(candidates)
			return cand
		}
	}

	// Every candidate is in recent memory: fall back to a random pick
	// rather than stall on an empty suggestion.
	return candidates[rand.Intn(len(candidates))]
}
