package dialogue

import "time"

// RollingMemoryDepth is M from §4.8: the last M intents and last M
// suggestions are retained.
const RollingMemoryDepth = 5

// RollingMemory holds the last RollingMemoryDepth intents and
// suggestions seen, clearing both whenever it is accessed after more
// than resetAfter has elapsed since the previous access.
type RollingMemory struct {
	resetAfter time.Duration
	lastAccess time.Time

	intents     []string
	suggestions []string
}

// NewRollingMemory builds an empty RollingMemory with the given
// inactivity reset duration.
func NewRollingMemory(resetAfter time.Duration) *RollingMemory {
	return &RollingMemory{resetAfter: resetAfter}
}

// touch applies the inactivity-reset rule before any read or write.
func (m *RollingMemory) touch(now time.Time) {
	if !m.lastAccess.IsZero() && now.Sub(m.lastAccess) > m.resetAfter {
		m.intents = nil
		m.suggestions = nil
	}
	m.lastAccess = now
}

// RecordIntent appends an intent to the rolling history, evicting the
// oldest once over RollingMemoryDepth.
func (m *RollingMemory) RecordIntent(intent string, now time.Time) {
	m.touch(now)
	m.intents = append(m.intents, intent)
	if len(m.intents) > RollingMemoryDepth {
		m.intents = m.intents[len(m.intents)-RollingMemoryDepth:]
	}
}

// RecordSuggestion appends a suggestion to the rolling history, evicting
// the oldest once over RollingMemoryDepth.
func (m *RollingMemory) RecordSuggestion(suggestion string, now time.Time) {
	m.touch(now)
	m.suggestions = append(m.suggestions, suggestion)
	if len(m.suggestions) > RollingMemoryDepth {
		m.suggestions = m.suggestions[len(m.suggestions)-RollingMemoryDepth:]
	}
}

// RecentIntents returns the current intent history after applying the
// inactivity check.
func (m *RollingMemory) RecentIntents(now time.Time) []string {
	m.touch(now)
	out := make([]string, len(m.intents))
	copy(out, m.intents)
	return out
}

// RecentSuggestions returns the current suggestion history after applying
// the inactivity check.
func (m *RollingMemory) RecentSuggestions(now time.Time) []string {
	m.touch(now)
	out := make([]string, len(m.suggestions))
	copy(out, m.suggestions)
	return out
}

// ContainsSuggestion reports whether suggestion is present in the current
// suggestion history, applying the inactivity check first.
func (m *RollingMemory) ContainsSuggestion(suggestion string, now time.Time) bool {
	m.touch(now)
	for _, s := range m.suggestions {
		if s == suggestion {
			return true
		}
	}
	return false
}
