package dialogue

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/lokutor-ai/callcue/pkg/bus"
)

// TopicSuggestion is the bus topic the DialogueBrain publishes
// SuggestionEvent values to.
const TopicSuggestion = "suggestion_event"

// TopicReset is the bus topic published whenever the state machine
// performs an inactivity reset.
const TopicReset = "reset_event"

// cacheSize bounds both LRU caches at 200 entries (§4.9). A generous TTL
// is used rather than no expiry, mirroring mmp-vice's expirable.LRU usage
// for session-scoped caches -- entries naturally age out across a long
// idle call rather than living forever.
const cacheSize = 200
const cacheTTL = 30 * time.Minute

// ProdResetSeconds and DebugResetSeconds are the two supported inactivity
// windows (§6); debug_mode selects the shorter one.
const ProdResetSeconds = 90 * time.Second
const DebugResetSeconds = 10 * time.Second

// SuggestionEvent is published once per Process call.
type SuggestionEvent struct {
	State      State
	Suggestion string
	CacheHit   bool
	BrainMs    float64
}

// DialogueBrain orchestrates cache lookups, the sticky StateMachine, the
// RollingMemory, and the SuggestionEngine behind a single mutex, since it
// may be invoked concurrently if multiple worker threads were ever wired
// up (§4.9, §Shared resources).
type DialogueBrain struct {
	mu sync.Mutex

	sm     *StateMachine
	memory *RollingMemory
	engine *SuggestionEngine

	intentCache     *expirable.LRU[string, State]
	suggestionCache *expirable.LRU[State, string]

	eventBus *bus.EventBus
	log      *logrus.Logger
}

// New builds a DialogueBrain. debugMode selects the 10s inactivity
// window instead of the 90s production default.
func New(eventBus *bus.EventBus, log *logrus.Logger, debugMode bool) *DialogueBrain {
	if log == nil {
		log = logrus.New()
	}
	resetAfter := ProdResetSeconds
	if debugMode {
		resetAfter = DebugResetSeconds
	}

	b := &DialogueBrain{
		eventBus:        eventBus,
		log:             log,
		memory:          NewRollingMemory(resetAfter),
		engine:          NewSuggestionEngine(DefaultSuggestionTable()),
		intentCache:     expirable.NewLRU[string, State](cacheSize, nil, cacheTTL),
		suggestionCache: expirable.NewLRU[State, string](cacheSize, nil, cacheTTL),
	}
	b.sm = NewStateMachine(resetAfter, func() {
		b.eventBus.Publish(TopicReset, struct{}{})
	})
	return b
}

// Process consumes one (intent, utterance) observation and publishes a
// SuggestionEvent. It never panics to its caller: a failure anywhere in
// the pipeline is recovered and surfaced as the canonical fallback
// suggestion.
func (b *DialogueBrain) Process(intent, utterance string, now time.Time) (evt SuggestionEvent) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("panic", r).Error("dialogue: brain panicked, returning fallback suggestion")
			evt = SuggestionEvent{
				State:      StateOpening,
				Suggestion: fallbackSuggestion,
				CacheHit:   false,
				BrainMs:    msSince(start),
			}
		}
		b.eventBus.Publish(TopicSuggestion, evt)
	}()

	b.mu.Lock()
	defer b.mu.Unlock()

	state, intentHit := b.intentCache.Get(intent)
	if !intentHit {
		state = b.sm.Process(intent, utterance, now)
		b.intentCache.Add(intent, state)
	}

	var suggestion string
	cacheHit := intentHit
	if cached, hit := b.suggestionCache.Get(state); hit && !b.memory.ContainsSuggestion(cached, now) {
		suggestion = cached
		cacheHit = true
	} else {
		suggestion = b.engine.Select(state, b.memory.RecentSuggestions(now))
		b.suggestionCache.Add(state, suggestion)
	}

	b.memory.RecordIntent(intent, now)
	b.memory.RecordSuggestion(suggestion, now)

	return SuggestionEvent{
		State:      state,
		Suggestion: suggestion,
		CacheHit:   cacheHit,
		BrainMs:    msSince(start),
	}
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
