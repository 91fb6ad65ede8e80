package dialogue

import (
	"testing"
	"time"

	"github.com/lokutor-ai/callcue/pkg/bus"
)

func TestDialogueBrain_HappyPathPublishesSuggestionEvent(t *testing.T) {
	eb := bus.New(nil)
	b := New(eb, nil, false)

	ch := make(chan SuggestionEvent, 1)
	eb.Subscribe(TopicSuggestion, func(e bus.Event) {
		ch <- e.Data.(SuggestionEvent)
	})

	now := time.Now()
	b.Process("stall_objection", "the timeline is too tight for us", now)
	now = now.Add(time.Second)
	evt := b.Process("stall_objection", "pricing also feels high", now)

	select {
	case published := <-ch:
		if published.Suggestion == "" {
			t.Fatal("expected a non-empty suggestion")
		}
	case <-time.After(time.Second):
		t.Fatal("expected a suggestion_event to be published")
	}

	if evt.State != StateObjection {
		t.Fatalf("expected objection state after two stall_objection inputs, got %s", evt.State)
	}
}

func TestDialogueBrain_ReusesCachedSuggestionWhenNotInMemory(t *testing.T) {
	eb := bus.New(nil)
	b := New(eb, nil, false)
	now := time.Now()

	first := b.Process("rapport", "hello there", now)
	// Past the inactivity window the rolling memory is cleared on its next
	// access, so the suggestion cached for this state is no longer in
	// memory and is reused.
	now = now.Add(ProdResetSeconds + time.Second)
	second := b.Process("rapport", "hello again", now)

	if first.Suggestion == "" || second.Suggestion == "" {
		t.Fatal("expected non-empty suggestions from both calls")
	}
	if second.Suggestion != first.Suggestion {
		t.Fatalf("expected cached suggestion %q to be reused, got %q", first.Suggestion, second.Suggestion)
	}
	if !second.CacheHit {
		t.Fatal("expected the reused suggestion to be reported as a cache hit")
	}
}

func TestDialogueBrain_NeverPanicsToCaller(t *testing.T) {
	eb := bus.New(nil)
	b := New(eb, nil, true)
	now := time.Now()

	evt := b.Process("", "", now)
	if evt.Suggestion == "" {
		t.Fatal("expected a non-empty suggestion even for an empty intent/utterance")
	}
}
