package hud

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/lokutor-ai/callcue/pkg/bus"
	"github.com/lokutor-ai/callcue/pkg/dialogue"
	"github.com/lokutor-ai/callcue/pkg/worker"
)

func TestSink_FormatsWorkerResult(t *testing.T) {
	var buf bytes.Buffer
	s := NewWithWriter(&buf)
	eb := bus.New(nil)
	s.Attach(eb)

	eb.Publish(worker.TopicWorkerResult, worker.WorkerResult{
		ID:       "e1",
		Decision: worker.DecisionSuccess,
		Text:     "tell me more",
		PromptID: "p1",
		Score:    0.9,
	})

	waitFor(t, &buf, "id=e1")
	line := buf.String()
	if !strings.Contains(line, `text="tell me more"`) {
		t.Fatalf("expected quoted text, got %q", line)
	}
	if !strings.Contains(line, "decision=SUCCESS") {
		t.Fatalf("expected decision in output, got %q", line)
	}
}

func TestSink_FormatsSuggestionAndReset(t *testing.T) {
	var buf bytes.Buffer
	s := NewWithWriter(&buf)
	eb := bus.New(nil)
	s.Attach(eb)

	eb.Publish(dialogue.TopicSuggestion, dialogue.SuggestionEvent{
		State:      dialogue.StateObjection,
		Suggestion: "Let's talk timeline.",
		CacheHit:   true,
	})
	waitFor(t, &buf, "SUGGEST")

	eb.Publish(dialogue.TopicReset, struct{}{})
	waitFor(t, &buf, "RESET")
}

func waitFor(t *testing.T, buf *bytes.Buffer, substr string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), substr) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q in output, got %q", substr, buf.String())
}
