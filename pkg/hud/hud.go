// Package hud renders worker results and dialogue suggestions as
// human-readable lines, subscribing to the bus topics rather than being
// called directly. It is the pipeline's one synchronous sink: a line is
// printed before the subscriber handler returns, so its output ordering
// tracks the bus's own delivery order for that subscriber.
package hud

import (
	"fmt"
	"io"
	"os"

	"github.com/lokutor-ai/callcue/pkg/bus"
	"github.com/lokutor-ai/callcue/pkg/dialogue"
	"github.com/lokutor-ai/callcue/pkg/worker"
)

// Sink writes formatted pipeline events to an io.Writer, defaulting to
// stdout. It holds no state of its own beyond the writer.
type Sink struct {
	out io.Writer
}

// New builds a Sink writing to stdout.
func New() *Sink {
	return &Sink{out: os.Stdout}
}

// NewWithWriter builds a Sink writing to an arbitrary writer, for tests
// and the dry-run harness's captured output.
func NewWithWriter(w io.Writer) *Sink {
	return &Sink{out: w}
}

// Attach subscribes the sink to worker_result, suggestion_event, and
// reset_event.
func (s *Sink) Attach(eventBus *bus.EventBus) {
	eventBus.Subscribe(worker.TopicWorkerResult, func(evt bus.Event) {
		result, ok := evt.Data.(worker.WorkerResult)
		if !ok {
			return
		}
		fmt.Fprintln(s.out, FormatResult(result))
	})

	eventBus.Subscribe(dialogue.TopicSuggestion, func(evt bus.Event) {
		suggestion, ok := evt.Data.(dialogue.SuggestionEvent)
		if !ok {
			return
		}
		fmt.Fprintln(s.out, FormatSuggestion(suggestion))
	})

	eventBus.Subscribe(dialogue.TopicReset, func(bus.Event) {
		fmt.Fprintln(s.out, "[RESET] conversation state reset after inactivity")
	})
}

// FormatResult renders one worker_result as the HUD line shared by
// callcue-agent and callcue-dryrun.
func FormatResult(r worker.WorkerResult) string {
	return fmt.Sprintf("[P] id=%s decision=%s text=%q prompt=%s score=%.3f transport=%.1fms whisper=%.1fms intent=%.1fms total_age=%.1fms",
		r.ID, r.Decision, r.Text, r.PromptID, r.Score, r.TransportLatencyMs, r.WhisperLatencyMs, r.IntentLatencyMs, r.TotalLatencyMs)
}

// FormatSuggestion renders one suggestion_event as a HUD line.
func FormatSuggestion(s dialogue.SuggestionEvent) string {
	return fmt.Sprintf("[SUGGEST] state=%s suggestion=%q cache_hit=%v", s.State, s.Suggestion, s.CacheHit)
}
