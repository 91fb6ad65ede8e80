package worker

import (
	"errors"
	"testing"
	"time"

	"github.com/lokutor-ai/callcue/pkg/bus"
)

type stubSTT struct {
	text string
	err  error
}

func (s *stubSTT) Transcribe(samples []float32) (string, error) {
	return s.text, s.err
}

type sequenceSTT struct {
	calls   int
	results []struct {
		text string
		err  error
	}
}

func (s *sequenceSTT) Transcribe(samples []float32) (string, error) {
	r := s.results[s.calls]
	s.calls++
	return r.text, r.err
}

type stubClassifier struct {
	promptID string
	score    float64
	err      error
}

func (c *stubClassifier) Classify(text string) (string, float64, error) {
	return c.promptID, c.score, c.err
}

func waitForResult(t *testing.T, eb *bus.EventBus, n int, timeout time.Duration) []WorkerResult {
	t.Helper()
	ch := make(chan WorkerResult, n)
	eb.Subscribe(TopicWorkerResult, func(e bus.Event) {
		ch <- e.Data.(WorkerResult)
	})

	var got []WorkerResult
	deadline := time.After(timeout)
	for len(got) < n {
		select {
		case r := <-ch:
			got = append(got, r)
		case <-deadline:
			t.Fatalf("timed out waiting for %d results, got %d", n, len(got))
		}
	}
	return got
}

func TestWorker_HappyPathPublishesSuccess(t *testing.T) {
	eb := bus.New(nil)
	w := New(&stubSTT{text: "tell me more"}, &stubClassifier{promptID: "p1", score: 0.9}, eb, nil)
	go w.Run()
	defer w.Close()

	w.Enqueue(TriggerEvent{EventID: "e1", EventTimestamp: time.Now()})

	results := waitForResult(t, eb, 1, time.Second)
	r := results[0]
	if r.Decision != DecisionSuccess {
		t.Fatalf("expected SUCCESS, got %s", r.Decision)
	}
	if r.EventID != r.ID {
		t.Fatalf("expected event_id == id invariant, got %q vs %q", r.EventID, r.ID)
	}
	if r.TotalLatencyMs < 0 || r.WhisperLatencyMs < 0 || r.IntentLatencyMs < 0 {
		t.Fatalf("expected all numeric fields >= 0, got %+v", r)
	}
}

func TestWorker_SuppressesLateEvents(t *testing.T) {
	eb := bus.New(nil)
	w := New(&stubSTT{text: "hi"}, &stubClassifier{promptID: "p1", score: 0.5}, eb, nil)
	go w.Run()
	defer w.Close()

	stale := time.Now().Add(-2 * time.Second)
	w.Enqueue(TriggerEvent{EventID: "e1", EventTimestamp: stale})

	results := waitForResult(t, eb, 1, time.Second)
	if results[0].Decision != DecisionSuppressedLate {
		t.Fatalf("expected SUPPRESSED_LATE, got %s", results[0].Decision)
	}
}

func TestWorker_SetMaxLatencyNarrowsLateWindow(t *testing.T) {
	eb := bus.New(nil)
	w := New(&stubSTT{text: "hi"}, &stubClassifier{promptID: "p1", score: 0.5}, eb, nil)
	w.SetMaxLatency(50 * time.Millisecond)
	go w.Run()
	defer w.Close()

	stale := time.Now().Add(-100 * time.Millisecond)
	w.Enqueue(TriggerEvent{EventID: "e1", EventTimestamp: stale})

	results := waitForResult(t, eb, 1, time.Second)
	if results[0].Decision != DecisionSuppressedLate {
		t.Fatalf("expected SUPPRESSED_LATE with a narrowed budget, got %s", results[0].Decision)
	}
}

func TestWorker_SetBackpressureThresholdOverridesDefault(t *testing.T) {
	eb := bus.New(nil)
	block := make(chan struct{})
	w := New(&blockingSTT{block: block}, &stubClassifier{promptID: "p1", score: 0.5}, eb, nil)
	w.SetBackpressureThreshold(1)
	go w.Run()
	defer w.Close()

	// First enqueue is immediately picked up by Run() and blocks on STT,
	// so all later enqueues accumulate in the pending queue.
	w.Enqueue(TriggerEvent{EventID: "blocking", EventTimestamp: time.Now()})
	time.Sleep(20 * time.Millisecond)

	for i := 0; i < 3; i++ {
		w.Enqueue(TriggerEvent{EventID: idOf(i), EventTimestamp: time.Now()})
	}
	close(block)

	results := waitForResult(t, eb, 4, time.Second)
	dropped := 0
	for _, r := range results {
		if r.Decision == DecisionSuppressedBackpressure {
			dropped++
		}
	}
	if dropped != 2 {
		t.Fatalf("expected 2 drops with threshold 1, got %d (results=%+v)", dropped, results)
	}
}

func TestWorker_SuppressesRepeat(t *testing.T) {
	eb := bus.New(nil)
	w := New(&stubSTT{text: "same thing"}, &stubClassifier{promptID: "p1", score: 0.80}, eb, nil)
	go w.Run()
	defer w.Close()

	w.Enqueue(TriggerEvent{EventID: "e1", EventTimestamp: time.Now()})
	w.Enqueue(TriggerEvent{EventID: "e2", EventTimestamp: time.Now()})

	results := waitForResult(t, eb, 2, time.Second)
	if results[0].Decision != DecisionSuccess {
		t.Fatalf("expected first result SUCCESS, got %s", results[0].Decision)
	}
	if results[1].Decision != DecisionSuppressedRepeat {
		t.Fatalf("expected second identical result SUPPRESSED_REPEAT, got %s", results[1].Decision)
	}
}

func TestWorker_SafeModeAfterTwoSTTFailures(t *testing.T) {
	eb := bus.New(nil)
	stt := &sequenceSTT{results: []struct {
		text string
		err  error
	}{
		{"", errors.New("fail1")},
		{"", errors.New("fail1-retry")},
		{"", errors.New("fail2")},
		{"", errors.New("fail2-retry")},
	}}
	w := New(stt, &stubClassifier{promptID: "p1", score: 0.5}, eb, nil)
	go w.Run()
	defer w.Close()

	w.Enqueue(TriggerEvent{EventID: "e1", EventTimestamp: time.Now()})
	w.Enqueue(TriggerEvent{EventID: "e2", EventTimestamp: time.Now()})

	results := waitForResult(t, eb, 2, time.Second)
	if results[1].Decision != DecisionSuppressedSafeMode {
		t.Fatalf("expected second consecutive STT failure to trigger safe mode, got %s", results[1].Decision)
	}
}

func TestWorker_BackpressureDropsOldestPastThreshold(t *testing.T) {
	eb := bus.New(nil)
	block := make(chan struct{})
	w := New(&blockingSTT{block: block}, &stubClassifier{promptID: "p1", score: 0.5}, eb, nil)
	go w.Run()
	defer w.Close()

	resultCh := make(chan WorkerResult, 20)
	eb.Subscribe(TopicWorkerResult, func(e bus.Event) {
		resultCh <- e.Data.(WorkerResult)
	})

	// First enqueue is immediately picked up by Run() and blocks on STT,
	// so all later enqueues accumulate in the pending queue.
	w.Enqueue(TriggerEvent{EventID: "blocking", EventTimestamp: time.Now()})
	time.Sleep(20 * time.Millisecond)

	for i := 0; i < 10; i++ {
		w.Enqueue(TriggerEvent{EventID: idOf(i), EventTimestamp: time.Now()})
	}

	var backpressureCount int
	deadline := time.After(time.Second)
	for backpressureCount < 7 {
		select {
		case r := <-resultCh:
			if r.Decision == DecisionSuppressedBackpressure {
				backpressureCount++
			}
		case <-deadline:
			t.Fatalf("expected 7 backpressure suppressions, got %d", backpressureCount)
		}
	}
	close(block)
}

type blockingSTT struct {
	block chan struct{}
	first bool
}

func (b *blockingSTT) Transcribe(samples []float32) (string, error) {
	if !b.first {
		b.first = true
		<-b.block
	}
	return "ok", nil
}

func idOf(i int) string {
	return string(rune('a' + i))
}
