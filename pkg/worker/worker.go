package worker

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lokutor-ai/callcue/pkg/bus"
)

// BackpressureThreshold is the default pending-queue depth (§6) past
// which the oldest queued trigger is dropped and suppressed rather than
// processed.
const BackpressureThreshold = 3

// sttRetryDelay is the short pause before retrying a failed transcription
// once, per §4.6.
const sttRetryDelay = 50 * time.Millisecond

// Worker consumes silence-trigger events one at a time, in order,
// applying back-pressure, STT, intent classification, and the Governor
// before publishing a worker_result. It owns its pending queue,
// RepeatFilter, LatencyHistory, and safe-mode flag exclusively.
type Worker struct {
	stt        STTEngine
	classifier IntentClassifier
	bus        *bus.EventBus
	log        *logrus.Logger

	backpressureThreshold int

	mu      sync.Mutex
	cond    *sync.Cond
	pending []TriggerEvent
	closed  bool

	repeatFilter   *RepeatFilter
	latencyHistory *LatencyHistory
	governor       *Governor

	safeMode     bool
	sttFailCount int
}

// New builds a Worker ready to have triggers delivered via Enqueue, with
// the default back-pressure threshold. Callers wiring a configured
// threshold should follow with SetBackpressureThreshold before Run.
func New(stt STTEngine, classifier IntentClassifier, eventBus *bus.EventBus, log *logrus.Logger) *Worker {
	if log == nil {
		log = logrus.New()
	}
	w := &Worker{
		stt:                   stt,
		classifier:            classifier,
		bus:                   eventBus,
		log:                   log,
		backpressureThreshold: BackpressureThreshold,
		repeatFilter:          NewRepeatFilter(),
		latencyHistory:        NewLatencyHistory(),
	}
	w.governor = NewGovernor(w.repeatFilter)
	w.cond = sync.NewCond(&w.mu)
	return w
}

// SetBackpressureThreshold overrides the default pending-queue depth.
// Must be called before Run starts draining the queue.
func (w *Worker) SetBackpressureThreshold(threshold int) {
	w.mu.Lock()
	w.backpressureThreshold = threshold
	w.mu.Unlock()
}

// SetMaxLatency overrides the Governor's default age budget for
// SUPPRESSED_LATE decisions. Must be called before Run starts draining
// the queue.
func (w *Worker) SetMaxLatency(d time.Duration) {
	w.governor.SetMaxLatency(d)
}

// Enqueue applies the §4.6 back-pressure policy: if appending evt pushes
// the pending queue past backpressureThreshold, the oldest queued
// triggers are evicted (oldest first) and a SUPPRESSED_BACKPRESSURE
// result is published for each, before the new trigger is accepted.
func (w *Worker) Enqueue(evt TriggerEvent) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending = append(w.pending, evt)

	var dropped []TriggerEvent
	for len(w.pending) > w.backpressureThreshold {
		dropped = append(dropped, w.pending[0])
		w.pending = w.pending[1:]
	}
	w.cond.Signal()
	w.mu.Unlock()

	for _, d := range dropped {
		w.publishBackpressureResult(d)
	}
}

// Close stops the Worker's Run loop once its pending queue drains.
func (w *Worker) Close() {
	w.mu.Lock()
	w.closed = true
	w.cond.Broadcast()
	w.mu.Unlock()
}

// Run blocks, processing queued triggers one at a time in FIFO order,
// until Close is called and the queue is empty. It is the sole owner of
// repeatFilter, latencyHistory, and safeMode — nothing outside this
// method touches them.
func (w *Worker) Run() {
	for {
		evt, ok := w.next()
		if !ok {
			return
		}
		w.process(evt)
	}
}

func (w *Worker) next() (TriggerEvent, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.pending) == 0 && !w.closed {
		w.cond.Wait()
	}
	if len(w.pending) == 0 {
		return TriggerEvent{}, false
	}
	evt := w.pending[0]
	w.pending = w.pending[1:]
	return evt, true
}

func (w *Worker) process(evt TriggerEvent) {
	workerStart := time.Now()

	text, whisperMs, failed := w.transcribeWithRetry(evt.AudioSnapshot)
	if failed {
		w.sttFailCount++
		if w.sttFailCount >= 2 {
			w.safeMode = true
			w.log.WithField("event_id", evt.EventID).Warn("worker: repeated STT failure, entering safe mode")
		}
	} else {
		w.sttFailCount = 0
		w.safeMode = false
	}

	intentStart := time.Now()
	var promptID string
	var score float64
	if !failed {
		var err error
		promptID, score, err = w.classifier.Classify(text)
		if err != nil {
			w.log.WithError(err).WithField("event_id", evt.EventID).Warn("worker: intent classification failed")
		}
	}
	intentMs := float64(time.Since(intentStart).Microseconds()) / 1000.0

	now := time.Now()
	decision := w.governor.Decide(now, evt.EventTimestamp, w.safeMode, promptID, score)
	w.repeatFilter.Record(promptID, score)

	totalMs := float64(now.Sub(evt.EventTimestamp).Microseconds()) / 1000.0
	transportMs := float64(workerStart.Sub(evt.EventTimestamp).Microseconds()) / 1000.0

	w.latencyHistory.Record(LatencyRecord{
		WhisperMs: whisperMs,
		IntentMs:  intentMs,
		TotalMs:   totalMs,
		Decision:  decision,
	})

	result := WorkerResult{
		Type:               "WORKER_RESULT",
		ID:                 evt.EventID,
		EventID:            evt.EventID,
		EventTimestamp:     evt.EventTimestamp,
		SentinelTimestamp:  evt.SentinelTimestamp,
		WorkerStartTs:      workerStart,
		Text:               text,
		PromptID:           promptID,
		Score:              score,
		WhisperLatencyMs:   whisperMs,
		IntentLatencyMs:    intentMs,
		TransportLatencyMs: transportMs,
		TotalLatencyMs:     totalMs,
		Decision:           decision,
	}
	w.bus.Publish(TopicWorkerResult, result)
}

// transcribeWithRetry calls the STT engine, retrying once after a short
// delay on failure. Returns the transcript (empty on failure), the
// whisper latency in milliseconds, and whether both attempts failed.
func (w *Worker) transcribeWithRetry(samples []float32) (text string, whisperMs float64, failed bool) {
	start := time.Now()
	text, err := w.stt.Transcribe(samples)
	if err == nil {
		return text, msSince(start), false
	}

	w.log.WithError(err).Warn("worker: STT failed, retrying once")
	time.Sleep(sttRetryDelay)

	text, err = w.stt.Transcribe(samples)
	elapsed := msSince(start)
	if err != nil {
		w.log.WithError(err).Warn("worker: STT failed again, marking safe mode")
		return "", elapsed, true
	}
	return text, elapsed, false
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func (w *Worker) publishBackpressureResult(evt TriggerEvent) {
	now := time.Now()
	result := WorkerResult{
		Type:               "WORKER_RESULT",
		ID:                 evt.EventID,
		EventID:            evt.EventID,
		EventTimestamp:     evt.EventTimestamp,
		SentinelTimestamp:  evt.SentinelTimestamp,
		WorkerStartTs:      now,
		Decision:           DecisionSuppressedBackpressure,
		TotalLatencyMs:     float64(now.Sub(evt.EventTimestamp).Microseconds()) / 1000.0,
	}
	w.latencyHistory.Record(LatencyRecord{TotalMs: result.TotalLatencyMs, Decision: DecisionSuppressedBackpressure})
	w.bus.Publish(TopicWorkerResult, result)
}

// NewTriggerEventID is a small convenience for callers (e.g. the Sentinel
// adapter) constructing TriggerEvent values outside of tests.
func NewTriggerEventID() string {
	return uuid.New().String()
}
