// Package worker consumes silence-trigger events, runs STT and intent
// classification against pre-computed prompt embeddings, and applies a
// latency governor plus repeat and back-pressure suppression before
// publishing a worker_result.
package worker

import "time"

// Decision is the Governor's final verdict for one worker result.
type Decision string

const (
	DecisionSuccess                Decision = "SUCCESS"
	DecisionSuppressedLate         Decision = "SUPPRESSED_LATE"
	DecisionSuppressedRepeat       Decision = "SUPPRESSED_REPEAT"
	DecisionSuppressedBackpressure Decision = "SUPPRESSED_BACKPRESSURE"
	DecisionSuppressedSafeMode     Decision = "SUPPRESSED_SAFE_MODE"
)

// TopicWorkerResult is the bus topic the Worker publishes WorkerResult
// values to.
const TopicWorkerResult = "worker_result"

// STTEngine transcribes a raw audio snapshot to text.
type STTEngine interface {
	Transcribe(samples []float32) (string, error)
}

// IntentClassifier scores transcribed text against a fixed set of
// pre-computed prompt embeddings and returns the best match.
type IntentClassifier interface {
	Classify(text string) (promptID string, score float64, err error)
}

// TriggerEvent is the Worker's own view of sentinel.SilenceTriggerEvent,
// kept independent of the sentinel package so the Worker never imports
// Sentinel's internal state.
type TriggerEvent struct {
	EventID           string
	EventTimestamp    time.Time
	SentinelTimestamp float64
	AudioSnapshot     []float32
}

// WorkerResult is the schema-validated record published to worker_result.
// All 14 fields are always populated, including on suppressed decisions,
// so downstream schema validation never has to special-case a decision.
type WorkerResult struct {
	Type               string
	ID                 string
	EventID            string
	EventTimestamp     time.Time
	SentinelTimestamp  float64
	WorkerStartTs      time.Time
	Text               string
	PromptID           string
	Score              float64
	WhisperLatencyMs   float64
	IntentLatencyMs    float64
	TransportLatencyMs float64
	TotalLatencyMs     float64
	Decision           Decision
}

// LatencyRecord is one entry in the bounded latency ring.
type LatencyRecord struct {
	WhisperMs float64
	IntentMs  float64
	TotalMs   float64
	Decision  Decision
}
