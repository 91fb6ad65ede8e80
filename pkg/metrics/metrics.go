// Package metrics defines the pipeline's latency histograms, decision
// counters, and in-flight gauges as OpenTelemetry instruments, covering
// the same latencies pkg/worker.LatencyHistory tracks. Both cmd/ binaries
// build their MeterProvider with no reader or exporter attached, so the
// recorded values are not exported; the /metrics route in internal/health
// serves the Prometheus client's default registry, which does not contain
// these instruments.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/lokutor-ai/callcue"

// latencyBuckets are histogram bucket boundaries in seconds, tuned for
// sub-2s voice-pipeline stage latencies.
var latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 1.5, 2, 5}

// Metrics holds every OpenTelemetry instrument the pipeline records to.
// All fields are safe for concurrent use.
type Metrics struct {
	// SentinelFrameLatency tracks VAD-processing time per frame.
	SentinelFrameLatency metric.Float64Histogram

	// WhisperLatency tracks STT transcription latency.
	WhisperLatency metric.Float64Histogram

	// IntentLatency tracks intent-classification latency.
	IntentLatency metric.Float64Histogram

	// TotalLatency tracks end-to-end trigger-to-result latency.
	TotalLatency metric.Float64Histogram

	// BrainLatency tracks DialogueBrain.Process latency.
	BrainLatency metric.Float64Histogram

	// Decisions counts worker_result decisions. Use with
	// attribute.String("decision", ...).
	Decisions metric.Int64Counter

	// SilenceTriggers counts silence-trigger events emitted by the
	// Sentinel.
	SilenceTriggers metric.Int64Counter

	// MicDeadEvents counts mic-dead events emitted by the Sentinel.
	MicDeadEvents metric.Int64Counter

	// InFlightTriggers tracks the Worker's current pending queue depth.
	InFlightTriggers metric.Int64UpDownCounter

	// ConversationResets counts inactivity resets published by the
	// state machine.
	ConversationResets metric.Int64Counter
}

// New creates a fully initialized Metrics using the given MeterProvider.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SentinelFrameLatency, err = m.Float64Histogram("callcue.sentinel.frame.duration",
		metric.WithDescription("Time spent processing one audio frame through VAD."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.WhisperLatency, err = m.Float64Histogram("callcue.worker.whisper.duration",
		metric.WithDescription("STT transcription latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.IntentLatency, err = m.Float64Histogram("callcue.worker.intent.duration",
		metric.WithDescription("Intent classification latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TotalLatency, err = m.Float64Histogram("callcue.worker.total.duration",
		metric.WithDescription("End-to-end trigger-to-result latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BrainLatency, err = m.Float64Histogram("callcue.brain.duration",
		metric.WithDescription("DialogueBrain.Process latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Decisions, err = m.Int64Counter("callcue.worker.decisions",
		metric.WithDescription("Total worker_result decisions by decision class."),
	); err != nil {
		return nil, err
	}
	if met.SilenceTriggers, err = m.Int64Counter("callcue.sentinel.silence_triggers",
		metric.WithDescription("Total silence-trigger events emitted."),
	); err != nil {
		return nil, err
	}
	if met.MicDeadEvents, err = m.Int64Counter("callcue.sentinel.mic_dead",
		metric.WithDescription("Total mic-dead events emitted."),
	); err != nil {
		return nil, err
	}
	if met.InFlightTriggers, err = m.Int64UpDownCounter("callcue.worker.in_flight",
		metric.WithDescription("Current depth of the worker's pending trigger queue."),
	); err != nil {
		return nil, err
	}
	if met.ConversationResets, err = m.Int64Counter("callcue.dialogue.resets",
		metric.WithDescription("Total inactivity resets of the conversation state machine."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordDecision increments the decision counter for the given class.
func (m *Metrics) RecordDecision(ctx context.Context, decision string) {
	m.Decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
}
