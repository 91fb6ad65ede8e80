package metrics

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestNew_RegistersAllInstrumentsWithoutError(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	m, err := New(mp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	m.SentinelFrameLatency.Record(ctx, 0.01)
	m.WhisperLatency.Record(ctx, 0.4)
	m.IntentLatency.Record(ctx, 0.05)
	m.TotalLatency.Record(ctx, 0.6)
	m.BrainLatency.Record(ctx, 0.02)
	m.SilenceTriggers.Add(ctx, 1)
	m.MicDeadEvents.Add(ctx, 1)
	m.InFlightTriggers.Add(ctx, 1)
	m.InFlightTriggers.Add(ctx, -1)
	m.ConversationResets.Add(ctx, 1)
	m.RecordDecision(ctx, "success")
}
