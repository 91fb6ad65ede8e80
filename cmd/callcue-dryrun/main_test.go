package main

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/lokutor-ai/callcue/pkg/worker"
)

func TestSyntheticSTT_CyclesThroughTranscripts(t *testing.T) {
	stt := &syntheticSTT{texts: []string{"a", "b", "c"}}
	var got []string
	for i := 0; i < 7; i++ {
		text, err := stt.Transcribe(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, text)
	}
	want := []string{"a", "b", "c", "a", "b", "c", "a"}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("index %d: got %q, want %q", i, got[i], w)
		}
	}
}

func TestDecisionTally_CountsByDecision(t *testing.T) {
	tally := &decisionTally{}
	tally.record(worker.DecisionSuccess)
	tally.record(worker.DecisionSuccess)
	tally.record(worker.DecisionSuppressedLate)
	tally.micDead = 1

	summary := tally.summary()
	if summary == "" {
		t.Fatal("expected non-empty summary")
	}
	if tally.counts[worker.DecisionSuccess] != 2 {
		t.Fatalf("expected 2 successes, got %d", tally.counts[worker.DecisionSuccess])
	}
	if tally.counts[worker.DecisionSuppressedLate] != 1 {
		t.Fatalf("expected 1 suppressed_late, got %d", tally.counts[worker.DecisionSuppressedLate])
	}
}

func TestWarningCounter_TalliesWarnAndAbove(t *testing.T) {
	h := &warningCounter{}
	log := logrus.New()
	log.AddHook(h)
	log.SetOutput(discardWriter{})

	log.Info("not counted")
	log.Warn("counted")
	log.Error("also counted")

	if h.count() != 2 {
		t.Fatalf("expected 2 warning-or-above entries, got %d", h.count())
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
