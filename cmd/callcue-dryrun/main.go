// Command callcue-dryrun drives the pipeline with a synthetic audio
// source and a canned transcript cycle instead of a live microphone and
// STT backend, for soak testing and CI smoke checks. It prints a summary
// of decision counts and warnings observed during the run and exits 0
// (READY) or, when --fail-on-warning is set and any warning-level log
// line was observed, 1 (NOT READY).
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/lokutor-ai/callcue/internal/health"
	"github.com/lokutor-ai/callcue/pkg/audioio"
	"github.com/lokutor-ai/callcue/pkg/bus"
	"github.com/lokutor-ai/callcue/pkg/config"
	"github.com/lokutor-ai/callcue/pkg/dialogue"
	"github.com/lokutor-ai/callcue/pkg/hud"
	"github.com/lokutor-ai/callcue/pkg/metrics"
	"github.com/lokutor-ai/callcue/pkg/providers/httpembed"
	"github.com/lokutor-ai/callcue/pkg/providers/promptintent"
	"github.com/lokutor-ai/callcue/pkg/providers/rmsvad"
	"github.com/lokutor-ai/callcue/pkg/sentinel"
	"github.com/lokutor-ai/callcue/pkg/telemetry"
	"github.com/lokutor-ai/callcue/pkg/worker"
)

// syntheticTranscripts cycles through canned utterances spanning every
// intent bucket so a soak run exercises every StateMachine transition,
// not just the default "opening" path.
var syntheticTranscripts = []string{
	"Hi there, thanks for taking the call.",
	"Can you walk me through how this fits our workflow?",
	"Honestly the current process is causing us a lot of pain.",
	"The price on this feels steep for where we are right now.",
	"The timeline you quoted is tighter than we can manage.",
	"Okay, I think we're ready to move forward.",
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the pipeline config file")
	promptsPath := flag.String("prompts", "prompts.json", "path to the prompt table")
	embeddingsPath := flag.String("embeddings", "embeddings.npy", "path to the pre-computed prompt embedding matrix")
	duration := flag.Duration("duration", 20*time.Second, "how long to drive the synthetic source")
	listenAddr := flag.String("listen", "", "optional address to serve /healthz, /readyz, /metrics on during the run")
	failOnWarning := flag.Bool("fail-on-warning", false, "exit 1 (NOT READY) if any warning-level log line was observed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "callcue-dryrun: loading config: %v, using defaults\n", err)
		cfg = config.Default()
	}

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	warnings := &warningCounter{}
	log.AddHook(warnings)

	events := telemetry.New(telemetry.DefaultConfig("logs/dryrun-events.jsonl"), log)
	defer events.Close()

	mp := sdkmetric.NewMeterProvider()
	met, err := metrics.New(mp)
	if err != nil {
		log.WithError(err).Fatal("callcue-dryrun: failed to initialize metrics")
	}

	eventBus := bus.New(log)

	embedder := httpembed.New(cfg.Providers.Embeddings.BaseURL, cfg.Providers.Embeddings.Model)
	var classifier worker.IntentClassifier = noopClassifier{}
	if loaded, err := promptintent.LoadFromFiles(embedder, *promptsPath, *embeddingsPath); err != nil {
		log.WithError(err).Warn("callcue-dryrun: failed to load prompt table, running with intent classification disabled")
	} else {
		classifier = loaded
	}

	stt := &syntheticSTT{texts: syntheticTranscripts}
	w := worker.New(stt, classifier, eventBus, log)
	w.SetBackpressureThreshold(cfg.Worker.BackpressureThreshold)
	w.SetMaxLatency(time.Duration(cfg.Worker.MaxLatencyMs) * time.Millisecond)
	go w.Run()
	defer w.Close()

	brain := dialogue.New(eventBus, log, cfg.Dialogue.DebugMode)
	quality := telemetry.NewPromptQualityMonitor(events)

	tally := &decisionTally{}
	eventBus.Subscribe(worker.TopicWorkerResult, func(evt bus.Event) {
		result, ok := evt.Data.(worker.WorkerResult)
		if !ok {
			return
		}
		tally.record(result.Decision)
		met.RecordDecision(context.Background(), string(result.Decision))
		events.Resolve(result.ID)
		quality.Evaluate(result.PromptID, result.Score)
		if result.Decision == worker.DecisionSuccess {
			brain.Process(result.PromptID, result.Text, time.Now())
		}
	})

	sink := hud.New()
	sink.Attach(eventBus)

	vad := rmsvad.New()
	start := time.Now()
	sentCfg := sentinel.Config{
		RingBufferCapacity: audioio.DefaultCapacity,
		MicDeadThresholdMs: cfg.Sentinel.MicDeadThresholdMs,
		AmplitudeFloor:     cfg.Sentinel.AmplitudeFloor,
		VADWindowMs:        cfg.VAD.WindowMs,
		VADEnterThreshold:  cfg.VAD.EnterThreshold,
		VADExitThreshold:   cfg.VAD.ExitThreshold,
		SilenceMinMs:       cfg.Sentinel.SilenceMinMs,
		SilenceWindowMs:    cfg.Sentinel.SilenceWindowMs,
	}
	sent := sentinel.New(sentCfg, vad, eventBus, log, start)
	sent.SetErrorState(telemetry.NewErrorStateManager(events))

	eventBus.Subscribe(sentinel.TopicSilenceTrigger, func(evt bus.Event) {
		trigger, ok := evt.Data.(sentinel.SilenceTriggerEvent)
		if !ok {
			return
		}
		w.Enqueue(worker.TriggerEvent{
			EventID:           trigger.EventID,
			EventTimestamp:    time.Now(),
			SentinelTimestamp: trigger.SentinelTimestamp,
			AudioSnapshot:     trigger.AudioSnapshot,
		})
	})
	eventBus.Subscribe(sentinel.TopicMicDead, func(bus.Event) {
		tally.micDead++
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var srv *http.Server
	if *listenAddr != "" {
		readiness := func(context.Context) error {
			if *failOnWarning && warnings.count() > 0 {
				return fmt.Errorf("%d warning-level events observed", warnings.count())
			}
			return nil
		}
		healthHandler := health.New(
			health.Checker{Name: "synthetic_pipeline", Check: readiness},
		)
		mux := http.NewServeMux()
		healthHandler.Register(mux)
		srv = &http.Server{Addr: *listenAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Warn("callcue-dryrun: health server stopped")
			}
		}()
	}

	fmt.Printf("callcue-dryrun: driving synthetic source for %s\n", *duration)
	runSyntheticAudio(ctx, sent, *duration)

	// Let in-flight triggers drain before summarizing.
	time.Sleep(500 * time.Millisecond)

	if srv != nil {
		srv.Close()
	}

	summary := tally.summary()
	fmt.Println(summary)
	fmt.Printf("warnings observed: %d\n", warnings.count())

	if *failOnWarning && warnings.count() > 0 {
		fmt.Println("NOT READY")
		os.Exit(1)
	}
	fmt.Println("READY")
}

type noopClassifier struct{}

func (noopClassifier) Classify(string) (string, float64, error) { return "", 0, nil }

// syntheticSTT cycles through a fixed transcript list rather than calling
// a real speech-to-text backend, so a dry run never depends on network
// access or a deployed model.
type syntheticSTT struct {
	mu    sync.Mutex
	texts []string
	next  int
}

func (s *syntheticSTT) Transcribe(_ []float32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := s.texts[s.next%len(s.texts)]
	s.next++
	return text, nil
}

// decisionTally counts worker_result decisions observed over a run.
type decisionTally struct {
	mu       sync.Mutex
	counts   map[worker.Decision]int
	micDead  int
}

func (t *decisionTally) record(d worker.Decision) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.counts == nil {
		t.counts = make(map[worker.Decision]int)
	}
	t.counts[d]++
}

func (t *decisionTally) summary() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf(
		"results: success=%d suppressed_late=%d suppressed_repeat=%d suppressed_backpressure=%d suppressed_safe_mode=%d mic_dead=%d",
		t.counts[worker.DecisionSuccess],
		t.counts[worker.DecisionSuppressedLate],
		t.counts[worker.DecisionSuppressedRepeat],
		t.counts[worker.DecisionSuppressedBackpressure],
		t.counts[worker.DecisionSuppressedSafeMode],
		t.micDead,
	)
}

// warningCounter is a logrus hook that tallies warning-and-above log
// entries for the --fail-on-warning readiness check.
type warningCounter struct {
	mu sync.Mutex
	n  int
}

func (h *warningCounter) Levels() []logrus.Level {
	return []logrus.Level{logrus.WarnLevel, logrus.ErrorLevel, logrus.FatalLevel}
}

func (h *warningCounter) Fire(*logrus.Entry) error {
	h.mu.Lock()
	h.n++
	h.mu.Unlock()
	return nil
}

func (h *warningCounter) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.n
}

// runSyntheticAudio generates alternating speech (440Hz tone) and silence
// frames at the pipeline's 32ms frame cadence, pushing each through the
// Sentinel's ring buffer and state machine exactly as the real malgo
// capture callback would, until duration elapses or ctx is cancelled.
func runSyntheticAudio(ctx context.Context, sent *sentinel.Sentinel, duration time.Duration) {
	const (
		blockSize     = 512
		sampleRate    = audioio.SampleRate
		toneFreq      = 440.0
		toneAmplitude = 0.5
		speechFrames  = 20 // ~640ms of tone, enough to cross the VAD enter threshold
		silenceFrames = 40 // ~1280ms of silence, enough for the VAD smoother to exit speech and then clear the 600/800ms jitter gates
	)
	frameDur := time.Duration(blockSize) * time.Second / time.Duration(sampleRate)

	deadline := time.Now().Add(duration)
	phase := 0.0
	cyclePos := 0

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		default:
		}

		samples := make([]float32, blockSize)
		if cyclePos < speechFrames {
			for i := range samples {
				samples[i] = float32(toneAmplitude * math.Sin(2*math.Pi*toneFreq*phase))
				phase += 1.0 / float64(sampleRate)
			}
		}
		cyclePos = (cyclePos + 1) % (speechFrames + silenceFrames)

		frame := audioio.NewFrame(samples)
		sent.RingBuffer().Push(frame)
		sent.ProcessFrame(frame, time.Now())

		time.Sleep(frameDur)
	}
}
