// Command callcue-agent wires a live microphone capture through the
// Sentinel, Worker, and DialogueBrain stages and renders worker results
// and suggestions to the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gen2brain/malgo"
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
	"github.com/lokutor-ai/callcue/pkg/providers/httpstt"
	"github.com/lokutor-ai/callcue/pkg/providers/promptintent"
	"github.com/lokutor-ai/callcue/pkg/providers/rmsvad"
	"github.com/lokutor-ai/callcue/pkg/providers/wsstt"
	"github.com/lokutor-ai/callcue/pkg/sentinel"
	"github.com/lokutor-ai/callcue/pkg/telemetry"
	"github.com/lokutor-ai/callcue/pkg/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the pipeline config file")
	promptsPath := flag.String("prompts", "prompts.json", "path to the prompt table")
	embeddingsPath := flag.String("embeddings", "embeddings.npy", "path to the pre-computed prompt embedding matrix")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "callcue-agent: loading config: %v\n", err)
		cfg = config.Default()
	}

	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	events := telemetry.New(telemetry.DefaultConfig("logs/events.jsonl"), log)
	defer events.Close()

	mp := sdkmetric.NewMeterProvider()
	met, err := metrics.New(mp)
	if err != nil {
		log.WithError(err).Fatal("callcue-agent: failed to initialize metrics")
	}

	eventBus := bus.New(log)

	stt := buildSTTEngine(cfg)
	classifier := buildClassifier(cfg, *promptsPath, *embeddingsPath, log)

	w := worker.New(stt, classifier, eventBus, log)
	w.SetBackpressureThreshold(cfg.Worker.BackpressureThreshold)
	w.SetMaxLatency(time.Duration(cfg.Worker.MaxLatencyMs) * time.Millisecond)
	go w.Run()
	defer w.Close()

	brain := dialogue.New(eventBus, log, cfg.Dialogue.DebugMode)

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

	quality := telemetry.NewPromptQualityMonitor(events)
	drift := telemetry.NewDriftMonitor(events, cfg.Audio.SampleRate)

	wireTopics(eventBus, w, brain, met, events, quality, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.WithError(err).Fatal("callcue-agent: failed to init audio context")
	}
	defer mctx.Uninit()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(cfg.Audio.SampleRate)

	var lastSeq uint64
	onSamples := func(_, input []byte, frameCount uint32) {
		samples := bytesToFloat32(input)
		drift.Observe(len(samples), time.Now())
		sent.RingBuffer().Push(audioio.NewFrame(samples))
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		log.WithError(err).Fatal("callcue-agent: failed to init capture device")
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		log.WithError(err).Fatal("callcue-agent: failed to start capture device")
	}

	go func() {
		ring := sent.RingBuffer()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			newSeq := ring.WaitForNewData(lastSeq, 200*time.Millisecond)
			if newSeq == lastSeq {
				continue
			}
			lastSeq = newSeq
			snapshot := ring.ReadLatest(1)
			if len(snapshot) == 0 {
				continue
			}
			sent.ProcessFrame(audioio.NewFrame(snapshot), time.Now())
		}
	}()

	healthHandler := health.New(
		health.Checker{Name: "stt_provider", Check: func(context.Context) error { return nil }},
	)
	mux := http.NewServeMux()
	healthHandler.Register(mux)
	srv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Warn("callcue-agent: health server stopped")
		}
	}()

	fmt.Println("callcue-agent listening. Press Ctrl+C to exit.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println("\nShutting down...")
	srv.Close()
}

// buildSTTEngine selects the STT transport named in cfg.Providers.STT.Name.
func buildSTTEngine(cfg *config.Config) worker.STTEngine {
	switch cfg.Providers.STT.Name {
	case "websocket":
		return wsstt.New(cfg.Providers.STT.APIKey, cfg.Providers.STT.BaseURL)
	default:
		return httpstt.New(cfg.Providers.STT.APIKey, cfg.Providers.STT.BaseURL, cfg.Providers.STT.Model)
	}
}

// buildClassifier loads the prompt table and embedding matrix, falling
// back to an empty classifier (every utterance scores 0 against no
// prompts) if the files are not yet present, so the pipeline still
// starts during local development.
func buildClassifier(cfg *config.Config, promptsPath, embeddingsPath string, log *logrus.Logger) worker.IntentClassifier {
	embedder := httpembed.New(cfg.Providers.Embeddings.BaseURL, cfg.Providers.Embeddings.Model)
	classifier, err := promptintent.LoadFromFiles(embedder, promptsPath, embeddingsPath)
	if err != nil {
		log.WithError(err).Warn("callcue-agent: failed to load prompt table, intent classification will be unavailable")
		return noopClassifier{}
	}
	return classifier
}

type noopClassifier struct{}

func (noopClassifier) Classify(string) (string, float64, error) { return "", 0, nil }

// wireTopics subscribes the Worker, HUD sink, and telemetry log to the
// bus topics that connect the pipeline's stages.
func wireTopics(eventBus *bus.EventBus, w *worker.Worker, brain *dialogue.DialogueBrain, met *metrics.Metrics, events *telemetry.Log, quality *telemetry.PromptQualityMonitor, log *logrus.Logger) {
	eventBus.Subscribe(sentinel.TopicSilenceTrigger, func(evt bus.Event) {
		trigger, ok := evt.Data.(sentinel.SilenceTriggerEvent)
		if !ok {
			return
		}
		met.SilenceTriggers.Add(context.Background(), 1)
		events.Write(telemetry.TypeSilenceTrigger, trigger.EventID, map[string]any{
			"type":               telemetry.TypeSilenceTrigger,
			"id":                 trigger.EventID,
			"event_id":           trigger.EventID,
			"audio":              len(trigger.AudioSnapshot),
			"timestamp":          time.Now().Unix(),
			"sentinel_timestamp": trigger.SentinelTimestamp,
		})
		w.Enqueue(worker.TriggerEvent{
			EventID:           trigger.EventID,
			EventTimestamp:    time.Now(),
			SentinelTimestamp: trigger.SentinelTimestamp,
			AudioSnapshot:     trigger.AudioSnapshot,
		})
	})

	eventBus.Subscribe(sentinel.TopicMicDead, func(evt bus.Event) {
		dead, ok := evt.Data.(sentinel.MicDeadEvent)
		if !ok {
			return
		}
		log.Warn("callcue-agent: microphone appears dead")
		events.Write(telemetry.TypeMicDead, "", map[string]any{
			"type":               telemetry.TypeMicDead,
			"sentinel_timestamp": dead.SentinelTimestamp,
		})
	})

	eventBus.Subscribe(worker.TopicWorkerResult, func(evt bus.Event) {
		result, ok := evt.Data.(worker.WorkerResult)
		if !ok {
			return
		}
		met.RecordDecision(context.Background(), string(result.Decision))
		met.WhisperLatency.Record(context.Background(), result.WhisperLatencyMs/1000)
		met.IntentLatency.Record(context.Background(), result.IntentLatencyMs/1000)
		met.TotalLatency.Record(context.Background(), result.TotalLatencyMs/1000)
		events.Write(telemetry.TypeWorkerResult, result.ID, map[string]any{
			"type":                 result.Type,
			"id":                   result.ID,
			"event_id":             result.EventID,
			"event_timestamp":      result.EventTimestamp.Unix(),
			"sentinel_timestamp":   result.SentinelTimestamp,
			"worker_start_ts":      result.WorkerStartTs.Unix(),
			"text":                 result.Text,
			"prompt_id":            result.PromptID,
			"score":                result.Score,
			"whisper_latency_ms":   result.WhisperLatencyMs,
			"intent_latency_ms":    result.IntentLatencyMs,
			"transport_latency_ms": result.TransportLatencyMs,
			"total_latency_ms":     result.TotalLatencyMs,
			"decision":             result.Decision,
		})
		events.Resolve(result.ID)
		quality.Evaluate(result.PromptID, result.Score)
		fmt.Println(hud.FormatResult(result))

		if result.Decision == worker.DecisionSuccess {
			brain.Process(result.PromptID, result.Text, time.Now())
		}
	})

	eventBus.Subscribe(dialogue.TopicSuggestion, func(evt bus.Event) {
		suggestion, ok := evt.Data.(dialogue.SuggestionEvent)
		if !ok {
			return
		}
		met.BrainLatency.Record(context.Background(), suggestion.BrainMs/1000)
		fmt.Println(hud.FormatSuggestion(suggestion))
	})

	eventBus.Subscribe(dialogue.TopicReset, func(bus.Event) {
		met.ConversationResets.Add(context.Background(), 1)
		log.Info("callcue-agent: conversation state reset after inactivity")
	})
}

// bytesToFloat32 reinterprets a malgo F32 capture buffer as mono float32
// samples.
func bytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}
