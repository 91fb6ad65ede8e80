// Package sentinel watches the live microphone stream for speech-then-
// silence boundaries and publishes a snapshot of recent audio each time one
// is detected, without ever blocking the audio-capture callback.
package sentinel

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lokutor-ai/callcue/pkg/audioio"
	"github.com/lokutor-ai/callcue/pkg/bus"
	"github.com/lokutor-ai/callcue/pkg/telemetry"
)

// TopicSilenceTrigger is the bus topic the Sentinel publishes
// SilenceTriggerEvent values to.
const TopicSilenceTrigger = "silence_trigger"

// TopicMicDead is the bus topic the Sentinel publishes MicDeadEvent
// values to when the microphone appears to have gone silent for an
// extended period.
const TopicMicDead = "mic_dead"

// state is the Sentinel's own state machine, kept private: callers only
// ever observe its effects (published events), per the single-owner
// shared-state rule.
type state int

const (
	stateListening state = iota
	stateSpeaking
	stateTriggerEmitted
)

// VADProvider scores a block of audio samples for speech probability in
// [0, 1]. Implementations may be a lightweight energy model or a model
// served out-of-process; either way Score must return quickly since it
// runs on the Sentinel's own goroutine, not the audio callback.
type VADProvider interface {
	Score(samples []float32) (float64, error)
}

// SilenceTriggerEvent is published once per detected speech-then-silence
// boundary, carrying a snapshot of the ring buffer at the moment the
// boundary was confirmed.
type SilenceTriggerEvent struct {
	EventID           string
	SentinelTimestamp float64
	AudioSnapshot     []float32
}

// MicDeadEvent is published when no speech has been observed for
// MicDeadThresholdMs and the current frame's RMS amplitude is below
// AmplitudeFloor. It is distinct from a SilenceTriggerEvent: the Worker
// ignores it outright.
type MicDeadEvent struct {
	SentinelTimestamp float64
}

// Config bundles the Sentinel's tunables, including the VADSmoother and
// SilenceJitter thresholds that New builds those two components from.
type Config struct {
	RingBufferCapacity int
	MicDeadThresholdMs float64
	AmplitudeFloor     float64

	VADWindowMs       int
	VADEnterThreshold float64
	VADExitThreshold  float64

	SilenceMinMs    float64
	SilenceWindowMs float64
}

// DefaultConfig returns the §6 defaults: ring buffer sized for ~1.2s at
// 512-sample frames, 4s mic-dead threshold, and a conservative amplitude
// floor.
func DefaultConfig() Config {
	return Config{
		RingBufferCapacity: audioio.DefaultCapacity,
		MicDeadThresholdMs: 4000,
		AmplitudeFloor:     0.01,
		VADWindowMs:        400,
		VADEnterThreshold:  0.6,
		VADExitThreshold:   0.3,
		SilenceMinMs:       600,
		SilenceWindowMs:    800,
	}
}

// Sentinel consumes the continuous frame stream, drives VAD with
// hysteresis, and publishes silence-trigger and mic-dead events. It is the
// sole owner of its ring buffer, smoother, and jitter counters (§4.9) —
// nothing outside this package mutates them.
type Sentinel struct {
	cfg     Config
	ring    *audioio.RingBuffer
	smooth  *VADSmoother
	jitter  *SilenceJitter
	vad     VADProvider
	bus     *bus.EventBus
	log     *logrus.Logger
	start   time.Time

	state        state
	micDeadFired bool
	errorState   *telemetry.ErrorStateManager
}

// New builds a Sentinel. start anchors the monotonic SentinelTimestamp
// clock; pass time.Now() at process startup.
func New(cfg Config, vad VADProvider, eventBus *bus.EventBus, log *logrus.Logger, start time.Time) *Sentinel {
	if log == nil {
		log = logrus.New()
	}
	return &Sentinel{
		cfg:    cfg,
		ring:   audioio.NewRingBuffer(cfg.RingBufferCapacity),
		smooth: NewVADSmoother(cfg.VADWindowMs, cfg.VADEnterThreshold, cfg.VADExitThreshold),
		jitter: NewSilenceJitter(cfg.SilenceMinMs, cfg.SilenceWindowMs),
		vad:    vad,
		bus:    eventBus,
		log:    log,
		start:  start,
		state:  stateListening,
	}
}

// SetErrorState wires an accumulator that VAD failures and prolonged VAD
// inactivity feed into, escalating to safe_mode and telemetering the
// transition (§4.5). A Sentinel with no error-state manager set still
// runs, it just never reports the accumulated failures anywhere.
func (s *Sentinel) SetErrorState(es *telemetry.ErrorStateManager) {
	s.errorState = es
}

// RingBuffer exposes the Sentinel's ring buffer so the audio-capture
// callback (running on a different goroutine) can Push frames directly;
// the buffer's own mutex is what makes this safe.
func (s *Sentinel) RingBuffer() *audioio.RingBuffer {
	return s.ring
}

// ProcessFrame runs one iteration of the Sentinel's state machine over a
// single frame that has already been pushed to the ring buffer. It is
// intended to be driven by the sequence-wait loop described in §4.9, one
// call per newly observed frame.
func (s *Sentinel) ProcessFrame(frame audioio.Frame, now time.Time) {
	score, err := s.vad.Score(frame.Samples)
	if err != nil {
		if s.errorState != nil {
			s.errorState.RecordFailure(now)
		}
		s.log.WithError(err).Warn("sentinel: VAD inference failed, treating frame as non-speech")
		score = 0
	} else if s.errorState != nil {
		s.errorState.RecordSuccess(now)
	}

	speaking := s.smooth.Update(score, now)

	if speaking {
		s.jitter.ResetOnSpeech()
		s.micDeadFired = false
		s.state = stateSpeaking
		if s.errorState != nil {
			s.errorState.RecordVADActive(now)
		}
		return
	}

	if s.errorState != nil {
		s.errorState.RecordVADInactive(now)
	}

	deltaMs := frame.DurationMs()
	s.jitter.UpdateSilence(deltaMs)

	// Only silence that follows speech can trigger; after a trigger the
	// Sentinel stays in stateTriggerEmitted until speech resumes.
	if s.state == stateSpeaking && s.jitter.IsTriggerReady() {
		s.emitTrigger(now)
		s.jitter.ResetOnSpeech()
		s.state = stateTriggerEmitted
		return
	}

	s.checkMicDead(frame, now)
}

func (s *Sentinel) emitTrigger(now time.Time) {
	snapshot := s.ring.ReadLatest(0)
	evt := SilenceTriggerEvent{
		EventID:           uuid.New().String(),
		SentinelTimestamp: now.Sub(s.start).Seconds(),
		AudioSnapshot:     snapshot,
	}
	s.bus.Publish(TopicSilenceTrigger, evt)
}

func (s *Sentinel) checkMicDead(frame audioio.Frame, now time.Time) {
	if s.micDeadFired {
		return
	}
	if s.jitter.ContinuousSilenceMs() < s.cfg.MicDeadThresholdMs {
		return
	}
	if rms(frame.Samples) >= s.cfg.AmplitudeFloor {
		return
	}

	s.micDeadFired = true
	s.bus.Publish(TopicMicDead, MicDeadEvent{
		SentinelTimestamp: now.Sub(s.start).Seconds(),
	})
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
