// Package telemetry writes append-only JSONL structured events to disk
// with schema validation at each stage boundary, and watches for events
// that go stale in flight.
package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Event type tags written to the type field of every JSONL record.
const (
	TypeSilenceTrigger   = "SILENCE_TRIGGER"
	TypeWorkerResult     = "WORKER_RESULT"
	TypeMicDead          = "MIC_DEAD"
	TypeDeviceDrift      = "DEVICE_DRIFT"
	TypeWatchdogTimeout  = "WATCHDOG_TIMEOUT"
	TypeSuggestion       = "SUGGESTION_EVENT"
	TypeReset            = "RESET_EVENT"
	TypeErrorState       = "ERROR"
	TypeEventSchemaError = "EVENT_SCHEMA_ERROR"
	TypePromptQualityLow = "PROMPT_QUALITY_LOW"
)

// WatchdogTimeout is how long an in-flight event may go untracked before
// it is flagged as lost.
const WatchdogTimeout = 2 * time.Second

// requiredFields lists the keys that must be present (non-zero-valued is
// not required, only present) for each schema-validated event type.
var requiredFields = map[string][]string{
	TypeSilenceTrigger: {"type", "id", "event_id", "audio", "timestamp", "sentinel_timestamp"},
	TypeWorkerResult: {
		"type", "id", "event_id", "event_timestamp", "sentinel_timestamp", "worker_start_ts",
		"text", "prompt_id", "score", "whisper_latency_ms", "intent_latency_ms",
		"transport_latency_ms", "total_latency_ms", "decision",
	},
}

// Log is an append-only JSONL event writer backed by a rotating file, with
// schema validation and in-flight watchdog tracking.
type Log struct {
	log    *logrus.Logger
	writer *lumberjack.Logger
	mu     sync.Mutex

	inflightMu sync.Mutex
	inflight   map[string]time.Time

	stop chan struct{}
	done chan struct{}
}

// Config controls where and how large the rotating JSONL file grows.
type Config struct {
	// Path is the JSONL file path, e.g. "logs/events.jsonl".
	Path string

	// MaxSizeMB is the size at which the file rotates.
	MaxSizeMB int

	// MaxBackups is how many rotated files to retain.
	MaxBackups int
}

// DefaultConfig returns sensible rotation settings for an events log.
func DefaultConfig(path string) Config {
	return Config{Path: path, MaxSizeMB: 32, MaxBackups: 5}
}

// New opens a Log and starts its watchdog goroutine.
func New(cfg Config, log *logrus.Logger) *Log {
	if log == nil {
		log = logrus.New()
	}
	l := &Log{
		log: log,
		writer: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		},
		inflight: make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go l.watch()
	return l
}

// Close stops the watchdog and closes the underlying rotating writer.
func (l *Log) Close() error {
	close(l.stop)
	<-l.done
	return l.writer.Close()
}

// Write schema-validates fields for the given event type and, on success,
// appends it as one JSON line and begins tracking it as in-flight under
// id. A schema failure drops the event and logs, never returning an error
// to the caller -- the pipeline must never abort on a malformed event.
func (l *Log) Write(eventType, id string, fields map[string]any) {
	if missing, err := validate(eventType, fields); err != nil {
		l.log.WithFields(logrus.Fields{"type": eventType, "id": id, "error": err}).
			Warn("telemetry: dropping event that failed schema validation")
		l.writeRaw(map[string]any{
			"type":    TypeEventSchemaError,
			"name":    eventType,
			"missing": missing,
		})
		return
	}

	l.writeRaw(fields)

	if id != "" {
		l.inflightMu.Lock()
		l.inflight[id] = time.Now()
		l.inflightMu.Unlock()
	}
}

// writeRaw appends fields as one JSON line without schema validation or
// in-flight tracking, used both for validated events and for the
// EVENT_SCHEMA_ERROR record a validation failure itself produces.
func (l *Log) writeRaw(fields map[string]any) {
	l.mu.Lock()
	data, err := json.Marshal(fields)
	if err == nil {
		data = append(data, '\n')
		_, err = l.writer.Write(data)
	}
	l.mu.Unlock()
	if err != nil {
		l.log.WithError(err).Warn("telemetry: failed to write event")
	}
}

// Resolve stops tracking id as in-flight, e.g. once a sink has recorded
// its terminal event.
func (l *Log) Resolve(id string) {
	l.inflightMu.Lock()
	delete(l.inflight, id)
	l.inflightMu.Unlock()
}

// watch flags any in-flight event older than WatchdogTimeout as lost.
func (l *Log) watch() {
	defer close(l.done)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.checkStale(now)
		}
	}
}

func (l *Log) checkStale(now time.Time) {
	l.inflightMu.Lock()
	var stale []string
	for id, started := range l.inflight {
		if now.Sub(started) > WatchdogTimeout {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(l.inflight, id)
	}
	l.inflightMu.Unlock()

	for _, id := range stale {
		l.log.WithField("id", id).Warn("telemetry: event exceeded watchdog timeout")
		l.Write(TypeWatchdogTimeout, "", map[string]any{
			"type":      TypeWatchdogTimeout,
			"id":        id,
			"timestamp": now.Unix(),
		})
	}
}

// validate checks that every key in requiredFields[eventType] is present
// in fields. Event types with no registered schema pass unconditionally.
// It returns the missing keys alongside the error so the caller can fold
// them into an EVENT_SCHEMA_ERROR record.
func validate(eventType string, fields map[string]any) ([]string, error) {
	required, ok := requiredFields[eventType]
	if !ok {
		return nil, nil
	}
	var missing []string
	for _, key := range required {
		if _, present := fields[key]; !present {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return missing, fmt.Errorf("missing required fields %v for event type %q", missing, eventType)
	}
	return nil, nil
}
