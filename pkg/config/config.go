// Package config provides the configuration schema and loader for the
// callcue agent pipeline.
package config

// Config is the root configuration structure for the agent.
type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	VAD       VADConfig       `yaml:"vad"`
	Sentinel  SentinelConfig  `yaml:"sentinel"`
	Worker    WorkerConfig    `yaml:"worker"`
	Dialogue  DialogueConfig  `yaml:"dialogue"`
	Providers ProvidersConfig `yaml:"providers"`
	Server    ServerConfig    `yaml:"server"`
}

// AudioConfig holds microphone capture parameters.
type AudioConfig struct {
	// SampleRate is the capture sample rate in Hz.
	SampleRate int `yaml:"sample_rate"`

	// BlockSizeFrames is the number of samples per captured frame.
	// Validate requires it to be positive; the capture device is not
	// configured from it.
	BlockSizeFrames int `yaml:"block_size_frames"`

	// BufferDurationSec is the snapshot window in seconds. Validate
	// requires it to be positive; both binaries size the ring buffer with
	// audioio.DefaultCapacity rather than from this value.
	BufferDurationSec float64 `yaml:"buffer_duration_sec"`
}

// VADConfig holds voice-activity-detection smoothing thresholds.
type VADConfig struct {
	// WindowMs is the windowed-mean smoothing window in milliseconds.
	WindowMs int `yaml:"window_ms"`

	// EnterThreshold is the mean score needed to transition into speech.
	EnterThreshold float64 `yaml:"enter_threshold"`

	// ExitThreshold is the mean score below which speech is considered over.
	ExitThreshold float64 `yaml:"exit_threshold"`
}

// SentinelConfig holds silence-trigger and mic-health thresholds.
type SentinelConfig struct {
	// SilenceMinMs is the minimum continuous silence before a trigger is
	// eligible to fire.
	SilenceMinMs float64 `yaml:"silence_min_ms"`

	// SilenceWindowMs is the windowed-clamped silence threshold.
	SilenceWindowMs float64 `yaml:"silence_window_ms"`

	// MicDeadThresholdMs is the continuous silence duration, combined with
	// sub-floor amplitude, that marks the microphone as dead.
	MicDeadThresholdMs float64 `yaml:"mic_dead_threshold_ms"`

	// AmplitudeFloor is the RMS amplitude below which audio is considered
	// effectively silent for mic-health purposes.
	AmplitudeFloor float64 `yaml:"amplitude_floor"`
}

// WorkerConfig holds the STT/intent pipeline's latency and backpressure
// controls.
type WorkerConfig struct {
	// MaxLatencyMs is the age, in milliseconds, beyond which a trigger's
	// result is suppressed as stale.
	MaxLatencyMs int `yaml:"max_latency_ms"`

	// BackpressureThreshold is the maximum number of pending triggers the
	// worker holds before dropping the oldest.
	BackpressureThreshold int `yaml:"back_pressure_threshold"`
}

// DialogueConfig holds the state machine's memory and reset behaviour.
type DialogueConfig struct {
	// DebugMode shortens the rolling-memory reset window for faster
	// iteration during development.
	DebugMode bool `yaml:"debug_mode"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage, plus any credentials/endpoints needed to reach it.
type ProvidersConfig struct {
	STT        ProviderEntry `yaml:"stt"`
	Embeddings ProviderEntry `yaml:"embeddings"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. APIKey is intentionally left out of YAML and filled in only from
// the environment; see Load.
type ProviderEntry struct {
	// Name selects the provider implementation, e.g. "http" or "websocket"
	// for STT.
	Name string `yaml:"name"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`

	// APIKey is never read from YAML; it is populated by Load from an
	// environment variable so credentials never land in a config file.
	APIKey string `yaml:"-"`
}

// ServerConfig holds the health/metrics HTTP server's listen address and
// log verbosity.
type ServerConfig struct {
	// ListenAddr is the TCP address the health/metrics server listens on.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls logrus verbosity. Valid values: "debug", "info",
	// "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config populated with the pipeline's documented
// default thresholds.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:        16000,
			BlockSizeFrames:   512,
			BufferDurationSec: 1.2,
		},
		VAD: VADConfig{
			WindowMs:       400,
			EnterThreshold: 0.6,
			ExitThreshold:  0.3,
		},
		Sentinel: SentinelConfig{
			SilenceMinMs:       600,
			SilenceWindowMs:    800,
			MicDeadThresholdMs: 4000,
			AmplitudeFloor:     0.01,
		},
		Worker: WorkerConfig{
			MaxLatencyMs:          1500,
			BackpressureThreshold: 3,
		},
		Dialogue: DialogueConfig{
			DebugMode: false,
		},
		Providers: ProvidersConfig{
			STT:        ProviderEntry{Name: "http", Model: "whisper-large-v3-turbo"},
			Embeddings: ProviderEntry{Name: "http"},
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   "info",
		},
	}
}
