package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads .env (if present, ignored when missing), decodes the YAML
// configuration file at path onto Default(), overlays API keys from the
// environment, and validates the result.
func Load(path string) (*Config, error) {
	// A missing .env is normal in production where secrets come from the
	// real environment, so this is never fatal.
	_ = godotenv.Load()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r onto a copy of Default(), leaving
// fields the document omits at their default values. It does not apply
// environment overrides or validation; callers needing those should use
// Load, or call Validate themselves (as tests do).
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides fills provider credentials from the environment, since
// API keys never live in the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STT_API_KEY"); v != "" {
		cfg.Providers.STT.APIKey = v
	}
	if v := os.Getenv("EMBEDDINGS_API_KEY"); v != "" {
		cfg.Providers.Embeddings.APIKey = v
	}
	if v := os.Getenv("STT_PROVIDER"); v != "" {
		cfg.Providers.STT.Name = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
}

// Validate checks that cfg contains a coherent set of values, returning a
// joined error listing every failure found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", cfg.Audio.SampleRate))
	}
	if cfg.Audio.BlockSizeFrames <= 0 {
		errs = append(errs, fmt.Errorf("audio.block_size_frames must be positive, got %d", cfg.Audio.BlockSizeFrames))
	}
	if cfg.Audio.BufferDurationSec <= 0 {
		errs = append(errs, fmt.Errorf("audio.buffer_duration_sec must be positive, got %v", cfg.Audio.BufferDurationSec))
	}

	if cfg.VAD.EnterThreshold <= cfg.VAD.ExitThreshold {
		errs = append(errs, fmt.Errorf("vad.enter_threshold (%v) must be greater than vad.exit_threshold (%v)",
			cfg.VAD.EnterThreshold, cfg.VAD.ExitThreshold))
	}
	if cfg.VAD.WindowMs <= 0 {
		errs = append(errs, fmt.Errorf("vad.window_ms must be positive, got %d", cfg.VAD.WindowMs))
	}

	if cfg.Sentinel.SilenceWindowMs < cfg.Sentinel.SilenceMinMs {
		errs = append(errs, fmt.Errorf("sentinel.silence_window_ms (%v) must be >= sentinel.silence_min_ms (%v)",
			cfg.Sentinel.SilenceWindowMs, cfg.Sentinel.SilenceMinMs))
	}
	if cfg.Sentinel.MicDeadThresholdMs <= 0 {
		errs = append(errs, fmt.Errorf("sentinel.mic_dead_threshold_ms must be positive, got %v", cfg.Sentinel.MicDeadThresholdMs))
	}

	if cfg.Worker.MaxLatencyMs <= 0 {
		errs = append(errs, fmt.Errorf("worker.max_latency_ms must be positive, got %d", cfg.Worker.MaxLatencyMs))
	}
	if cfg.Worker.BackpressureThreshold <= 0 {
		errs = append(errs, fmt.Errorf("worker.back_pressure_threshold must be positive, got %d", cfg.Worker.BackpressureThreshold))
	}

	if cfg.Providers.STT.Name != "" && cfg.Providers.STT.Name != "http" && cfg.Providers.STT.Name != "websocket" {
		errs = append(errs, fmt.Errorf("providers.stt.name %q is invalid; valid values: http, websocket", cfg.Providers.STT.Name))
	}

	switch cfg.Server.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	return errors.Join(errs...)
}
