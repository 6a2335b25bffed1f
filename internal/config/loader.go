package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [LoadFromReader] for fields left unset.
const (
	defaultListenAddr       = ":8080"
	defaultTargetSampleRate = 16000
	defaultHandshakeTimeout = 10 * time.Second
	defaultInterruptFade    = 150 * time.Millisecond

	defaultVADFrameSizeMs     = 20
	defaultVADSpeechThresh    = 0.015
	defaultVADSilenceThresh   = 0.008
	defaultVADMinSpeechFrames = 3
	// 25 frames of 20ms each is half a second of silence before an end edge.
	defaultVADMinSilenceFrames = 25
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"realtime": {"gemini-live", "openai-realtime"},
	"feedback": {"openai"},
	"vad":      {"rms"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills in defaults for unset
// fields, and validates the result. Unknown YAML fields are rejected so that
// typos surface at startup instead of being silently ignored.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = defaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Session.TargetSampleRate == 0 {
		cfg.Session.TargetSampleRate = defaultTargetSampleRate
	}
	if cfg.Session.HandshakeTimeout == 0 {
		cfg.Session.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.Session.InterruptFade == 0 {
		cfg.Session.InterruptFade = defaultInterruptFade
	}

	v := &cfg.Session.VAD
	if v.FrameSizeMs == 0 {
		v.FrameSizeMs = defaultVADFrameSizeMs
	}
	if v.SpeechThreshold == 0 {
		v.SpeechThreshold = defaultVADSpeechThresh
	}
	if v.SilenceThreshold == 0 {
		v.SilenceThreshold = defaultVADSilenceThresh
	}
	if v.MinSpeechFrames == 0 {
		v.MinSpeechFrames = defaultVADMinSpeechFrames
	}
	if v.MinSilenceFrames == 0 {
		v.MinSilenceFrames = defaultVADMinSilenceFrames
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil && (cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Providers. The realtime backend is mandatory; without it no interview
	// can run. Feedback and VAD fall back to built-in defaults in the app.
	if cfg.Providers.Realtime.Name == "" {
		errs = append(errs, errors.New("providers.realtime.name is required"))
	}
	validateProviderName("realtime", cfg.Providers.Realtime.Name)
	validateProviderName("feedback", cfg.Providers.Feedback.Name)
	validateProviderName("vad", cfg.Providers.VAD.Name)

	if cfg.Providers.Feedback.Name == "" {
		slog.Warn("providers.feedback is not configured; interviews will end without a feedback report")
	}
	for i, fb := range cfg.Providers.FeedbackFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.feedback_fallbacks[%d].name is required", i))
			continue
		}
		validateProviderName("feedback", fb.Name)
	}
	if len(cfg.Providers.FeedbackFallbacks) > 0 && cfg.Providers.Feedback.Name == "" {
		errs = append(errs, errors.New("providers.feedback_fallbacks requires a primary providers.feedback"))
	}

	// Session
	s := cfg.Session
	if s.TargetSampleRate <= 0 {
		errs = append(errs, fmt.Errorf("session.target_sample_rate %d must be positive", s.TargetSampleRate))
	}
	if s.HandshakeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("session.handshake_timeout %s must be positive", s.HandshakeTimeout))
	}
	if s.InterruptFade < 0 {
		errs = append(errs, fmt.Errorf("session.interrupt_fade %s must not be negative", s.InterruptFade))
	}

	// VAD tuning
	v := s.VAD
	if v.FrameSizeMs <= 0 {
		errs = append(errs, fmt.Errorf("session.vad.frame_size_ms %d must be positive", v.FrameSizeMs))
	}
	if v.SpeechThreshold <= 0 || v.SpeechThreshold > 1 {
		errs = append(errs, fmt.Errorf("session.vad.speech_threshold %g is out of range (0, 1]", v.SpeechThreshold))
	}
	if v.SilenceThreshold < 0 || v.SilenceThreshold > v.SpeechThreshold {
		errs = append(errs, fmt.Errorf("session.vad.silence_threshold %g must be in [0, speech_threshold]", v.SilenceThreshold))
	}
	if v.MinSpeechFrames <= 0 {
		errs = append(errs, fmt.Errorf("session.vad.min_speech_frames %d must be positive", v.MinSpeechFrames))
	}
	if v.MinSilenceFrames <= 0 {
		errs = append(errs, fmt.Errorf("session.vad.min_silence_frames %d must be positive", v.MinSilenceFrames))
	}

	// Storage
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; using the in-memory store, transcripts will not survive restarts")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
