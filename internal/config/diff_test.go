package config_test

import (
	"testing"
	"time"

	"github.com/vocaprep/vocaprep/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   config.LogInfo,
		},
		Providers: config.ProvidersConfig{
			Realtime: config.ProviderEntry{Name: "gemini-live", APIKey: "key"},
			Feedback: config.ProviderEntry{Name: "openai", APIKey: "key"},
			VAD:      config.ProviderEntry{Name: "rms"},
		},
		Session: config.SessionConfig{
			TargetSampleRate: 16000,
			HandshakeTimeout: 10 * time.Second,
			InterruptFade:    150 * time.Millisecond,
			VAD: config.VADConfig{
				FrameSizeMs:      20,
				SpeechThreshold:  0.015,
				SilenceThreshold: 0.008,
				MinSpeechFrames:  3,
				MinSilenceFrames: 25,
			},
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := baseConfig()
	d := config.Diff(cfg, cfg)
	if d.Any() {
		t.Errorf("expected no changes for identical configs, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
	if d.RestartRequired {
		t.Error("log level change should not require restart")
	}
}

func TestDiff_VADChanged(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Session.VAD.SpeechThreshold = 0.03

	d := config.Diff(old, new)
	if !d.VADChanged {
		t.Error("expected VADChanged=true")
	}
	if d.SessionChanged {
		t.Error("VAD tuning alone should not set SessionChanged")
	}
	if d.RestartRequired {
		t.Error("VAD tuning change should not require restart")
	}
}

func TestDiff_SessionChanged(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Session.InterruptFade = 200 * time.Millisecond

	d := config.Diff(old, new)
	if !d.SessionChanged {
		t.Error("expected SessionChanged=true")
	}
	if d.RestartRequired {
		t.Error("interrupt fade change should not require restart")
	}
}

func TestDiff_ProviderChangeRequiresRestart(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Providers.Realtime.Name = "openai-realtime"

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true for provider change")
	}
}

func TestDiff_APIKeyRotationRequiresRestart(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Providers.Feedback.APIKey = "rotated"

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true for API key rotation")
	}
}

func TestDiff_ListenAddrRequiresRestart(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Server.ListenAddr = ":9090"

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true for listen address change")
	}
}

func TestDiff_TLSAddedRequiresRestart(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Server.TLS = &config.TLSConfig{CertFile: "tls.crt", KeyFile: "tls.key"}

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true when TLS is enabled")
	}
}

func TestDiff_StorageChangeRequiresRestart(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Storage.PostgresDSN = "postgres://localhost/other"

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true for storage change")
	}
}

func TestDiff_FeedbackFallbackAddedRequiresRestart(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Providers.FeedbackFallbacks = []config.ProviderEntry{{Name: "openai", Model: "gpt-4o-mini"}}

	d := config.Diff(old, new)
	if !d.RestartRequired {
		t.Error("expected RestartRequired=true when a feedback fallback is added")
	}
}
