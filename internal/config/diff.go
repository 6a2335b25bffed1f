package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider and
// storage changes require a restart and are surfaced as RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// VADChanged is true when any VAD tuning field changed. New sessions
	// pick the values up; running sessions keep their original tuning.
	VADChanged bool

	// SessionChanged is true when target_sample_rate, handshake_timeout or
	// interrupt_fade changed. Applies to new sessions only.
	SessionChanged bool

	// RestartRequired is true when providers, storage, or server listen
	// settings changed. These cannot be applied to a running server.
	RestartRequired bool
}

// Any reports whether the diff contains any change at all.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.VADChanged || d.SessionChanged || d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Session.VAD != new.Session.VAD {
		d.VADChanged = true
	}

	if old.Session.TargetSampleRate != new.Session.TargetSampleRate ||
		old.Session.HandshakeTimeout != new.Session.HandshakeTimeout ||
		old.Session.InterruptFade != new.Session.InterruptFade {
		d.SessionChanged = true
	}

	if providersDiffer(old.Providers, new.Providers) ||
		old.Storage != new.Storage ||
		old.Server.ListenAddr != new.Server.ListenAddr ||
		!tlsEqual(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = true
	}

	return d
}

func providersDiffer(old, new ProvidersConfig) bool {
	if entryDiffers(old.Realtime, new.Realtime) ||
		entryDiffers(old.Feedback, new.Feedback) ||
		entryDiffers(old.VAD, new.VAD) {
		return true
	}
	if len(old.FeedbackFallbacks) != len(new.FeedbackFallbacks) {
		return true
	}
	for i := range old.FeedbackFallbacks {
		if entryDiffers(old.FeedbackFallbacks[i], new.FeedbackFallbacks[i]) {
			return true
		}
	}
	return false
}

// entryDiffers ignores Options since map comparison would need reflection and
// every built-in provider reads its options once at construction anyway.
func entryDiffers(old, new ProviderEntry) bool {
	return old.Name != new.Name ||
		old.APIKey != new.APIKey ||
		old.BaseURL != new.BaseURL ||
		old.Model != new.Model ||
		old.Voice != new.Voice
}

func tlsEqual(old, new *TLSConfig) bool {
	if old == nil || new == nil {
		return old == new
	}
	return *old == *new
}
