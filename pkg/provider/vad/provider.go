// Package vad defines the Engine interface for local voice activity
// detection backends.
//
// A VAD engine classifies fixed-size PCM frames as speech or silence and
// surfaces the result as a stateful per-stream session. Sessions carry their
// own smoothing state so concurrent audio streams are independent.
//
// Detection is synchronous: ProcessFrame returns immediately, which lets the
// capture loop run it inline without adding latency before barge-in fires.
//
// Implementations must be safe for concurrent use across different sessions.
// A single SessionHandle must not be shared across goroutines unless the
// implementation documents otherwise.
package vad

// Config holds the parameters for a VAD session.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must match the rate of the
	// PCM frames passed to ProcessFrame.
	SampleRate int

	// FrameSizeMs is the duration of each audio frame in milliseconds.
	// ProcessFrame returns an error for frames of any other size.
	FrameSizeMs int

	// SpeechThreshold is the energy level at or above which a frame counts
	// toward a speech onset. Range (0.0, 1.0].
	SpeechThreshold float64

	// SilenceThreshold is the energy level below which a frame counts toward
	// ending an active speech segment. Must be ≤ SpeechThreshold; the gap
	// between the two is the hysteresis band that prevents flickering.
	SilenceThreshold float64

	// MinSpeechFrames is how many consecutive speech frames are required
	// before an onset is reported. Zero selects the engine default.
	MinSpeechFrames int

	// MinSilenceFrames is how many consecutive silence frames are required
	// before the end of speech is reported. Zero selects the engine default.
	MinSilenceFrames int
}

// SessionHandle is an active VAD session for a single audio stream.
type SessionHandle interface {
	// ProcessFrame classifies one audio frame. The frame must be raw
	// little-endian int16 PCM matching the session's SampleRate and
	// FrameSizeMs. It must not block.
	ProcessFrame(frame []byte) (VADEvent, error)

	// Reset clears accumulated detection state without closing the session.
	// Use it when the stream restarts so stale counters from the previous
	// segment cannot leak into the next one.
	Reset()

	// Close releases the session. Calling Close more than once is safe and
	// returns nil; ProcessFrame after Close returns an error.
	Close() error
}

// Engine is the factory for VAD sessions, implemented by each backend.
//
// Implementations must allow concurrent NewSession calls.
type Engine interface {
	// NewSession creates a session ready to accept frames. Returns an error
	// if the configuration is invalid for this backend.
	NewSession(cfg Config) (SessionHandle, error)
}
