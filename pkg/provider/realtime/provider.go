// Package realtime defines the Provider interface for full-duplex voice
// backends.
//
// A realtime provider wraps a speech-to-speech service that accepts raw audio
// input and returns synthesised audio output in a single, stateful session,
// with no separate STT → LLM → TTS pipeline. Examples are the Gemini Live API
// and the OpenAI Realtime API.
//
// The central abstraction is SessionHandle: a bidirectional session whose
// entire server-to-client traffic (audio, transcripts, turn boundaries,
// interruptions, tool calls) arrives on one ordered event channel. A single
// channel rather than one per payload type is deliberate: transcript
// fragments and the turn-complete marker that flushes them must be observed
// in protocol order.
//
// All implementations must be safe for concurrent use.
package realtime

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupported is returned (wrapped) by session operations a backend's
// protocol cannot express, such as Interrupt on providers without a cancel
// message. Callers check with errors.Is and degrade gracefully.
var ErrUnsupported = errors.New("realtime: operation not supported")

// ToolDefinition describes a function the model may invoke during the
// session. Parameters is a JSON Schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a function invocation requested by the model, surfaced as an
// EventToolCall event. Arguments is the JSON-encoded argument object.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ContextItem is a text message injected into the session's rolling context
// without waiting for the user to speak.
type ContextItem struct {
	// Role is the speaker role: "system", "user", or "assistant".
	Role string

	// Content is the text content of the context item.
	Content string
}

// SessionConfig is the initial configuration for a new session.
type SessionConfig struct {
	// Instructions is the system-level prompt defining the agent's persona
	// and behavioural constraints.
	Instructions string

	// Voice selects the provider voice for synthesised speech. Empty keeps
	// the provider default.
	Voice string

	// InputSampleRate is the rate of the PCM16 audio the caller will push
	// through SendAudio, in Hz. Zero means 16000.
	InputSampleRate int

	// Tools is the set of tool definitions offered to the model for the
	// whole session.
	Tools []ToolDefinition
}

// Capabilities describes static properties of a provider. The values are
// assumed constant for the lifetime of the Provider instance; callers branch
// on them instead of probing operations at runtime.
type Capabilities struct {
	// ContextWindow is the maximum token count (or provider-equivalent unit)
	// the model maintains across the session.
	ContextWindow int

	// MaxSessionDuration is the hard upper bound on session lifetime imposed
	// by the provider. Zero means no documented limit.
	MaxSessionDuration time.Duration

	// SupportsInterrupt reports whether Interrupt can cancel an in-flight
	// model response. When false, barge-in is handled locally only.
	SupportsInterrupt bool

	// Voices lists the voice identifiers available for this provider.
	Voices []string
}

// SessionHandle is an open duplex voice session.
//
// The session is the hot path of the voice pipeline; every method must
// return quickly. All methods are safe for concurrent use. Callers must call
// Close when the session is no longer needed.
type SessionHandle interface {
	// SendAudio delivers a raw PCM16 audio chunk to the provider. The chunk
	// must match the InputSampleRate negotiated at Connect time. Returns an
	// error if the session is closed or the transport rejects the write.
	SendAudio(chunk []byte) error

	// InjectText inserts context items into the session's rolling context in
	// order.
	InjectText(items []ContextItem) error

	// RespondTool returns a tool result to the model for the given call and
	// asks it to continue. result should be a JSON object; plain strings are
	// wrapped by the implementation.
	RespondTool(call ToolCall, result string) error

	// Interrupt asks the provider to stop generating the current response
	// and discard its buffered audio. Providers whose protocol has no cancel
	// message return an error wrapping ErrUnsupported.
	Interrupt() error

	// Events returns the ordered stream of server events. The channel is
	// closed when the session ends; after it closes, call Err to learn
	// whether the session ended cleanly. Consumers must drain promptly so
	// the receive loop does not stall.
	Events() <-chan Event

	// Err returns the error that terminated the session, or nil if it ended
	// cleanly.
	Err() error

	// Close terminates the session, releases resources, and closes the
	// Events channel. Calling Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any duplex voice backend.
//
// Implementations must be safe for concurrent use; the session registry may
// open multiple concurrent sessions.
type Provider interface {
	// Connect establishes a session and blocks until the provider has
	// acknowledged it (the setup handshake). The ctx deadline bounds the
	// whole handshake; on expiry the connection is torn down and an error
	// returned. The caller owns the handle and must Close it.
	Connect(ctx context.Context, cfg SessionConfig) (SessionHandle, error)

	// Capabilities returns static metadata about the backing model.
	Capabilities() Capabilities
}
