package realtime

// EventKind discriminates the payload of an Event.
type EventKind int

const (
	// EventAudio carries a decoded PCM16 chunk of synthesised agent speech.
	EventAudio EventKind = iota

	// EventUserTranscript carries a fragment of the user's recognised speech.
	EventUserTranscript

	// EventAgentTranscript carries a fragment of the agent's spoken text.
	EventAgentTranscript

	// EventTurnComplete marks the end of a model turn. Transcript fragments
	// received before it belong to the turn it closes.
	EventTurnComplete

	// EventInterrupted signals that the provider aborted its own response,
	// usually because server-side VAD detected the user speaking.
	EventInterrupted

	// EventToolCall carries a function invocation requested by the model.
	EventToolCall

	// EventError carries a non-fatal error reported by the provider. Fatal
	// transport errors close the Events channel instead and surface via Err.
	EventError
)

// String returns the kind name for logs.
func (k EventKind) String() string {
	switch k {
	case EventAudio:
		return "audio"
	case EventUserTranscript:
		return "user_transcript"
	case EventAgentTranscript:
		return "agent_transcript"
	case EventTurnComplete:
		return "turn_complete"
	case EventInterrupted:
		return "interrupted"
	case EventToolCall:
		return "tool_call"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one item on a session's ordered event stream. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind EventKind

	// Audio is the PCM16 payload for EventAudio.
	Audio []byte

	// SampleRate is the rate of Audio in Hz.
	SampleRate int

	// Text is the fragment for EventUserTranscript and EventAgentTranscript.
	Text string

	// Tool is the invocation for EventToolCall.
	Tool ToolCall

	// Err is the provider-reported error for EventError.
	Err error
}
