package vad

// VADEvent is the detection result for a single audio frame.
type VADEvent struct {
	// Type is the detection result.
	Type VADEventType

	// Probability is a rough speech likelihood in [0.0, 1.0]. Energy-based
	// engines derive it from the frame level; it is not a model posterior.
	Probability float64
}

// VADEventType enumerates VAD detection states. Start and End are edges and
// fire exactly once per transition.
type VADEventType int

const (
	// VADSilence indicates no speech detected. It is the zero value.
	VADSilence VADEventType = iota

	// VADSpeechStart indicates speech has just begun.
	VADSpeechStart

	// VADSpeechContinue indicates ongoing speech.
	VADSpeechContinue

	// VADSpeechEnd indicates speech has just ended.
	VADSpeechEnd
)

// String returns the event type name for logs.
func (t VADEventType) String() string {
	switch t {
	case VADSpeechStart:
		return "speech_start"
	case VADSpeechContinue:
		return "speech_continue"
	case VADSpeechEnd:
		return "speech_end"
	case VADSilence:
		return "silence"
	default:
		return "unknown"
	}
}
