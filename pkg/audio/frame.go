package audio

import (
	"fmt"
	"time"
)

// FloatFrame is a single frame of captured audio: floating-point samples in
// [-1.0, 1.0] at the capture device's native sample rate. Frames are
// ephemeral — produced by a capture source and consumed by the conversion
// pipeline within the same tick. Ownership transfers between pipeline stages;
// a frame must not be mutated after it has been handed off.
type FloatFrame struct {
	// Samples holds mono floating-point samples. Values outside [-1, 1] are
	// clamped during PCM conversion.
	Samples []float32

	// SampleRate in Hz as reported by the capture device.
	SampleRate int
}

// AudioFrame represents a frame of little-endian 16-bit PCM audio flowing
// through the pipeline after conversion. Frames are the atomic unit of audio
// transport — produced by the resampler, inspected by VAD, and sent to the
// realtime backend.
type AudioFrame struct {
	// Data is little-endian int16 PCM.
	Data []byte

	// SampleRate in Hz (16000 for the realtime backends).
	SampleRate int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the playback duration of the frame.
func (f AudioFrame) Duration() time.Duration {
	return PCMDuration(len(f.Data), f.SampleRate)
}

// EncodedChunk is the wire representation of one PCM frame: base64 text plus
// declared mime/sample-rate metadata. Immutable once created.
type EncodedChunk struct {
	// Data is standard base64-encoded little-endian int16 PCM.
	Data string

	// MIMEType declares the payload format, e.g. "audio/pcm;rate=16000".
	MIMEType string

	// SampleRate in Hz of the encoded PCM.
	SampleRate int
}

// CaptureSource is an audio capture device yielding raw floating-point
// frames at a device-reported sample rate. Implementations close the Frames
// channel when the stream ends; Err reports why.
type CaptureSource interface {
	// Frames returns the channel on which captured frames arrive. The channel
	// is closed when capture stops, whether cleanly or on device failure.
	Frames() <-chan FloatFrame

	// Err returns the error that terminated capture, or nil if capture ended
	// cleanly. Only valid after the Frames channel has closed.
	Err() error

	// Close stops capture and releases the device. Idempotent.
	Close() error
}

// PCMDuration returns the playback duration of byteLen bytes of mono 16-bit
// PCM at the given sample rate. Returns zero for a non-positive rate.
func PCMDuration(byteLen, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := byteLen / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// MIMEForRate returns the PCM mime string declared on outbound chunks.
func MIMEForRate(sampleRate int) string {
	return fmt.Sprintf("audio/pcm;rate=%d", sampleRate)
}
