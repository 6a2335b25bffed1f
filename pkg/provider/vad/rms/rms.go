// Package rms implements an energy-based VAD engine in pure Go.
//
// Each frame's root-mean-square level is compared against two thresholds with
// hysteresis: the level must stay above SpeechThreshold for MinSpeechFrames
// consecutive frames before an onset is reported, and below SilenceThreshold
// for MinSilenceFrames before the segment ends. The band between the
// thresholds absorbs level jitter so the detector does not flicker.
//
// It is not as accurate as a model-based detector, but it has zero external
// dependencies and single-digit-microsecond frame cost, which makes it the
// default for gating barge-in.
package rms

import (
	"errors"
	"fmt"
	"math"

	"github.com/vocaprep/vocaprep/pkg/provider/vad"
)

// Defaults applied when the corresponding Config field is zero. Tuned for
// 16 kHz 20 ms frames: ~60 ms to trigger, ~500 ms of silence to release.
const (
	DefaultMinSpeechFrames  = 3
	DefaultMinSilenceFrames = 25
)

// ErrSessionClosed is returned by ProcessFrame after Close.
var ErrSessionClosed = errors.New("rms: session closed")

// Engine creates RMS VAD sessions. The zero value is ready to use.
type Engine struct{}

var _ vad.Engine = (*Engine)(nil)

// New returns a ready Engine.
func New() *Engine {
	return &Engine{}
}

// NewSession implements vad.Engine.
func (e *Engine) NewSession(cfg vad.Config) (vad.SessionHandle, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("rms: invalid sample rate %d", cfg.SampleRate)
	}
	if cfg.FrameSizeMs <= 0 {
		return nil, fmt.Errorf("rms: invalid frame size %dms", cfg.FrameSizeMs)
	}
	if cfg.SpeechThreshold <= 0 || cfg.SpeechThreshold > 1 {
		return nil, fmt.Errorf("rms: speech threshold %v out of range (0, 1]", cfg.SpeechThreshold)
	}
	if cfg.SilenceThreshold < 0 || cfg.SilenceThreshold > cfg.SpeechThreshold {
		return nil, fmt.Errorf("rms: silence threshold %v must be in [0, %v]", cfg.SilenceThreshold, cfg.SpeechThreshold)
	}

	minSpeech := cfg.MinSpeechFrames
	if minSpeech <= 0 {
		minSpeech = DefaultMinSpeechFrames
	}
	minSilence := cfg.MinSilenceFrames
	if minSilence <= 0 {
		minSilence = DefaultMinSilenceFrames
	}

	return &session{
		cfg:        cfg,
		frameBytes: 2 * cfg.SampleRate * cfg.FrameSizeMs / 1000,
		minSpeech:  minSpeech,
		minSilence: minSilence,
	}, nil
}

// session holds the hysteresis state for one audio stream. Not safe for
// concurrent use; the capture loop owns it.
type session struct {
	cfg        vad.Config
	frameBytes int
	minSpeech  int
	minSilence int

	inSpeech   bool
	speechRun  int
	silenceRun int
	closed     bool
}

var _ vad.SessionHandle = (*session)(nil)

// ProcessFrame implements vad.SessionHandle.
func (s *session) ProcessFrame(frame []byte) (vad.VADEvent, error) {
	if s.closed {
		return vad.VADEvent{}, ErrSessionClosed
	}
	if len(frame) != s.frameBytes {
		return vad.VADEvent{}, fmt.Errorf("rms: frame is %d bytes, want %d", len(frame), s.frameBytes)
	}

	level := rmsLevel(frame)
	prob := math.Min(1, level/s.cfg.SpeechThreshold)

	if s.inSpeech {
		if level < s.cfg.SilenceThreshold {
			s.silenceRun++
			if s.silenceRun >= s.minSilence {
				s.inSpeech = false
				s.silenceRun = 0
				return vad.VADEvent{Type: vad.VADSpeechEnd, Probability: prob}, nil
			}
		} else {
			s.silenceRun = 0
		}
		return vad.VADEvent{Type: vad.VADSpeechContinue, Probability: prob}, nil
	}

	if level >= s.cfg.SpeechThreshold {
		s.speechRun++
		if s.speechRun >= s.minSpeech {
			s.inSpeech = true
			s.speechRun = 0
			return vad.VADEvent{Type: vad.VADSpeechStart, Probability: prob}, nil
		}
	} else {
		s.speechRun = 0
	}
	return vad.VADEvent{Type: vad.VADSilence, Probability: prob}, nil
}

// Reset implements vad.SessionHandle.
func (s *session) Reset() {
	s.inSpeech = false
	s.speechRun = 0
	s.silenceRun = 0
}

// Close implements vad.SessionHandle.
func (s *session) Close() error {
	s.closed = true
	return nil
}

// rmsLevel computes the root-mean-square of a little-endian int16 PCM frame,
// normalised to [0, 1].
func rmsLevel(frame []byte) float64 {
	n := len(frame) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(frame[i*2]) | int16(frame[i*2+1])<<8
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(n))
}
