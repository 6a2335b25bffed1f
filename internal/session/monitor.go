package session

import (
	"fmt"
	"sync"

	"github.com/vocaprep/vocaprep/pkg/provider/vad"
)

// SpeechMonitor wraps a VAD session over the live microphone PCM stream and
// pushes edge callbacks: onStart when a contiguous speech segment begins,
// onEnd when it falls back to silence. Each fires at most once per segment;
// consumers never poll.
//
// Captured frames arrive at arbitrary sizes, so the monitor buffers input and
// slices it into the fixed frame size the VAD session expects.
type SpeechMonitor struct {
	onStart func()
	onEnd   func()

	frameBytes int

	mu     sync.Mutex
	vs     vad.SessionHandle
	buf    []byte
	closed bool
}

// NewSpeechMonitor creates a monitor over an open VAD session. cfg must be
// the config the session was created with; it determines the frame size.
func NewSpeechMonitor(vs vad.SessionHandle, cfg vad.Config, onStart, onEnd func()) *SpeechMonitor {
	return &SpeechMonitor{
		onStart:    onStart,
		onEnd:      onEnd,
		frameBytes: 2 * cfg.SampleRate * cfg.FrameSizeMs / 1000,
		vs:         vs,
	}
}

// Process feeds captured 16-bit PCM into the classifier and fires any edge
// callbacks it produces. Callbacks run on the calling goroutine, outside the
// monitor's lock. After Stop, Process is a no-op.
func (m *SpeechMonitor) Process(pcm []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.buf = append(m.buf, pcm...)

	var fires []func()
	for len(m.buf) >= m.frameBytes {
		frame := m.buf[:m.frameBytes]
		m.buf = m.buf[m.frameBytes:]

		ev, err := m.vs.ProcessFrame(frame)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("speech monitor: %w", err)
		}
		switch ev.Type {
		case vad.VADSpeechStart:
			fires = append(fires, m.onStart)
		case vad.VADSpeechEnd:
			fires = append(fires, m.onEnd)
		}
	}
	m.mu.Unlock()

	for _, fire := range fires {
		if fire != nil {
			fire()
		}
	}
	return nil
}

// Stop closes the underlying VAD session. Safe to call multiple times; no
// callbacks fire after Stop returns.
func (m *SpeechMonitor) Stop() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	vs := m.vs
	m.buf = nil
	m.mu.Unlock()

	_ = vs.Close()
}
