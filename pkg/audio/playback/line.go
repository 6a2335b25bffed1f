package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/vocaprep/vocaprep/pkg/audio"
)

// deliveryChunk is the granularity at which a scheduled buffer is handed to
// the sink. Small enough that a stop-with-fade lands within one chunk of the
// request, large enough to keep per-chunk overhead negligible.
const deliveryChunk = 20 * time.Millisecond

// SinkFunc receives PCM as it becomes audible. Called sequentially per
// buffer; it must not block for extended periods.
type SinkFunc func(pcm []byte, sampleRate int)

// stopSignal carries a fade duration to every in-flight play goroutine.
// fade is written before ch is closed and read only after, so the close
// provides the necessary ordering.
type stopSignal struct {
	ch   chan struct{}
	fade time.Duration
}

// WallClockLine is a [Line] implementation on the wall clock. Scheduled
// buffers are delivered to a sink callback in small sub-chunks as they become
// audible, which is what allows Stop to fade the tail of a buffer that is
// already sounding instead of cutting it.
type WallClockLine struct {
	sink  SinkFunc
	epoch time.Time

	mu   sync.Mutex
	stop *stopSignal
}

var _ Line = (*WallClockLine)(nil)

// NewWallClockLine creates a line whose output clock starts at zero now.
// sink must not be nil.
func NewWallClockLine(sink SinkFunc) *WallClockLine {
	return &WallClockLine{
		sink:  sink,
		epoch: time.Now(),
		stop:  &stopSignal{ch: make(chan struct{})},
	}
}

// Now implements [Line].
func (l *WallClockLine) Now() time.Duration {
	return time.Since(l.epoch)
}

// PlayAt implements [Line]. The buffer is delivered asynchronously starting
// at the requested clock position.
func (l *WallClockLine) PlayAt(pcm []byte, sampleRate int, at time.Duration) error {
	if len(pcm) == 0 || sampleRate <= 0 {
		return fmt.Errorf("playback: invalid buffer (%d bytes, rate %d)", len(pcm), sampleRate)
	}

	l.mu.Lock()
	stop := l.stop
	l.mu.Unlock()

	go l.play(pcm, sampleRate, at, stop)
	return nil
}

// Stop implements [Line]. Buffers not yet sounding are discarded wholesale;
// the sounding buffer gets a linear gain ramp over fade before the hard stop.
// Buffers scheduled after Stop returns are unaffected.
func (l *WallClockLine) Stop(fade time.Duration) {
	l.mu.Lock()
	l.stop.fade = fade
	close(l.stop.ch)
	l.stop = &stopSignal{ch: make(chan struct{})}
	l.mu.Unlock()
}

// play waits until the buffer's start position, then streams it to the sink
// chunk by chunk, honouring the stop signal captured at schedule time.
func (l *WallClockLine) play(pcm []byte, sampleRate int, at time.Duration, stop *stopSignal) {
	if delay := at - l.Now(); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-stop.ch:
			timer.Stop()
			return // never started sounding
		case <-timer.C:
		}
	}

	chunkBytes := 2 * int(int64(sampleRate)*int64(deliveryChunk)/int64(time.Second))
	if chunkBytes < 2 {
		chunkBytes = 2
	}

	ticker := time.NewTicker(deliveryChunk)
	defer ticker.Stop()

	for off := 0; off < len(pcm); {
		end := off + chunkBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		l.sink(pcm[off:end], sampleRate)
		off = end
		if off >= len(pcm) {
			return
		}

		select {
		case <-stop.ch:
			fadeSamples := int(int64(sampleRate) * int64(stop.fade) / int64(time.Second))
			if tail := audio.FadeTail(pcm[off:], fadeSamples); tail != nil {
				l.sink(tail, sampleRate)
			}
			return
		case <-ticker.C:
		}
	}
}
