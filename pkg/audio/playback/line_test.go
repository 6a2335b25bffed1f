package playback_test

import (
	"sync"
	"testing"
	"time"

	"github.com/vocaprep/vocaprep/pkg/audio/playback"
)

type sinkRecorder struct {
	mu    sync.Mutex
	bytes int
	rate  int
}

func (r *sinkRecorder) sink(pcm []byte, sampleRate int) {
	r.mu.Lock()
	r.bytes += len(pcm)
	r.rate = sampleRate
	r.mu.Unlock()
}

func (r *sinkRecorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytes
}

func TestWallClockLineDeliversWholeBuffer(t *testing.T) {
	rec := &sinkRecorder{}
	line := playback.NewWallClockLine(rec.sink)

	buf := pcm(40*time.Millisecond, 16000)
	if err := line.PlayAt(buf, 16000, 0); err != nil {
		t.Fatalf("PlayAt: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for rec.total() < len(buf) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := rec.total(); got != len(buf) {
		t.Fatalf("delivered %d bytes, want %d", got, len(buf))
	}

	rec.mu.Lock()
	rate := rec.rate
	rec.mu.Unlock()
	if rate != 16000 {
		t.Errorf("rate: got %d, want 16000", rate)
	}
}

func TestWallClockLineRejectsBadBuffer(t *testing.T) {
	line := playback.NewWallClockLine(func([]byte, int) {})
	if err := line.PlayAt(nil, 16000, 0); err == nil {
		t.Error("expected error for empty buffer")
	}
	if err := line.PlayAt([]byte{0, 0}, 0, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestWallClockLineStopHaltsDelivery(t *testing.T) {
	rec := &sinkRecorder{}
	line := playback.NewWallClockLine(rec.sink)

	buf := pcm(2*time.Second, 16000)
	if err := line.PlayAt(buf, 16000, 0); err != nil {
		t.Fatalf("PlayAt: %v", err)
	}

	// Let a few chunks through, then stop with a fade.
	deadline := time.Now().Add(2 * time.Second)
	for rec.total() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	line.Stop(50 * time.Millisecond)

	// Delivery must cease: the total stabilises well short of the buffer.
	time.Sleep(150 * time.Millisecond)
	settled := rec.total()
	time.Sleep(150 * time.Millisecond)
	if got := rec.total(); got != settled {
		t.Errorf("delivery continued after stop: %d then %d bytes", settled, got)
	}
	if settled >= len(buf) {
		t.Errorf("stop did not truncate playback: delivered %d of %d bytes", settled, len(buf))
	}
}

func TestWallClockLineStopDiscardsPendingBuffer(t *testing.T) {
	rec := &sinkRecorder{}
	line := playback.NewWallClockLine(rec.sink)

	// Scheduled far in the future, so it never starts sounding.
	buf := pcm(40*time.Millisecond, 16000)
	if err := line.PlayAt(buf, 16000, line.Now()+time.Hour); err != nil {
		t.Fatalf("PlayAt: %v", err)
	}
	line.Stop(0)

	time.Sleep(100 * time.Millisecond)
	if got := rec.total(); got != 0 {
		t.Errorf("pending buffer should be discarded wholesale, got %d bytes", got)
	}
}
