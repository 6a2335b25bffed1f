// Package playback schedules inbound synthesized-speech buffers on a single
// shared output timeline with no audible gaps or overlaps.
//
// The core type is [Scheduler]: it accepts an unbounded sequence of
// [Item] values (each independently decodable PCM audio) and plays them in
// arrival order by maintaining a monotonic "next scheduled start time" cursor
// on the output clock. [Scheduler.Interrupt] supports barge-in: queued items
// are discarded atomically and the sounding buffer is faded out rather than
// hard-cut.
package playback

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vocaprep/vocaprep/pkg/audio"
)

// DefaultFade is the gain-ramp duration applied to the currently sounding
// buffer on interruption. Long enough to avoid an audible click, short enough
// that barge-in feels immediate.
const DefaultFade = 150 * time.Millisecond

// Item is queued inbound audio awaiting scheduled playback: raw little-endian
// int16 PCM plus its declared sample rate. Items are consumed by the
// scheduling pass or discarded wholesale on interruption.
type Item struct {
	Data       []byte
	SampleRate int
}

// Line is the audio output device the scheduler drives. Implementations must
// support scheduling a buffer at a future timestamp on the output clock and
// stopping immediately with an optional fade.
type Line interface {
	// Now returns the current position on the output clock.
	Now() time.Duration

	// PlayAt schedules pcm for playback starting at the given output-clock
	// position. Buffers scheduled back-to-back must play gapless.
	PlayAt(pcm []byte, sampleRate int, at time.Duration) error

	// Stop halts playback immediately. A positive fade applies a linear gain
	// ramp to zero over that duration before the hard stop; zero cuts hard.
	Stop(fade time.Duration)
}

// ErrBadItem is returned by the decode step for items that cannot be played:
// empty data, misaligned PCM, or a non-positive sample rate.
var ErrBadItem = errors.New("playback: undecodable item")

// Option configures a [Scheduler].
type Option func(*Scheduler)

// WithFade overrides the interruption fade duration.
func WithFade(d time.Duration) Option {
	return func(s *Scheduler) { s.fade = d }
}

// WithOutputRate makes the scheduler resample every item to the given rate
// before handing it to the line. Zero (the default) passes items through at
// their declared rate.
func WithOutputRate(rate int) Option {
	return func(s *Scheduler) { s.outputRate = rate }
}

// Scheduler plays items in arrival order on a single output timeline.
//
// Only one scheduling pass runs at a time: Enqueue from a concurrent caller
// while a pass is active appends to the queue and returns, and the running
// pass picks the item up. This guard is what keeps the cursor consistent —
// two interleaved passes could otherwise schedule overlapping buffers.
//
// All exported methods are safe for concurrent use.
type Scheduler struct {
	line       Line
	fade       time.Duration
	outputRate int

	mu      sync.Mutex
	queue   []Item
	running bool
	gen     uint64 // bumped on every interrupt
	cursor  time.Duration

	decodeErrs atomic.Int64
}

// New creates a Scheduler driving the given output line.
func New(line Line, opts ...Option) *Scheduler {
	s := &Scheduler{
		line: line,
		fade: DefaultFade,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Enqueue adds an item to the playback queue. If no scheduling pass is
// running, the calling goroutine runs one; otherwise the active pass will
// drain the item.
func (s *Scheduler) Enqueue(item Item) {
	s.mu.Lock()
	s.queue = append(s.queue, item)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.schedule()
}

// Interrupt discards all queued-but-not-yet-started items, fades out the
// currently sounding buffer, and resets the cursor so the next item starts
// "now". Items mid-decode in the scheduling pass are treated as queued and
// discarded: the pass re-checks the interrupt generation before scheduling.
func (s *Scheduler) Interrupt() int {
	s.mu.Lock()
	discarded := len(s.queue)
	s.queue = nil
	s.gen++
	s.cursor = 0
	s.mu.Unlock()

	s.line.Stop(s.fade)
	return discarded
}

// DecodeErrors returns the number of items skipped because they could not be
// decoded.
func (s *Scheduler) DecodeErrors() int64 {
	return s.decodeErrs.Load()
}

// Cursor returns the current "next scheduled start time" position.
// Intended for tests and diagnostics.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// schedule is the single scheduling pass. It pops items until the queue is
// empty, decoding each and placing it on the timeline. The pass owns
// s.running for its whole lifetime.
func (s *Scheduler) schedule() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		item := s.queue[0]
		s.queue = s.queue[1:]
		gen := s.gen
		s.mu.Unlock()

		pcm, rate, err := s.decode(item)
		if err != nil {
			// A corrupt item is skipped without stalling the pass; the cursor
			// is untouched so it cannot regress.
			s.decodeErrs.Add(1)
			slog.Warn("playback: skipping undecodable item",
				"bytes", len(item.Data),
				"sample_rate", item.SampleRate,
				"err", err,
			)
			continue
		}

		s.mu.Lock()
		if s.gen != gen {
			// Interrupted while this item was decoding: it never started
			// sounding, so it counts as queued and is discarded.
			s.mu.Unlock()
			continue
		}
		start := s.cursor
		s.mu.Unlock()

		// Line calls happen outside the lock so Enqueue and Interrupt stay
		// responsive while a buffer is handed over.
		if now := s.line.Now(); start < now {
			start = now
		}
		if err := s.line.PlayAt(pcm, rate, start); err != nil {
			slog.Warn("playback: line rejected buffer", "err", err)
			continue
		}

		s.mu.Lock()
		if s.gen == gen {
			s.cursor = start + audio.PCMDuration(len(pcm), rate)
		}
		s.mu.Unlock()
	}
}

// decode validates an item and converts it to the output rate if one is
// configured. Returns ErrBadItem for frames that cannot be played.
func (s *Scheduler) decode(item Item) ([]byte, int, error) {
	if len(item.Data) == 0 || len(item.Data)%2 != 0 || item.SampleRate <= 0 {
		return nil, 0, ErrBadItem
	}
	if s.outputRate > 0 && item.SampleRate != s.outputRate {
		pcm := audio.ResampleMono16(item.Data, item.SampleRate, s.outputRate)
		if len(pcm) == 0 {
			return nil, 0, ErrBadItem
		}
		return pcm, s.outputRate, nil
	}
	return item.Data, item.SampleRate, nil
}
