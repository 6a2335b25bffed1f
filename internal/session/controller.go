// Package session owns the lifecycle of one realtime interview session: the
// connecting/active/interrupting/ending state machine, the outbound audio
// path from capture to the realtime backend, the inbound event routing to
// playback and transcript reconciliation, and the barge-in protocol driven by
// VAD edges.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vocaprep/vocaprep/internal/interview"
	"github.com/vocaprep/vocaprep/internal/store"
	"github.com/vocaprep/vocaprep/internal/transcript"
	"github.com/vocaprep/vocaprep/pkg/audio"
	"github.com/vocaprep/vocaprep/pkg/audio/playback"
	"github.com/vocaprep/vocaprep/pkg/provider/feedback"
	"github.com/vocaprep/vocaprep/pkg/provider/realtime"
	"github.com/vocaprep/vocaprep/pkg/provider/vad"
)

// concludeToolName is the function the realtime model calls to end the
// interview.
const concludeToolName = "conclude_interview"

// Defaults applied by NewController for zero-value config fields.
const (
	defaultTargetSampleRate = 16000
	defaultHandshakeTimeout = 10 * time.Second
	defaultTeardownTimeout  = 30 * time.Second
)

// Config wires one session's collaborators. Realtime, VAD, Capture, Line,
// Store, and Feedback are required.
type Config struct {
	// SessionID identifies the session in the registry and the store.
	SessionID string

	// Interview is the plan to execute. Must contain at least one question.
	Interview interview.Interview

	// Realtime is the conversational-AI backend.
	Realtime realtime.Provider

	// Voice is the backend voice name, empty for the provider default.
	Voice string

	// VAD is the engine classifying the microphone stream, VADConfig its
	// session configuration.
	VAD       vad.Engine
	VADConfig vad.Config

	// Capture yields raw floating-point microphone frames.
	Capture audio.CaptureSource

	// Line is the audio output the playback scheduler drives.
	Line playback.Line

	// Store persists the conversation log and feedback report.
	Store store.Store

	// Feedback generates the post-interview report.
	Feedback feedback.Provider

	// TargetSampleRate is the PCM rate sent to the backend. Defaults to 16000.
	TargetSampleRate int

	// HandshakeTimeout bounds the remote handshake. Defaults to 10s.
	HandshakeTimeout time.Duration

	// InterruptFade is the gain-ramp duration applied on barge-in. Defaults
	// to playback.DefaultFade.
	InterruptFade time.Duration

	// Logger receives session events. Defaults to slog.Default.
	Logger *slog.Logger

	// OnTerminal, if set, is called exactly once when the session reaches
	// ended or errored, after cleanup. The registry uses it to drop its entry.
	OnTerminal func(*Controller)
}

// Stats is a snapshot of the session's audio-path counters.
type Stats struct {
	// SentFrames is the number of outbound frames delivered to the backend.
	SentFrames int64

	// DroppedFrames counts frames dropped under backpressure. Frames are
	// dropped oldest-first and never reordered.
	DroppedFrames int64

	// Interruptions counts barge-in events.
	Interruptions int64

	// DecodeErrors counts inbound audio items the playback scheduler skipped
	// as undecodable.
	DecodeErrors int64
}

type ctrlKind int

const (
	ctrlSpeechStart ctrlKind = iota
	ctrlSpeechEnd
	ctrlStop
)

// Controller runs one interview session. Create it with NewController, drive
// it with Start, and observe it with State, Wait, and Err. All exported
// methods are safe for concurrent use.
type Controller struct {
	cfg   Config
	log   *slog.Logger
	sched *playback.Scheduler
	rec   *transcript.Reconciler
	track *interview.CoverageTracker

	// outbound is the one-in-flight send slot. A frame waiting here while the
	// sender is busy is displaced by the next frame (drop-oldest).
	outbound chan []byte
	control  chan ctrlKind
	done     chan struct{}

	mu      sync.Mutex
	state   State
	termErr error
	sess    realtime.SessionHandle
	monitor *SpeechMonitor

	termOnce sync.Once
	wg       sync.WaitGroup

	sent       atomic.Int64
	dropped    atomic.Int64
	interrupts atomic.Int64
}

// NewController validates cfg and builds an idle session.
func NewController(cfg Config) (*Controller, error) {
	switch {
	case cfg.SessionID == "":
		return nil, fmt.Errorf("session: SessionID must not be empty")
	case cfg.Realtime == nil:
		return nil, fmt.Errorf("session: Realtime provider is required")
	case cfg.VAD == nil:
		return nil, fmt.Errorf("session: VAD engine is required")
	case cfg.Capture == nil:
		return nil, fmt.Errorf("session: Capture source is required")
	case cfg.Line == nil:
		return nil, fmt.Errorf("session: output Line is required")
	case cfg.Store == nil:
		return nil, fmt.Errorf("session: Store is required")
	case cfg.Feedback == nil:
		return nil, fmt.Errorf("session: Feedback provider is required")
	}

	if cfg.TargetSampleRate <= 0 {
		cfg.TargetSampleRate = defaultTargetSampleRate
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.InterruptFade <= 0 {
		cfg.InterruptFade = playback.DefaultFade
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("session_id", cfg.SessionID)

	return &Controller{
		cfg:      cfg,
		log:      log,
		sched:    playback.New(cfg.Line, playback.WithFade(cfg.InterruptFade)),
		rec:      transcript.New(),
		track:    interview.NewTracker(cfg.Interview.Questions),
		outbound: make(chan []byte, 1),
		control:  make(chan ctrlKind),
		done:     make(chan struct{}),
		state:    StateIdle,
	}, nil
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.cfg.SessionID }

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the terminal error, non-nil only in the errored state.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.termErr
}

// Stats returns a snapshot of the audio-path counters.
func (c *Controller) Stats() Stats {
	return Stats{
		SentFrames:    c.sent.Load(),
		DroppedFrames: c.dropped.Load(),
		Interruptions: c.interrupts.Load(),
		DecodeErrors:  c.sched.DecodeErrors(),
	}
}

// Done returns a channel closed when the session reaches a terminal state.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Wait blocks until the session is terminal or ctx expires.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Turns returns the conversation log committed so far.
func (c *Controller) Turns() []transcript.Turn { return c.rec.Turns() }

// Start drives idle → connecting → active. It fails fast with a
// *PreconditionError when the interview has no questions (no transport dial
// is attempted, state stays idle), and with a *TransportError or
// *CaptureError when the handshake or the VAD setup fails (state errored).
// On success the session loops run in background goroutines until a terminal
// state is reached.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("session: start from %s", state)
	}
	if len(c.cfg.Interview.Questions) == 0 {
		c.mu.Unlock()
		return &PreconditionError{Reason: "interview has no questions"}
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.log.Info("session connecting",
		"role", c.cfg.Interview.Role,
		"type", c.cfg.Interview.Type,
		"questions", len(c.cfg.Interview.Questions),
	)

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()

	sess, err := c.cfg.Realtime.Connect(dialCtx, realtime.SessionConfig{
		Instructions:    Instructions(c.cfg.Interview),
		Voice:           c.cfg.Voice,
		InputSampleRate: c.cfg.TargetSampleRate,
		Tools:           []realtime.ToolDefinition{concludeTool()},
	})
	if err != nil {
		terr := &TransportError{Op: "handshake", Err: err}
		c.fail(terr)
		return terr
	}

	vs, err := c.cfg.VAD.NewSession(c.cfg.VADConfig)
	if err != nil {
		_ = sess.Close()
		cerr := &CaptureError{Err: fmt.Errorf("vad session: %w", err)}
		c.fail(cerr)
		return cerr
	}

	monitor := NewSpeechMonitor(vs, c.cfg.VADConfig,
		func() { c.signal(ctrlSpeechStart) },
		func() { c.signal(ctrlSpeechEnd) },
	)

	c.mu.Lock()
	c.sess = sess
	c.monitor = monitor
	c.state = StateActive
	c.mu.Unlock()

	c.log.Info("session active")

	c.wg.Add(3)
	go func() { defer c.wg.Done(); c.captureLoop() }()
	go func() { defer c.wg.Done(); c.sendLoop() }()
	go func() { defer c.wg.Done(); c.runLoop(ctx) }()
	return nil
}

// Stop requests a user-initiated end of the session and waits for teardown.
func (c *Controller) Stop(ctx context.Context) error {
	select {
	case c.control <- ctrlStop:
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// signal serializes a VAD edge onto the run loop.
func (c *Controller) signal(kind ctrlKind) {
	select {
	case c.control <- kind:
	case <-c.done:
	}
}

// captureLoop converts microphone frames to target-rate PCM, offers them to
// the send slot, and feeds the speech monitor. A closed frame channel with a
// capture error moves the session to errored.
func (c *Controller) captureLoop() {
	for frame := range c.cfg.Capture.Frames() {
		pcm := audio.PCM16FromFloat(frame.Samples, frame.SampleRate, c.cfg.TargetSampleRate)
		if len(pcm) == 0 {
			continue
		}
		c.offer(pcm)
		if err := c.monitorRef().Process(pcm); err != nil {
			c.log.Warn("speech monitor rejected frame", "err", err)
		}
	}
	if err := c.cfg.Capture.Err(); err != nil {
		c.fail(&CaptureError{Err: err})
	}
}

// offer places pcm in the send slot. When the slot is occupied the waiting
// frame is displaced and counted as dropped; frames are never reordered.
func (c *Controller) offer(pcm []byte) {
	select {
	case c.outbound <- pcm:
		return
	default:
	}
	select {
	case <-c.outbound:
		c.dropped.Add(1)
	default:
	}
	select {
	case c.outbound <- pcm:
	default:
		c.dropped.Add(1)
	}
}

// sendLoop drains the send slot one frame at a time. The in-flight SendAudio
// call is the backpressure boundary.
func (c *Controller) sendLoop() {
	for {
		select {
		case <-c.done:
			return
		case pcm := <-c.outbound:
			sess := c.sessionRef()
			if sess == nil {
				return
			}
			if err := sess.SendAudio(pcm); err != nil {
				// Teardown closes the transport while frames may still be in
				// flight; only a failure during active play is a transport error.
				if st := c.State(); st == StateActive || st == StateInterrupting {
					c.fail(&TransportError{Op: "send audio", Err: err})
				}
				return
			}
			c.sent.Add(1)
		}
	}
}

// runLoop is the session's single event loop: every inbound server event and
// every VAD edge is handled here, so state transitions never race.
func (c *Controller) runLoop(ctx context.Context) {
	events := c.sessionRef().Events()
	for {
		select {
		case <-ctx.Done():
			c.fail(&TransportError{Op: "session context", Err: ctx.Err()})
			return
		case <-c.done:
			return
		case kind := <-c.control:
			if c.handleControl(kind) {
				return
			}
		case ev, ok := <-events:
			if !ok {
				err := c.sessionRef().Err()
				if err == nil {
					err = errors.New("connection closed by remote")
				}
				c.fail(&TransportError{Op: "event stream", Err: err})
				return
			}
			if c.handleEvent(ev) {
				return
			}
		}
	}
}

// handleControl processes a serialized VAD edge or stop request. Returns true
// when the run loop should exit.
func (c *Controller) handleControl(kind ctrlKind) bool {
	switch kind {
	case ctrlSpeechStart:
		if c.State() != StateActive {
			return false
		}
		c.setState(StateInterrupting)
		discarded := c.sched.Interrupt()
		c.interrupts.Add(1)
		// Local playback cancellation is authoritative; the remote signal is
		// best effort and some backends do not support it.
		if err := c.sessionRef().Interrupt(); err != nil && !errors.Is(err, realtime.ErrUnsupported) {
			c.log.Warn("remote interrupt failed", "err", err)
		}
		c.log.Info("barge-in", "discarded_items", discarded)
	case ctrlSpeechEnd:
		if c.State() == StateInterrupting {
			c.setState(StateActive)
		}
	case ctrlStop:
		c.finishEnding("user stop")
		return true
	}
	return false
}

// handleEvent routes one inbound server event. Returns true when the run loop
// should exit.
func (c *Controller) handleEvent(ev realtime.Event) bool {
	switch ev.Kind {
	case realtime.EventAudio:
		c.sched.Enqueue(playback.Item{Data: ev.Audio, SampleRate: ev.SampleRate})

	case realtime.EventUserTranscript:
		if err := c.rec.AddFragment(transcript.RoleUser, ev.Text); err != nil {
			c.log.Warn("dropped transcript fragment", "err", err)
		}

	case realtime.EventAgentTranscript:
		if err := c.rec.AddFragment(transcript.RoleAgent, ev.Text); err != nil {
			c.log.Warn("dropped transcript fragment", "err", err)
		}

	case realtime.EventTurnComplete:
		for _, turn := range c.rec.CommitTurn() {
			if turn.Role != transcript.RoleAgent {
				continue
			}
			for _, q := range c.track.Observe(turn.Text) {
				c.log.Info("question asked", "question_id", q.ID)
			}
		}

	case realtime.EventInterrupted:
		// Server-side barge-in detection; cancel local playback to match.
		c.sched.Interrupt()

	case realtime.EventToolCall:
		if ev.Tool.Name != concludeToolName {
			c.log.Warn("unhandled tool call", "name", ev.Tool.Name)
			return false
		}
		if err := c.sessionRef().RespondTool(ev.Tool, `{"status":"concluding"}`); err != nil {
			c.log.Warn("tool response failed", "err", err)
		}
		c.finishEnding("interview concluded")
		return true

	case realtime.EventError:
		c.fail(&TransportError{Op: "server event", Err: ev.Err})
		return true
	}
	return false
}

// finishEnding drives ending → ended: detach the VAD, close capture and the
// transport, flush the conversation log, persist it, and generate feedback.
// Persistence and feedback failures are logged, not fatal; the transcript
// order is already fixed at this point.
func (c *Controller) finishEnding(reason string) {
	c.setState(StateEnding)
	c.log.Info("session ending", "reason", reason)

	c.monitorRef().Stop()
	_ = c.cfg.Capture.Close()

	c.rec.Flush()
	turns := c.rec.Turns()

	_ = c.sessionRef().Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTeardownTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.cfg.Store.SaveTurns(gctx, c.cfg.SessionID, turns); err != nil {
			return fmt.Errorf("persist transcript: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if len(turns) == 0 {
			return nil
		}
		report, err := c.cfg.Feedback.Generate(gctx, feedbackRequest(c.cfg.Interview, turns))
		if err != nil {
			return fmt.Errorf("generate feedback: %w", err)
		}
		if err := c.cfg.Store.SaveFeedback(gctx, c.cfg.SessionID, report); err != nil {
			return fmt.Errorf("persist feedback: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		c.log.Error("session teardown incomplete", "err", err)
	}

	c.terminate(StateEnded, nil)
}

// fail moves the session to errored and tears everything down best effort.
func (c *Controller) fail(err error) {
	if m := c.monitorRef(); m != nil {
		m.Stop()
	}
	_ = c.cfg.Capture.Close()
	if s := c.sessionRef(); s != nil {
		_ = s.Close()
	}
	c.sched.Interrupt()
	c.terminate(StateErrored, err)
}

// terminate records the terminal state exactly once.
func (c *Controller) terminate(state State, err error) {
	c.termOnce.Do(func() {
		c.mu.Lock()
		c.state = state
		c.termErr = err
		c.mu.Unlock()
		close(c.done)

		if err != nil {
			c.log.Error("session errored", "cause", err)
		} else {
			c.log.Info("session ended",
				"turns", len(c.rec.Turns()),
				"questions_covered", len(c.track.Covered()),
				"dropped_frames", c.dropped.Load(),
			)
		}
		if c.cfg.OnTerminal != nil {
			c.cfg.OnTerminal(c)
		}
	})
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) sessionRef() realtime.SessionHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

func (c *Controller) monitorRef() *SpeechMonitor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitor
}

// concludeTool declares the function the model calls to end the interview.
func concludeTool() realtime.ToolDefinition {
	return realtime.ToolDefinition{
		Name:        concludeToolName,
		Description: "Call when every planned question has been asked and answered, after thanking the candidate.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"closing_remark": map[string]any{
					"type":        "string",
					"description": "A short closing remark to the candidate.",
				},
			},
		},
	}
}

// feedbackRequest renders the interview plan and conversation log into a
// feedback provider request.
func feedbackRequest(iv interview.Interview, turns []transcript.Turn) feedback.Request {
	req := feedback.Request{
		Role:          iv.Role,
		InterviewType: iv.Type,
	}
	for _, q := range iv.Questions {
		req.Questions = append(req.Questions, q.Text)
	}
	for _, t := range turns {
		req.Turns = append(req.Turns, feedback.Turn{Role: string(t.Role), Text: t.Text})
	}
	return req
}
