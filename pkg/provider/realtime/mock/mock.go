// Package mock provides test doubles for the realtime package interfaces.
//
// Use Provider to verify Connect configuration and inject a scripted Session.
// Use Session to push events into the stream a consumer is draining and to
// inspect the audio, text, and control messages it sent.
package mock

import (
	"context"
	"sync"

	"github.com/vocaprep/vocaprep/pkg/provider/realtime"
)

// ConnectCall records a single invocation of Provider.Connect.
type ConnectCall struct {
	// Cfg is the SessionConfig passed to Connect.
	Cfg realtime.SessionConfig
}

// Provider is a mock implementation of realtime.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is the SessionHandle returned by Connect. If nil, Connect
	// returns a new default Session.
	Session realtime.SessionHandle

	// ConnectErr, if non-nil, is returned as the error from Connect.
	ConnectErr error

	// Caps is returned by Capabilities.
	Caps realtime.Capabilities

	// ConnectCalls records every call to Connect in order.
	ConnectCalls []ConnectCall
}

// Connect records the call and returns Session, ConnectErr. It honours ctx
// cancellation so handshake-timeout paths can be tested.
func (p *Provider) Connect(ctx context.Context, cfg realtime.SessionConfig) (realtime.SessionHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{Cfg: cfg})
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	if p.Session != nil {
		return p.Session, nil
	}
	return NewSession(), nil
}

// Capabilities returns Caps.
func (p *Provider) Capabilities() realtime.Capabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Caps
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = nil
}

// Ensure Provider implements realtime.Provider at compile time.
var _ realtime.Provider = (*Provider)(nil)

// RespondToolCall records a single invocation of Session.RespondTool.
type RespondToolCall struct {
	Call   realtime.ToolCall
	Result string
}

// Session is a mock implementation of realtime.SessionHandle. Create it with
// NewSession so the events channel exists.
type Session struct {
	mu sync.Mutex

	events chan realtime.Event

	// SendAudioErr, if non-nil, is returned by every SendAudio call.
	SendAudioErr error

	// InterruptErr, if non-nil, is returned by Interrupt.
	InterruptErr error

	// ErrVal is returned by Err.
	ErrVal error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// SentAudio records a copy of every chunk passed to SendAudio.
	SentAudio [][]byte

	// InjectedText records every item passed to InjectText, flattened.
	InjectedText []realtime.ContextItem

	// RespondToolCalls records every call to RespondTool in order.
	RespondToolCalls []RespondToolCall

	// InterruptCallCount is the number of times Interrupt was called.
	InterruptCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int

	closed bool
}

// NewSession returns a Session with a buffered events channel ready for
// Emit.
func NewSession() *Session {
	return &Session{events: make(chan realtime.Event, 64)}
}

// Emit pushes an event onto the session's stream.
func (s *Session) Emit(ev realtime.Event) {
	s.events <- ev
}

// EndStream closes the events channel, simulating session termination. Set
// ErrVal first to simulate an abnormal end.
func (s *Session) EndStream() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// SendAudio records the chunk and returns SendAudioErr.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.SentAudio = append(s.SentAudio, cp)
	return s.SendAudioErr
}

// InjectText records the items.
func (s *Session) InjectText(items []realtime.ContextItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InjectedText = append(s.InjectedText, items...)
	return nil
}

// RespondTool records the call.
func (s *Session) RespondTool(call realtime.ToolCall, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RespondToolCalls = append(s.RespondToolCalls, RespondToolCall{Call: call, Result: result})
	return nil
}

// Interrupt records the call and returns InterruptErr.
func (s *Session) Interrupt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InterruptCallCount++
	return s.InterruptErr
}

// Events returns the mock event stream.
func (s *Session) Events() <-chan realtime.Event { return s.events }

// Err returns ErrVal.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ErrVal
}

// Close records the call, closes the event stream, and returns CloseErr.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return s.CloseErr
}

// AudioChunks returns a snapshot of the recorded SendAudio chunks.
func (s *Session) AudioChunks() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.SentAudio...)
}

// Ensure Session implements realtime.SessionHandle at compile time.
var _ realtime.SessionHandle = (*Session)(nil)
