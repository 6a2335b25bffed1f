package session

import "fmt"

// PreconditionError reports a session that was asked to start without its
// required setup, e.g. an interview with no questions. The session never
// leaves idle and no transport connection is attempted.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "session: precondition: " + e.Reason
}

// TransportError reports a remote handshake or mid-session transport failure.
// The session moves to errored and is not retried; mid-interview reconnection
// would silently lose the conversational context the remote endpoint holds.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("session: transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// CaptureError reports a microphone or capture-device failure. It is surfaced
// as a distinct cause from TransportError because the user's corrective action
// differs: fix device permissions rather than restart the connection.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("session: capture: %v", e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }
