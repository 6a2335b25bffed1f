// Package feedback defines the Provider interface for post-interview
// feedback generation.
//
// A feedback provider takes the finished interview transcript and produces a
// written evaluation of the candidate's performance. It runs after the voice
// session has ended, so unlike the realtime providers it is a plain
// request/response API with no streaming or session state.
//
// Implementors must be safe for concurrent use.
package feedback

import "context"

// Turn is one committed exchange from the interview transcript.
type Turn struct {
	// Role is "user" (the candidate) or "agent" (the interviewer).
	Role string

	// Text is the full turn text.
	Text string
}

// Request carries everything the provider needs to evaluate an interview.
type Request struct {
	// Role is the job role the candidate interviewed for.
	Role string

	// InterviewType is the interview style, e.g. "technical" or "behavioral".
	InterviewType string

	// Questions is the planned question list, in asking order.
	Questions []string

	// Turns is the full reconciled transcript in commit order.
	Turns []Turn
}

// Provider generates a feedback report from a finished interview.
type Provider interface {
	// Generate produces the feedback report for req. It blocks until the
	// report is complete or ctx is cancelled.
	Generate(ctx context.Context, req Request) (string, error)
}
