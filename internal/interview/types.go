// Package interview holds the domain model for a mock interview: the planned
// question list and the coverage tracking that decides when the interviewer
// agent has worked through it.
package interview

import "time"

// Question is one planned interview question.
type Question struct {
	// ID uniquely identifies the question within its interview.
	ID string

	// Text is the question as it should be asked.
	Text string

	// Order is the intended 1-based asking position.
	Order int
}

// Interview describes one mock-interview setup. It is the static plan a
// voice session executes against; the session itself lives in the session
// package.
type Interview struct {
	// ID uniquely identifies the interview.
	ID string

	// Role is the job role being interviewed for.
	Role string

	// Type is the interview style, e.g. "technical" or "behavioral".
	Type string

	// Questions is the planned question list, in asking order.
	Questions []Question

	// CreatedAt is when the interview was set up.
	CreatedAt time.Time
}
