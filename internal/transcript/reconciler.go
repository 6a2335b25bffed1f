// Package transcript reconciles streamed transcript fragments into ordered
// conversation turns.
//
// Realtime voice providers emit recognised user speech and generated agent
// speech as interleaved partial fragments, with a turn-complete marker as the
// only reliable boundary. The [Reconciler] accumulates fragments per role and
// commits them into whole [Turn] values at each boundary, always flushing the
// user's utterance before the agent reply it provoked so the stored
// conversation reads in causal order.
package transcript

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Role identifies the speaker of a turn.
type Role string

const (
	// RoleUser is the human participant.
	RoleUser Role = "user"

	// RoleAgent is the model.
	RoleAgent Role = "agent"
)

// Turn is one committed utterance.
type Turn struct {
	// Role is the speaker.
	Role Role

	// Text is the full utterance text, fragments concatenated in arrival
	// order.
	Text string

	// CommittedAt is when the turn boundary was observed, not when speech
	// happened.
	CommittedAt time.Time
}

// AnomalyError reports a reconciliation inconsistency, such as a fragment
// attributed to a role the reconciler does not track. Anomalies are
// recoverable: the offending fragment is dropped and the session continues.
type AnomalyError struct {
	Reason string
}

func (e *AnomalyError) Error() string {
	return fmt.Sprintf("transcript: reconciliation anomaly: %s", e.Reason)
}

// Reconciler accumulates per-role transcript fragments and commits them into
// turns at turn boundaries. Safe for concurrent use.
type Reconciler struct {
	mu    sync.Mutex
	user  strings.Builder
	agent strings.Builder
	turns []Turn
	now   func() time.Time
}

// New returns an empty Reconciler.
func New() *Reconciler {
	return &Reconciler{now: time.Now}
}

// AddFragment appends a fragment to the accumulator for role. Fragments are
// concatenated exactly as received; providers include their own spacing.
// An unknown role is an anomaly: the fragment is dropped and an
// *AnomalyError returned.
func (r *Reconciler) AddFragment(role Role, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch role {
	case RoleUser:
		r.user.WriteString(text)
	case RoleAgent:
		r.agent.WriteString(text)
	default:
		return &AnomalyError{Reason: fmt.Sprintf("fragment for unknown role %q", role)}
	}
	return nil
}

// CommitTurn flushes both accumulators into committed turns and returns the
// turns created, user before agent. An accumulator holding only whitespace
// produces no turn; a turn boundary with nothing accumulated (a tool-only
// turn) is legal and returns nil.
func (r *Reconciler) CommitTurn() []Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commitLocked()
}

// Flush commits whatever is still accumulated. Called when the session ends
// so a partial agent reply interrupted mid-sentence is not lost.
func (r *Reconciler) Flush() []Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commitLocked()
}

func (r *Reconciler) commitLocked() []Turn {
	at := r.now()
	var committed []Turn

	// User precedes agent: the reply cannot causally come first.
	if text := strings.TrimSpace(r.user.String()); text != "" {
		committed = append(committed, Turn{Role: RoleUser, Text: text, CommittedAt: at})
	}
	r.user.Reset()

	if text := strings.TrimSpace(r.agent.String()); text != "" {
		committed = append(committed, Turn{Role: RoleAgent, Text: text, CommittedAt: at})
	}
	r.agent.Reset()

	r.turns = append(r.turns, committed...)
	return committed
}

// Turns returns a snapshot of every committed turn in commit order.
func (r *Reconciler) Turns() []Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Turn(nil), r.turns...)
}

// Pending reports whether either accumulator holds uncommitted text. Used by
// the session teardown path to decide whether a final Flush is needed.
func (r *Reconciler) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.TrimSpace(r.user.String()) != "" || strings.TrimSpace(r.agent.String()) != ""
}
