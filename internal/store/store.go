// Package store persists interview plans, committed transcripts, and
// generated feedback.
//
// Two implementations exist: [MemStore] for tests and single-process
// development, and [PostgresStore] for deployments. Both satisfy [Store].
package store

import (
	"context"
	"errors"

	"github.com/vocaprep/vocaprep/internal/interview"
	"github.com/vocaprep/vocaprep/internal/transcript"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence boundary for the interview domain.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// CreateInterview saves a new interview plan.
	CreateInterview(ctx context.Context, iv interview.Interview) error

	// Interview loads an interview plan by ID. Returns ErrNotFound (wrapped)
	// when it does not exist.
	Interview(ctx context.Context, id string) (interview.Interview, error)

	// SaveTurns appends committed transcript turns for a session, in order.
	SaveTurns(ctx context.Context, sessionID string, turns []transcript.Turn) error

	// Turns returns every saved turn for a session in commit order.
	Turns(ctx context.Context, sessionID string) ([]transcript.Turn, error)

	// SaveFeedback stores the generated feedback report for a session,
	// replacing any previous one.
	SaveFeedback(ctx context.Context, sessionID, feedback string) error

	// Feedback returns the feedback report for a session. Returns
	// ErrNotFound (wrapped) when none has been saved.
	Feedback(ctx context.Context, sessionID string) (string, error)

	// Close releases the store's resources.
	Close()
}
