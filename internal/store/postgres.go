package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vocaprep/vocaprep/internal/interview"
	"github.com/vocaprep/vocaprep/internal/transcript"
)

var _ Store = (*PostgresStore)(nil)

const ddlInterviews = `
CREATE TABLE IF NOT EXISTS interviews (
    id          TEXT         PRIMARY KEY,
    role        TEXT         NOT NULL,
    type        TEXT         NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS interview_questions (
    interview_id  TEXT  NOT NULL REFERENCES interviews (id) ON DELETE CASCADE,
    id            TEXT  NOT NULL,
    text          TEXT  NOT NULL,
    ord           INT   NOT NULL,
    PRIMARY KEY (interview_id, id)
);

CREATE INDEX IF NOT EXISTS idx_interview_questions_ord
    ON interview_questions (interview_id, ord);
`

const ddlTranscripts = `
CREATE TABLE IF NOT EXISTS transcript_turns (
    id            BIGSERIAL    PRIMARY KEY,
    session_id    TEXT         NOT NULL,
    role          TEXT         NOT NULL,
    text          TEXT         NOT NULL,
    committed_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transcript_turns_session
    ON transcript_turns (session_id, id);
`

const ddlFeedback = `
CREATE TABLE IF NOT EXISTS session_feedback (
    session_id  TEXT         PRIMARY KEY,
    feedback    TEXT         NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// Migrate creates or ensures all required tables exist. It is idempotent
// (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT EXISTS) and safe to call
// on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{ddlInterviews, ddlTranscripts, ddlFeedback}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}

// PostgresStore is the PostgreSQL-backed [Store]. All operations are safe for
// concurrent use; the store holds a single [pgxpool.Pool].
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore establishes a connection pool to the database at dsn and
// runs [Migrate] to ensure the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// CreateInterview implements Store. The interview and its questions are
// written in one transaction so a plan is never half-visible.
func (s *PostgresStore) CreateInterview(ctx context.Context, iv interview.Interview) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: create interview: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const qInterview = `
		INSERT INTO interviews (id, role, type, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, qInterview, iv.ID, iv.Role, iv.Type, iv.CreatedAt); err != nil {
		return fmt.Errorf("postgres store: create interview: %w", err)
	}

	const qQuestion = `
		INSERT INTO interview_questions (interview_id, id, text, ord)
		VALUES ($1, $2, $3, $4)`
	for _, q := range iv.Questions {
		if _, err := tx.Exec(ctx, qQuestion, iv.ID, q.ID, q.Text, q.Order); err != nil {
			return fmt.Errorf("postgres store: create interview: question %q: %w", q.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: create interview: commit: %w", err)
	}
	return nil
}

// Interview implements Store.
func (s *PostgresStore) Interview(ctx context.Context, id string) (interview.Interview, error) {
	const qInterview = `
		SELECT id, role, type, created_at
		FROM interviews
		WHERE id = $1`

	var iv interview.Interview
	row := s.pool.QueryRow(ctx, qInterview, id)
	if err := row.Scan(&iv.ID, &iv.Role, &iv.Type, &iv.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return interview.Interview{}, fmt.Errorf("postgres store: interview %q: %w", id, ErrNotFound)
		}
		return interview.Interview{}, fmt.Errorf("postgres store: interview %q: %w", id, err)
	}

	const qQuestions = `
		SELECT id, text, ord
		FROM interview_questions
		WHERE interview_id = $1
		ORDER BY ord`

	rows, err := s.pool.Query(ctx, qQuestions, id)
	if err != nil {
		return interview.Interview{}, fmt.Errorf("postgres store: interview %q: questions: %w", id, err)
	}

	iv.Questions, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (interview.Question, error) {
		var q interview.Question
		err := row.Scan(&q.ID, &q.Text, &q.Order)
		return q, err
	})
	if err != nil {
		return interview.Interview{}, fmt.Errorf("postgres store: interview %q: scan questions: %w", id, err)
	}
	return iv, nil
}

// SaveTurns implements Store.
func (s *PostgresStore) SaveTurns(ctx context.Context, sessionID string, turns []transcript.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	const q = `
		INSERT INTO transcript_turns (session_id, role, text, committed_at)
		VALUES ($1, $2, $3, $4)`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: save turns: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, turn := range turns {
		if _, err := tx.Exec(ctx, q, sessionID, string(turn.Role), turn.Text, turn.CommittedAt); err != nil {
			return fmt.Errorf("postgres store: save turns: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: save turns: commit: %w", err)
	}
	return nil
}

// Turns implements Store.
func (s *PostgresStore) Turns(ctx context.Context, sessionID string) ([]transcript.Turn, error) {
	const q = `
		SELECT role, text, committed_at
		FROM transcript_turns
		WHERE session_id = $1
		ORDER BY id`

	rows, err := s.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: turns: %w", err)
	}

	turns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (transcript.Turn, error) {
		var t transcript.Turn
		var role string
		if err := row.Scan(&role, &t.Text, &t.CommittedAt); err != nil {
			return transcript.Turn{}, err
		}
		t.Role = transcript.Role(role)
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: turns: scan: %w", err)
	}
	return turns, nil
}

// SaveFeedback implements Store.
func (s *PostgresStore) SaveFeedback(ctx context.Context, sessionID, feedback string) error {
	const q = `
		INSERT INTO session_feedback (session_id, feedback)
		VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET feedback = EXCLUDED.feedback`

	if _, err := s.pool.Exec(ctx, q, sessionID, feedback); err != nil {
		return fmt.Errorf("postgres store: save feedback: %w", err)
	}
	return nil
}

// Feedback implements Store.
func (s *PostgresStore) Feedback(ctx context.Context, sessionID string) (string, error) {
	const q = `
		SELECT feedback
		FROM session_feedback
		WHERE session_id = $1`

	var fb string
	if err := s.pool.QueryRow(ctx, q, sessionID).Scan(&fb); err != nil {
		if err == pgx.ErrNoRows {
			return "", fmt.Errorf("postgres store: feedback for session %q: %w", sessionID, ErrNotFound)
		}
		return "", fmt.Errorf("postgres store: feedback for session %q: %w", sessionID, err)
	}
	return fb, nil
}

// Ping verifies database connectivity. Used by the readiness probe.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres store: ping: %w", err)
	}
	return nil
}

// Close releases all connections held by the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
