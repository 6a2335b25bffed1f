package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/vocaprep/vocaprep/internal/interview"
	"github.com/vocaprep/vocaprep/internal/transcript"
)

// MemStore is an in-memory Store. It is the default when no database is
// configured and the fixture store for tests. Safe for concurrent use.
type MemStore struct {
	mu         sync.RWMutex
	interviews map[string]interview.Interview
	turns      map[string][]transcript.Turn
	feedback   map[string]string
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		interviews: make(map[string]interview.Interview),
		turns:      make(map[string][]transcript.Turn),
		feedback:   make(map[string]string),
	}
}

// CreateInterview implements Store.
func (m *MemStore) CreateInterview(_ context.Context, iv interview.Interview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.interviews[iv.ID]; exists {
		return fmt.Errorf("memstore: interview %q already exists", iv.ID)
	}
	m.interviews[iv.ID] = iv
	return nil
}

// Interview implements Store.
func (m *MemStore) Interview(_ context.Context, id string) (interview.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	iv, ok := m.interviews[id]
	if !ok {
		return interview.Interview{}, fmt.Errorf("memstore: interview %q: %w", id, ErrNotFound)
	}
	return iv, nil
}

// SaveTurns implements Store.
func (m *MemStore) SaveTurns(_ context.Context, sessionID string, turns []transcript.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[sessionID] = append(m.turns[sessionID], turns...)
	return nil
}

// Turns implements Store.
func (m *MemStore) Turns(_ context.Context, sessionID string) ([]transcript.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]transcript.Turn(nil), m.turns[sessionID]...), nil
}

// SaveFeedback implements Store.
func (m *MemStore) SaveFeedback(_ context.Context, sessionID, feedback string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback[sessionID] = feedback
	return nil
}

// Feedback implements Store.
func (m *MemStore) Feedback(_ context.Context, sessionID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fb, ok := m.feedback[sessionID]
	if !ok {
		return "", fmt.Errorf("memstore: feedback for session %q: %w", sessionID, ErrNotFound)
	}
	return fb, nil
}

// Close implements Store. A MemStore holds no external resources.
func (m *MemStore) Close() {}
