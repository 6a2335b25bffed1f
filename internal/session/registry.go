package session

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry is the process-wide set of live sessions, keyed by session ID.
// Entries are inserted when a session starts and removed by the controller's
// OnTerminal hook when it reaches ended or errored. Safe for concurrent use;
// per-session access is serialized by the controller itself.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Controller
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Controller)}
}

// Add inserts a session. Fails when the ID is already registered.
func (r *Registry) Add(c *Controller) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[c.ID()]; exists {
		return fmt.Errorf("registry: session %q already registered", c.ID())
	}
	r.sessions[c.ID()] = c
	return nil
}

// Remove drops the session with the given ID. Removing an unknown ID is a
// no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Get returns the session with the given ID, if registered.
func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[id]
	return c, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// StopAll stops every registered session and waits for their teardown,
// bounded by ctx. Used during graceful shutdown.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	live := make([]*Controller, 0, len(r.sessions))
	for _, c := range r.sessions {
		live = append(live, c)
	}
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range live {
		g.Go(func() error {
			if err := c.Stop(gctx); err != nil {
				return fmt.Errorf("registry: stop session %q: %w", c.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
