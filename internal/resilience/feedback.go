package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vocaprep/vocaprep/pkg/provider/feedback"
)

// ErrAllFailed is returned when every backend in a [FeedbackFallback] fails
// or has an open circuit breaker.
var ErrAllFailed = errors.New("all feedback providers failed")

// backend pairs a feedback provider with its dedicated circuit breaker.
type backend struct {
	name     string
	provider feedback.Provider
	breaker  *CircuitBreaker
}

// FeedbackFallback implements [feedback.Provider] with failover across
// multiple backends. The primary is tried first; fallbacks follow in
// registration order. Each backend has its own circuit breaker, so a backend
// that keeps failing is skipped without waiting for its timeout.
type FeedbackFallback struct {
	backends []backend
	breaker  BreakerConfig
}

var _ feedback.Provider = (*FeedbackFallback)(nil)

// NewFeedbackFallback creates a [FeedbackFallback] with primary as the
// preferred backend.
func NewFeedbackFallback(primary feedback.Provider, primaryName string, breaker BreakerConfig) *FeedbackFallback {
	f := &FeedbackFallback{breaker: breaker}
	f.add(primaryName, primary)
	return f
}

// AddFallback registers an additional backend, tried after all previously
// registered ones.
func (f *FeedbackFallback) AddFallback(name string, provider feedback.Provider) {
	f.add(name, provider)
}

func (f *FeedbackFallback) add(name string, provider feedback.Provider) {
	cfg := f.breaker
	cfg.Name = name
	f.backends = append(f.backends, backend{
		name:     name,
		provider: provider,
		breaker:  NewCircuitBreaker(cfg),
	})
}

// Generate asks the first healthy backend for a report. Backends with an open
// breaker are skipped; other failures move on to the next backend. A context
// cancellation stops the failover chain immediately, since retrying a
// cancelled request elsewhere cannot succeed.
func (f *FeedbackFallback) Generate(ctx context.Context, req feedback.Request) (string, error) {
	var lastErr error
	for i := range f.backends {
		b := &f.backends[i]

		var report string
		err := b.breaker.Execute(func() error {
			var genErr error
			report, genErr = b.provider.Generate(ctx, req)
			return genErr
		})
		if err == nil {
			return report, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping feedback backend (circuit open)", "backend", b.name)
		} else {
			slog.Warn("feedback backend failed, trying next", "backend", b.name, "error", err)
		}
	}
	return "", fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
