// Package mock provides a call-recording feedback provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/vocaprep/vocaprep/pkg/provider/feedback"
)

var _ feedback.Provider = (*Provider)(nil)

// Provider is a mock feedback.Provider that records calls and returns
// configurable results.
type Provider struct {
	mu sync.Mutex

	// Report is returned by Generate when GenerateErr is nil.
	Report string

	// GenerateErr, if set, is returned by Generate.
	GenerateErr error

	// GenerateCalls records every request passed to Generate.
	GenerateCalls []feedback.Request
}

// Generate implements feedback.Provider.
func (p *Provider) Generate(ctx context.Context, req feedback.Request) (string, error) {
	p.mu.Lock()
	p.GenerateCalls = append(p.GenerateCalls, req)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.GenerateErr != nil {
		return "", p.GenerateErr
	}
	return p.Report, nil
}

// CallCount returns the number of Generate calls so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.GenerateCalls)
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GenerateCalls = nil
}
