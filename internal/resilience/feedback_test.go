package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vocaprep/vocaprep/internal/resilience"
	"github.com/vocaprep/vocaprep/pkg/provider/feedback"
	fbmock "github.com/vocaprep/vocaprep/pkg/provider/feedback/mock"
)

func testRequest() feedback.Request {
	return feedback.Request{
		Role:          "Backend Engineer",
		InterviewType: "technical",
		Turns: []feedback.Turn{
			{Role: "agent", Text: "Tell me about your background."},
			{Role: "user", Text: "I build distributed systems."},
		},
	}
}

func TestFeedbackFallback_PrimarySuccess(t *testing.T) {
	t.Parallel()
	primary := &fbmock.Provider{Report: "primary report"}
	secondary := &fbmock.Provider{Report: "secondary report"}

	f := resilience.NewFeedbackFallback(primary, "openai", resilience.BreakerConfig{MaxFailures: 3})
	f.AddFallback("backup", secondary)

	report, err := f.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if report != "primary report" {
		t.Errorf("report = %q, want primary report", report)
	}
	if secondary.CallCount() != 0 {
		t.Errorf("secondary called %d times, want 0", secondary.CallCount())
	}
}

func TestFeedbackFallback_FailsOverToSecondary(t *testing.T) {
	t.Parallel()
	primary := &fbmock.Provider{GenerateErr: errors.New("rate limited")}
	secondary := &fbmock.Provider{Report: "secondary report"}

	f := resilience.NewFeedbackFallback(primary, "openai", resilience.BreakerConfig{MaxFailures: 3})
	f.AddFallback("backup", secondary)

	report, err := f.Generate(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if report != "secondary report" {
		t.Errorf("report = %q, want secondary report", report)
	}
}

func TestFeedbackFallback_AllFail(t *testing.T) {
	t.Parallel()
	primary := &fbmock.Provider{GenerateErr: errors.New("down")}
	secondary := &fbmock.Provider{GenerateErr: errors.New("also down")}

	f := resilience.NewFeedbackFallback(primary, "openai", resilience.BreakerConfig{MaxFailures: 3})
	f.AddFallback("backup", secondary)

	_, err := f.Generate(context.Background(), testRequest())
	if !errors.Is(err, resilience.ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFeedbackFallback_OpenBreakerSkipsPrimary(t *testing.T) {
	t.Parallel()
	primary := &fbmock.Provider{GenerateErr: errors.New("down")}
	secondary := &fbmock.Provider{Report: "secondary report"}

	f := resilience.NewFeedbackFallback(primary, "openai", resilience.BreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})
	f.AddFallback("backup", secondary)

	// Trip the primary's breaker.
	for i := 0; i < 2; i++ {
		if _, err := f.Generate(context.Background(), testRequest()); err != nil {
			t.Fatalf("Generate %d: %v", i, err)
		}
	}

	calls := primary.CallCount()
	if _, err := f.Generate(context.Background(), testRequest()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if primary.CallCount() != calls {
		t.Errorf("primary called with open breaker (calls %d -> %d)", calls, primary.CallCount())
	}
}

func TestFeedbackFallback_ContextCancelStopsChain(t *testing.T) {
	t.Parallel()
	primary := &fbmock.Provider{Report: "unused"}
	secondary := &fbmock.Provider{Report: "unused"}

	f := resilience.NewFeedbackFallback(primary, "openai", resilience.BreakerConfig{MaxFailures: 3})
	f.AddFallback("backup", secondary)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Generate(ctx, testRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if secondary.CallCount() != 0 {
		t.Errorf("secondary called %d times after cancellation, want 0", secondary.CallCount())
	}
}
