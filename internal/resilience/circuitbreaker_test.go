package resilience

import (
	"errors"
	"testing"
	"time"
)

var errTest = errors.New("backend unavailable")

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(BreakerConfig{Name: "test", MaxFailures: 2})

	for i := 0; i < 10; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
	}
	if got := cb.State(); got != StateClosed {
		t.Fatalf("state = %s, want closed", got)
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(BreakerConfig{Name: "test", MaxFailures: 3, ResetTimeout: time.Hour})

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errTest }); !errors.Is(err, errTest) {
			t.Fatalf("call %d: err = %v, want errTest", i, err)
		}
	}
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %s, want open", got)
	}

	err := cb.Execute(func() error {
		t.Fatal("fn should not run while open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(BreakerConfig{Name: "test", MaxFailures: 2, ResetTimeout: time.Hour})

	_ = cb.Execute(func() error { return errTest })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errTest })

	if got := cb.State(); got != StateClosed {
		t.Fatalf("state = %s, want closed after interleaved success", got)
	}
}

func TestCircuitBreaker_HalfOpenClosesAfterProbes(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(BreakerConfig{
		Name:         "test",
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
		ProbeBudget:  2,
	})

	_ = cb.Execute(func() error { return errTest })
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %s, want open", got)
	}

	time.Sleep(20 * time.Millisecond)
	if got := cb.State(); got != StateHalfOpen {
		t.Fatalf("state = %s, want half-open after reset timeout", got)
	}

	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: unexpected error: %v", i, err)
		}
	}
	if got := cb.State(); got != StateClosed {
		t.Fatalf("state = %s, want closed after successful probes", got)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(BreakerConfig{
		Name:         "test",
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
		ProbeBudget:  3,
	})

	_ = cb.Execute(func() error { return errTest })
	time.Sleep(20 * time.Millisecond)

	// First probe fails, breaker re-opens for a full timeout.
	_ = cb.Execute(func() error { return errTest })
	if got := cb.State(); got != StateOpen {
		t.Fatalf("state = %s, want open after failed probe", got)
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()
	cb := NewCircuitBreaker(BreakerConfig{Name: "test", MaxFailures: 1, ResetTimeout: time.Hour})

	_ = cb.Execute(func() error { return errTest })
	cb.Reset()

	if got := cb.State(); got != StateClosed {
		t.Fatalf("state = %s, want closed after Reset", got)
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("unexpected error after Reset: %v", err)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()
	for s, want := range map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(99):     "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
