package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		RetryAttempts:       3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)

	calls := 0
	err := exec.Execute(context.Background(), "embed", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Execute() error = %v, want success on third attempt", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestExecuteExhaustsRetryBudget(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)

	calls := 0
	wantErr := errors.New("still down")
	err := exec.Execute(context.Background(), "embed", func(ctx context.Context) error {
		calls++
		return wantErr
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("Execute() error = %v, want the last failure", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want the full retry budget of 3", calls)
	}
}

func TestExecuteDoesNotRetryContextErrors(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)

	calls := 0
	err := exec.Execute(context.Background(), "embed", func(ctx context.Context) error {
		calls++
		return context.Canceled
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cancellation is not transient)", calls)
	}
}

func TestBreakerOpensAfterFailureRatio(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 5
	cfg.BreakerFailureRatio = 0.6
	cfg.BreakerOpenTimeout = time.Minute
	exec := NewExecutor(cfg, nil)

	boom := errors.New("down")
	for i := 0; i < 5; i++ {
		_ = exec.Execute(context.Background(), "score", func(ctx context.Context) error {
			return boom
		})
	}

	calls := 0
	err := exec.Execute(context.Background(), "score", func(ctx context.Context) error {
		calls++
		return nil
	})

	if !IsCircuitOpen(err) {
		t.Fatalf("Execute() error = %v, want open-circuit rejection", err)
	}
	if calls != 0 {
		t.Errorf("callback ran %d times behind an open breaker, want 0", calls)
	}
}

func TestBreakersAreIsolatedPerOperation(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryAttempts = 1
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	exec := NewExecutor(cfg, nil)

	for i := 0; i < 3; i++ {
		_ = exec.Execute(context.Background(), "embed", func(ctx context.Context) error {
			return errors.New("down")
		})
	}

	// The scorer's breaker is untouched by the embedder's failures.
	err := exec.Execute(context.Background(), "score", func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Errorf("Execute(score) error = %v, want independent breaker", err)
	}
}
