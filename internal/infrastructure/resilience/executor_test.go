package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2.0,
		BreakerEnabled: false,
	}
}

func TestExecuteRetriesRetryableErrors(t *testing.T) {
	e := NewExecutor(testPolicy())

	calls := 0
	err := e.Execute(context.Background(), "test.op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(error) Classification {
		return Classification{Retryable: true, RecordFailure: true}
	})

	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestExecuteStopsOnNonRetryable(t *testing.T) {
	e := NewExecutor(testPolicy())

	calls := 0
	wantErr := errors.New("permanent")
	err := e.Execute(context.Background(), "test.op", func(context.Context) error {
		calls++
		return wantErr
	}, func(error) Classification {
		return Classification{Retryable: false, RecordFailure: true}
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestExecuteRespectsContextCancellation(t *testing.T) {
	e := NewExecutor(testPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := e.Execute(ctx, "test.op", func(context.Context) error {
		calls++
		return nil
	}, nil)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	policy := testPolicy()
	policy.BreakerEnabled = true
	policy.BreakerMinRequests = 3
	policy.BreakerFailureRatio = 0.5
	policy.MaxAttempts = 1
	e := NewExecutor(policy)

	fail := func(context.Context) error { return errors.New("down") }
	classify := func(error) Classification {
		return Classification{Retryable: false, RecordFailure: true}
	}

	var lastErr error
	for i := 0; i < 10; i++ {
		lastErr = e.Execute(context.Background(), "breaker.op", fail, classify)
	}
	if !IsCircuitOpen(lastErr) {
		t.Fatalf("err = %v, want open circuit", lastErr)
	}
}
