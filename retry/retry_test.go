package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestConfig_DelayFormulas(t *testing.T) {
	fixed := Config{Strategy: StrategyFixedDelay, InitialDelay: 100 * time.Millisecond}
	if d := fixed.Delay(3, nil); d != 100*time.Millisecond {
		t.Fatalf("fixed.Delay(3) = %v, want 100ms", d)
	}

	exp := Config{Strategy: StrategyExponential, InitialDelay: 100 * time.Millisecond, BackoffMultiplier: 2}
	if d := exp.Delay(3, nil); d != 400*time.Millisecond {
		t.Fatalf("exponential.Delay(3) = %v, want 400ms (100 * 2^2)", d)
	}

	linear := Config{Strategy: StrategyLinear, InitialDelay: 100 * time.Millisecond}
	if d := linear.Delay(3, nil); d != 300*time.Millisecond {
		t.Fatalf("linear.Delay(3) = %v, want 300ms", d)
	}
}

func TestConfig_DelayClampsToMaxDelay(t *testing.T) {
	cfg := Config{Strategy: StrategyExponential, InitialDelay: time.Second, BackoffMultiplier: 10, MaxDelay: 2 * time.Second}
	if d := cfg.Delay(5, nil); d != 2*time.Second {
		t.Fatalf("Delay(5) = %v, want clamped to 2s", d)
	}
}

func TestCircuitBreaker_OpensAfterThresholdThenHalfOpensAfterTimeout(t *testing.T) {
	b := NewCircuitBreaker(CircuitBreakerConfig{Enabled: true, Threshold: 2, Timeout: 10 * time.Millisecond, SuccessThreshold: 1})
	if !b.Allow() {
		t.Fatal("Allow() = false before any failure, want true")
	}
	b.RecordFailure()
	if b.State() != "closed" {
		t.Fatalf("State() = %q after 1 failure, want closed", b.State())
	}
	b.RecordFailure()
	if b.State() != "open" {
		t.Fatalf("State() = %q after 2 failures, want open", b.State())
	}
	if b.Allow() {
		t.Fatal("Allow() = true immediately after opening, want false")
	}

	time.Sleep(15 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("Allow() = false after timeout elapsed, want true (half-open trial)")
	}
	b.RecordSuccess()
	if b.State() != "closed" {
		t.Fatalf("State() = %q after a successful half-open trial, want closed", b.State())
	}
}

func TestDo_RetriesUntilSuccessThenStops(t *testing.T) {
	attempts := 0
	cfg := Config{Strategy: StrategyFixedDelay, MaxAttempts: 5, InitialDelay: time.Millisecond}
	err := Do(context.Background(), cfg, nil, nil, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestDo_ExhaustsMaxAttempts(t *testing.T) {
	attempts := 0
	cfg := Config{Strategy: StrategyFixedDelay, MaxAttempts: 3}
	err := Do(context.Background(), cfg, nil, nil, func(context.Context) error {
		attempts++
		return errors.New("permanent")
	})
	if err == nil {
		t.Fatal("Do() = nil, want the last error")
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestDo_RejectsWhenCircuitOpen(t *testing.T) {
	b := NewCircuitBreaker(CircuitBreakerConfig{Enabled: true, Threshold: 1, Timeout: time.Hour})
	b.RecordFailure()

	cfg := Config{Strategy: StrategyNone, MaxAttempts: 3}
	calls := 0
	err := Do(context.Background(), cfg, b, nil, func(context.Context) error {
		calls++
		return nil
	})
	if _, ok := err.(ErrCircuitOpen); !ok {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 (breaker should reject before calling fn)", calls)
	}
}
