// Package retry implements the retry configuration and delay formula for
// data-source calls (spec.md §6): fixed/exponential/linear backoff with
// jitter and a max-delay clamp, plus a circuit breaker that trips after a
// run of consecutive failures. There is no teacher analogue — the teacher
// repo has no retry helper at all — so this package follows spec.md §6's
// formula directly; it is exercised by datasource's optional per-source
// retry wrapper (see datasource.WithRetry).
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/bittoy/ruleflow/config"
)

// Strategy is the closed set of backoff strategies from spec.md §6.
type Strategy string

const (
	StrategyNone        Strategy = "none"
	StrategyFixedDelay   Strategy = "fixed-delay"
	StrategyExponential  Strategy = "exponential-backoff"
	StrategyLinear       Strategy = "linear-backoff"
)

// CircuitBreakerConfig configures the breaker guarding a retried call, per
// spec.md §6.
type CircuitBreakerConfig struct {
	Enabled         bool          `json:"enabled"`
	Threshold       int           `json:"threshold"`
	Timeout         time.Duration `json:"timeout"`
	SuccessThreshold int          `json:"successThreshold"`
}

// Config is the retry configuration block from spec.md §6.
type Config struct {
	Strategy          Strategy             `json:"strategy"`
	MaxAttempts       int                  `json:"maxAttempts"`
	InitialDelay      time.Duration        `json:"initialDelay"`
	MaxDelay          time.Duration        `json:"maxDelay"`
	BackoffMultiplier float64              `json:"backoffMultiplier"`
	JitterFactor      float64              `json:"jitterFactor"`
	TotalRetryTimeout time.Duration        `json:"totalRetryTimeout"`
	PerMinuteCap      int                  `json:"perMinuteCap"`
	PerHourCap        int                  `json:"perHourCap"`
	CircuitBreaker    CircuitBreakerConfig `json:"circuitBreaker"`
	Logging           bool                 `json:"logging"`
}

// Delay returns the backoff delay before attempt n (1-indexed), following
// spec.md §6's formula: a strategy-specific base delay, jittered by
// `delay × (1 + (rand−0.5) × 2 × jitter)`, clamped to MaxDelay.
func (c Config) Delay(n int, rnd *rand.Rand) time.Duration {
	if n < 1 {
		n = 1
	}
	var base time.Duration
	switch c.Strategy {
	case StrategyFixedDelay:
		base = c.InitialDelay
	case StrategyExponential:
		multiplier := c.BackoffMultiplier
		if multiplier <= 0 {
			multiplier = 2
		}
		base = time.Duration(float64(c.InitialDelay) * math.Pow(multiplier, float64(n-1)))
	case StrategyLinear:
		base = c.InitialDelay * time.Duration(n)
	default:
		return 0
	}

	if c.JitterFactor > 0 {
		r := 0.5
		if rnd != nil {
			r = rnd.Float64()
		}
		base = time.Duration(float64(base) * (1 + (r-0.5)*2*c.JitterFactor))
	}
	if c.MaxDelay > 0 && base > c.MaxDelay {
		base = c.MaxDelay
	}
	if base < 0 {
		base = 0
	}
	return base
}

// breakerState is a circuit breaker's three-state machine: closed (calls
// pass through), open (calls are rejected until Timeout elapses), and
// half-open (a trial call is allowed; success closes it, failure reopens
// it).
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// CircuitBreaker tracks consecutive failures for one retried call site and
// trips open once Threshold consecutive failures are observed, per
// spec.md §6's circuit-breaker block.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	state           breakerState
	consecutiveFail int
	consecutiveOK   int
	openedAt        time.Time
}

// NewCircuitBreaker builds a closed CircuitBreaker from cfg.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg}
}

// Allow reports whether a call may proceed, transitioning an open breaker
// to half-open once its timeout has elapsed.
func (b *CircuitBreaker) Allow() bool {
	if !b.cfg.Enabled {
		return true
	}
	switch b.state {
	case stateOpen:
		if time.Since(b.openedAt) >= b.cfg.Timeout {
			b.state = stateHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess reports a successful call, closing a half-open breaker
// after SuccessThreshold consecutive successes.
func (b *CircuitBreaker) RecordSuccess() {
	if !b.cfg.Enabled {
		return
	}
	b.consecutiveFail = 0
	switch b.state {
	case stateHalfOpen:
		b.consecutiveOK++
		threshold := b.cfg.SuccessThreshold
		if threshold <= 0 {
			threshold = 1
		}
		if b.consecutiveOK >= threshold {
			b.state = stateClosed
			b.consecutiveOK = 0
		}
	default:
		b.state = stateClosed
	}
}

// RecordFailure reports a failed call, tripping the breaker open once
// Threshold consecutive failures accumulate.
func (b *CircuitBreaker) RecordFailure() {
	if !b.cfg.Enabled {
		return
	}
	b.consecutiveOK = 0
	b.consecutiveFail++
	threshold := b.cfg.Threshold
	if threshold <= 0 {
		threshold = 1
	}
	if b.state == stateHalfOpen || b.consecutiveFail >= threshold {
		b.state = stateOpen
		b.openedAt = time.Now()
	}
}

// State reports the breaker's current state as a string, for health/status
// reporting.
func (b *CircuitBreaker) State() string {
	switch b.state {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// ErrCircuitOpen is returned by Do when the circuit breaker rejects a call.
type ErrCircuitOpen struct{}

func (ErrCircuitOpen) Error() string { return "retry: circuit breaker open" }

// Do runs fn, retrying per cfg's strategy until it succeeds, MaxAttempts is
// exhausted, TotalRetryTimeout elapses, or ctx is cancelled. breaker may be
// nil to skip circuit-breaker gating.
func Do(ctx context.Context, cfg Config, breaker *CircuitBreaker, log config.Logger, fn func(context.Context) error) error {
	if log == nil {
		log = config.NopLogger()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var deadline time.Time
	if cfg.TotalRetryTimeout > 0 {
		deadline = time.Now().Add(cfg.TotalRetryTimeout)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if breaker != nil && !breaker.Allow() {
			return ErrCircuitOpen{}
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			if breaker != nil {
				breaker.RecordSuccess()
			}
			return nil
		}
		if breaker != nil {
			breaker.RecordFailure()
		}
		if cfg.Logging {
			log.Warnf("retry: attempt %d/%d failed: %v", attempt, maxAttempts, lastErr)
		}

		if attempt == maxAttempts || cfg.Strategy == StrategyNone {
			break
		}
		delay := cfg.Delay(attempt, nil)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
