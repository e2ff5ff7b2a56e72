package datasource

import (
	"context"

	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/retry"
	"github.com/bittoy/ruleflow/ruletypes"
)

// RetryingSource decorates a ruletypes.DataSource, retrying Lookup per a
// retry.Config and gating calls behind a retry.CircuitBreaker, per
// spec.md §6's retry-configuration block. Every other DataSource method is
// passed straight through.
type RetryingSource struct {
	ruletypes.DataSource
	cfg     retry.Config
	breaker *retry.CircuitBreaker
	log     config.Logger
}

// WithRetry wraps source with retry and circuit-breaker behavior around
// Lookup. Pass a zero retry.CircuitBreakerConfig to disable the breaker.
func WithRetry(source ruletypes.DataSource, cfg retry.Config, log config.Logger) *RetryingSource {
	return &RetryingSource{
		DataSource: source,
		cfg:        cfg,
		breaker:    retry.NewCircuitBreaker(cfg.CircuitBreaker),
		log:        log,
	}
}

// Lookup retries the wrapped source's Lookup according to the configured
// strategy, returning the last error if every attempt fails or the
// circuit breaker rejects the call outright.
func (s *RetryingSource) Lookup(ctx context.Context, key string) (map[string]any, error) {
	var result map[string]any
	err := retry.Do(ctx, s.cfg, s.breaker, s.log, func(ctx context.Context) error {
		rec, err := s.DataSource.Lookup(ctx, key)
		if err != nil {
			return err
		}
		result = rec
		return nil
	})
	return result, err
}
