// Package config holds the ambient, cross-cutting configuration for the
// rule engine: the functional-options Config struct, the pluggable Logger,
// global Properties, and user-defined function (UDF) registration. It plays
// the role the teacher's types.Config / types/options.go pair play for
// RuleGo, generalized from "one engine per chain" to "one façade shared by
// every scenario."
package config

import "time"

// Udf is a user-defined function callable by name from expression rule
// bodies; script rule bodies do not see it. Mirrors the teacher's
// Config.Udf registration.
type Udf func(args ...any) (any, error)

// RecoverySeverityPolicy configures error-recovery behavior for one
// severity label, per spec.md §6 "Error-recovery configuration".
type RecoverySeverityPolicy struct {
	RecoveryEnabled bool          `json:"recoveryEnabled"`
	Strategy        string        `json:"strategy"`
	MaxRetries      int           `json:"maxRetries"`
	RetryDelay      time.Duration `json:"retryDelay"`
}

// RecoveryConfig is the error-recovery configuration block from spec.md §6.
type RecoveryConfig struct {
	Enabled              bool                              `json:"enabled"`
	LogRecoveryAttempts  bool                              `json:"logRecoveryAttempts"`
	MetricsEnabled       bool                              `json:"metricsEnabled"`
	DefaultStrategy      string                            `json:"defaultStrategy"`
	SeverityPolicies     map[string]RecoverySeverityPolicy  `json:"severityPolicies"`
}

// CacheConfig is the cache configuration block from spec.md §6.
type CacheConfig struct {
	Enabled        bool          `json:"enabled"`
	TTL            time.Duration `json:"ttlSeconds"`
	MaxSize        int           `json:"maxSize"`
	KeyPrefix      string        `json:"keyPrefix"`
	MaxIdle        time.Duration `json:"maxIdleSeconds"`
}

// DefaultCacheConfig returns the defaults documented in spec.md §4.8 for the
// classification result cache (300s TTL, 1000 entries).
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:   true,
		TTL:       300 * time.Second,
		MaxSize:   1000,
		KeyPrefix: "classify",
	}
}

// Config is the shared, immutable-after-construction configuration for the
// engine. A new Config is always built through NewConfig + Option functions,
// mirroring the teacher's functional-options convention.
type Config struct {
	// Logger receives structured diagnostic output. Defaults to DefaultLogger().
	Logger Logger

	// Properties holds global key/value settings, exposed to script rule
	// bodies as the "global" object. No "${...}" placeholder substitution
	// is performed on rule or stage configuration.
	Properties Properties

	// Udf holds user-defined functions reachable from expression rule
	// bodies; script rule bodies do not see them.
	Udf map[string]Udf

	// SlowRuleThreshold is the elapsed-time threshold above which the
	// performance monitor (C4) logs a "slow rule" warning.
	SlowRuleThreshold time.Duration

	// Recovery is the error-recovery configuration consulted by C3.
	Recovery RecoveryConfig

	// ClassificationCache is the cache configuration block consulted by C8.
	ClassificationCache CacheConfig

	// EvaluationDeadline is the default per-evaluation deadline applied
	// when a caller does not supply one via context.
	EvaluationDeadline time.Duration
}

// Option mutates a Config during construction.
type Option func(*Config)

// NewConfig builds a Config with sensible defaults and applies opts in
// order, mirroring the teacher's NewConfig(opts ...types.Option).
func NewConfig(opts ...Option) Config {
	c := Config{
		Logger:            DefaultLogger(),
		Properties:        NewProperties(),
		Udf:               make(map[string]Udf),
		SlowRuleThreshold: 250 * time.Millisecond,
		Recovery: RecoveryConfig{
			Enabled:         true,
			DefaultStrategy: "continue-with-default",
		},
		ClassificationCache: DefaultCacheConfig(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger sets the Logger.
func WithLogger(logger Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithProperties sets the global Properties.
func WithProperties(properties Properties) Option {
	return func(c *Config) { c.Properties = properties }
}

// WithUdf registers a single user-defined function under name.
func WithUdf(name string, fn Udf) Option {
	return func(c *Config) {
		if c.Udf == nil {
			c.Udf = make(map[string]Udf)
		}
		c.Udf[name] = fn
	}
}

// WithSlowRuleThreshold overrides the slow-rule warning threshold.
func WithSlowRuleThreshold(d time.Duration) Option {
	return func(c *Config) { c.SlowRuleThreshold = d }
}

// WithRecovery overrides the error-recovery configuration.
func WithRecovery(r RecoveryConfig) Option {
	return func(c *Config) { c.Recovery = r }
}

// WithClassificationCache overrides the classification cache configuration.
func WithClassificationCache(cc CacheConfig) Option {
	return func(c *Config) { c.ClassificationCache = cc }
}

// WithEvaluationDeadline sets the default per-evaluation deadline.
func WithEvaluationDeadline(d time.Duration) Option {
	return func(c *Config) { c.EvaluationDeadline = d }
}
