// Package recovery implements the error-recovery service (C3): turning a
// failed evaluation into a usable RuleResult under one of four configured
// strategies, per spec.md §4.3. There is no teacher analogue for recovery
// specifically (RuleGo propagates node errors as Go errors and lets the
// chain engine's TerminalOnErr decide); this package follows spec.md's
// contract directly while reusing the teacher's error-wrapping idiom
// (ruletypes.Error, itself grounded on types.EngineError).
package recovery

import (
	"regexp"
	"strings"

	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/ruletypes"
)

// Strategy is the closed set of recovery strategies from spec.md §4.3.
type Strategy string

const (
	ContinueWithDefault    Strategy = "continue-with-default"
	RetryWithSafeExpression Strategy = "retry-with-safe-expression"
	SkipRule               Strategy = "skip-rule"
	FailFast               Strategy = "fail-fast"
)

// Evaluator is the minimal re-evaluation capability recovery needs for the
// retry-with-safe-expression strategy, satisfied by *expr.Evaluator.
type Evaluator interface {
	EvaluateWithResult(ruleName, expression string, facts *ruletypes.FactContext) ruletypes.RuleResult
}

// Service applies recovery strategies to failed rule evaluations.
type Service struct {
	cfg config.RecoveryConfig
	log config.Logger
}

// NewService builds a recovery Service bound to cfg.
func NewService(cfg config.RecoveryConfig, log config.Logger) *Service {
	if log == nil {
		log = config.NopLogger()
	}
	return &Service{cfg: cfg, log: log}
}

// strategyFor resolves which strategy applies to a failed result, honoring
// any severity-specific override before falling back to cfg.DefaultStrategy.
func (s *Service) strategyFor(severity string) Strategy {
	if policy, ok := s.cfg.SeverityPolicies[severity]; ok && policy.RecoveryEnabled {
		return Strategy(policy.Strategy)
	}
	if s.cfg.DefaultStrategy == "" {
		return ContinueWithDefault
	}
	return Strategy(s.cfg.DefaultStrategy)
}

// Recover applies the configured strategy to a failed RuleResult. The
// recovered result carries ruleName and, when it has no metrics of its own,
// the metrics captured on failed before recovery, per spec.md §4.3's
// contract.
func (s *Service) Recover(ruleName string, failed ruletypes.RuleResult, evaluator Evaluator, expression string, facts *ruletypes.FactContext, severity string) ruletypes.RuleResult {
	if !s.cfg.Enabled {
		return failed
	}
	strategy := s.strategyFor(severity)
	if s.cfg.LogRecoveryAttempts {
		s.log.Warnf("recovering rule %q via strategy %q after: %v", ruleName, strategy, failed.Message)
	}

	var recovered ruletypes.RuleResult
	switch strategy {
	case ContinueWithDefault:
		recovered = ruletypes.NoMatch(ruleName)

	case SkipRule:
		recovered = ruletypes.NoMatch(ruleName)
		recovered.Failures = append(recovered.Failures, "skipped: "+failed.Message)

	case RetryWithSafeExpression:
		safe := RewriteSafe(expression)
		retried := evaluator.EvaluateWithResult(ruleName, safe, facts)
		if retried.IsError() {
			recovered = retried
			recovered.Failures = append(recovered.Failures, failed.Message, retried.Message)
		} else {
			recovered = retried
		}

	case FailFast:
		return failed

	default:
		recovered = ruletypes.NoMatch(ruleName)
	}

	recovered = recovered.WithMetrics(failed.Metrics)
	if recovered.RuleName == "" {
		recovered.RuleName = ruleName
	}
	return recovered
}

// fieldAccess matches a bare `#var.field` chain so RewriteSafe can guard it
// with a nil check before the field dereference.
var fieldAccess = regexp.MustCompile(`#([A-Za-z_][A-Za-z0-9_]*)((?:\.[A-Za-z_][A-Za-z0-9_]*)+)`)

// RewriteSafe applies the two pinned, best-effort textual transforms
// documented in SPEC_FULL.md §4.3 (spec.md §9 open question (b)): every
// `#var.field` chain is replaced in place by `(#var != nil && #var.field)`,
// so a nil #var makes that operand false instead of raising a
// nil-dereference error; an expression with no such chain is only trimmed
// and wrapped in parentheses.
func RewriteSafe(expression string) string {
	guarded := fieldAccess.ReplaceAllStringFunc(expression, func(match string) string {
		groups := fieldAccess.FindStringSubmatch(match)
		varName, chain := groups[1], groups[2]
		return "(#" + varName + " != nil && #" + varName + chain + ")"
	})
	if guarded == expression {
		// No field-access chains to guard; the expression is returned
		// parenthesized and otherwise unchanged.
		return "(" + strings.TrimSpace(expression) + ")"
	}
	return guarded
}
