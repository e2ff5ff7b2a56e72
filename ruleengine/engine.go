// Package ruleengine implements the rule engine core (C5): executing a
// single rule, a priority-ordered rule list, a boolean rule group, or one
// of the three rule-chain patterns, combining the expression evaluator
// (C1), error recovery (C3), and the performance monitor (C4). It also
// implements EvaluateConfiguration, the unified entry the scenario stage
// executor (C10) calls per stage.
//
// Grounded on the teacher's engine/chain.go execute loop (node-by-node
// state advance instead of exceptions) and engine/chain_aggregation.go
// (fan-out bookkeeping, reused here for the sequential-dependency output
// binding); see SPEC_FULL.md §4.5.
package ruleengine

import (
	"context"
	"sort"

	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/expr"
	"github.com/bittoy/ruleflow/metrics"
	"github.com/bittoy/ruleflow/recovery"
	"github.com/bittoy/ruleflow/ruletypes"
	"github.com/bittoy/ruleflow/script"
)

// Engine executes rules, rule groups, and rule chains against a
// FactContext. It holds only immutable configuration plus stateless/
// lock-protected collaborators, so evaluations run in parallel without
// additional locking, per spec.md §5.
type Engine struct {
	evaluator *expr.Evaluator
	script    *script.Engine
	recovery  *recovery.Service
	monitor   *metrics.Monitor
	log       config.Logger
}

// New builds an Engine from its collaborators. Callers typically obtain one
// collaborator set per process from the service façade (C11) and share it
// across concurrent evaluations.
func New(evaluator *expr.Evaluator, scriptEngine *script.Engine, recoverySvc *recovery.Service, monitor *metrics.Monitor, log config.Logger) *Engine {
	if log == nil {
		log = config.NopLogger()
	}
	return &Engine{evaluator: evaluator, script: scriptEngine, recovery: recoverySvc, monitor: monitor, log: log}
}

// ExecuteRule evaluates a single rule against facts, never returning a Go
// error: every outcome (including an internal panic-worthy condition) is
// represented as a RuleResult variant, per spec.md §8 property 1. ctx's
// deadline is checked before the rule runs — the finest granularity this
// engine exposes between "sub-expression nodes," per spec.md §5 — and a
// deadline already past yields a Timeout error result, subject to C3
// recovery like any other error.
func (e *Engine) ExecuteRule(ctx context.Context, rule ruletypes.Rule, facts *ruletypes.FactContext) ruletypes.RuleResult {
	if err := ctx.Err(); err != nil {
		handle := e.monitor.Start(rule.Name())
		timeoutErr := ruletypes.NewError(ruletypes.Timeout, "rule %q: %v", rule.Name(), err)
		result := ruletypes.ErrorResult(rule.Name(), timeoutErr)
		result.Metrics = e.monitor.Complete(handle, rule.Condition(), timeoutErr)
		return e.recoverIfNeeded(rule, result, facts)
	}

	handle := e.monitor.Start(rule.Name())

	// Parameter extraction (spec.md §4.5 step 1): short-circuit to an
	// error result without invoking the evaluator at all when a
	// referenced variable is absent from facts.
	if rule.Kind() == ruletypes.KindExpr {
		for _, name := range expr.VariableNames(rule.Condition()) {
			if facts == nil || !facts.Has(name) {
				err := ruletypes.NewError(ruletypes.MissingParameters, "rule %q references undefined fact %q", rule.Name(), name)
				result := ruletypes.ErrorResult(rule.Name(), err)
				result.Metrics = e.monitor.Complete(handle, rule.Condition(), err)
				return e.recoverIfNeeded(rule, result, facts)
			}
		}
	}

	var result ruletypes.RuleResult
	switch rule.Kind() {
	case ruletypes.KindScript:
		result = e.script.EvaluateWithResult(rule.Name(), rule.Condition(), facts)
	default:
		result = e.evaluator.EvaluateWithResult(rule.Name(), rule.Condition(), facts)
	}

	var evalErr error
	if result.IsError() {
		evalErr = result.Err
	}
	result.Metrics = e.monitor.Complete(handle, rule.Condition(), evalErr)

	if result.Matched() && result.Message == "" {
		result.Message = rule.Message()
	}

	if result.IsError() {
		return e.recoverIfNeeded(rule, result, facts)
	}
	return result
}

func (e *Engine) recoverIfNeeded(rule ruletypes.Rule, failed ruletypes.RuleResult, facts *ruletypes.FactContext) ruletypes.RuleResult {
	if e.recovery == nil {
		return failed
	}
	severity := ""
	if cp := rule.Metadata().CustomProperties(); cp != nil {
		if s, ok := cp["severity"].(string); ok {
			severity = s
		}
	}
	return e.recovery.Recover(rule.Name(), failed, e.evaluator, rule.Condition(), facts, severity)
}

// ExecuteRules evaluates rules in priority order (lower value first, ties
// broken by declared order) and returns the first match, or no-match if
// none match, or no-rules for an empty list, per spec.md §4.5/§8.
func (e *Engine) ExecuteRules(ctx context.Context, rules []ruletypes.Rule, facts *ruletypes.FactContext) ruletypes.RuleResult {
	if len(rules) == 0 {
		return ruletypes.NoRules()
	}
	ordered := orderedByPriority(rules)
	for _, r := range ordered {
		result := e.ExecuteRule(ctx, r, facts)
		if result.Matched() || result.IsError() {
			return result
		}
	}
	return ruletypes.NoMatch("")
}

// orderedByPriority returns a stable copy of rules sorted by ascending
// Priority (lower = higher priority), preserving declared order among ties.
func orderedByPriority(rules []ruletypes.Rule) []ruletypes.Rule {
	out := append([]ruletypes.Rule(nil), rules...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority() < out[j].Priority() })
	return out
}

// ExecuteRuleGroup evaluates a RuleGroup's rules in declared (insertion)
// order, short-circuiting per spec.md §3/§8 property 2: AND stops at the
// first non-match, OR stops at the first match.
func (e *Engine) ExecuteRuleGroup(ctx context.Context, group ruletypes.RuleGroup, facts *ruletypes.FactContext) ruletypes.RuleResult {
	rules := group.Rules()
	if len(rules) == 0 {
		return ruletypes.NoRules()
	}

	var last ruletypes.RuleResult
	for _, r := range rules {
		result := e.ExecuteRule(ctx, r, facts)
		last = result
		if result.IsError() {
			return result
		}
		switch group.Operator() {
		case ruletypes.OperatorOr:
			if result.Matched() {
				return result
			}
		default: // AND
			if !result.Matched() {
				return result
			}
		}
	}
	return last
}

// GroupItem is one element of a mixed rule/rule-group list evaluated by
// EvaluateConfiguration, per spec.md §4.5 step 3.
type GroupItem struct {
	Rule      *ruletypes.Rule
	RuleGroup *ruletypes.RuleGroup
}

// EvaluateConfiguration is the unified entry point the scenario stage
// executor (C10) calls per stage: it evaluates a mixed, declared-order list
// of rules and rule groups, accumulating enriched data from every item that
// produced some, and returns a result carrying the first match (or the last
// evaluated result if none matched), per spec.md §4.5.
func (e *Engine) EvaluateConfiguration(ctx context.Context, items []GroupItem, facts *ruletypes.FactContext) ruletypes.RuleResult {
	if len(items) == 0 {
		return ruletypes.NoRules()
	}

	// Homogeneous fast path: detect an all-rules or all-groups list and
	// delegate to the specialized method, per spec.md §4.5 step 3. Unlike
	// the mixed path below, ExecuteRules/ExecuteRuleGroup don't accumulate
	// Enriched across items; an all-rules or all-groups stage config is a
	// first-match lookup, not an enrichment pipeline, so there is nothing
	// to accumulate here.
	if allRules, rules := asAllRules(items); allRules {
		return e.ExecuteRules(ctx, rules, facts)
	}
	if allGroups, groups := asAllGroups(items); allGroups {
		var last ruletypes.RuleResult
		for _, g := range groups {
			last = e.ExecuteRuleGroup(ctx, g, facts)
			if last.Matched() || last.IsError() {
				return last
			}
		}
		return last
	}

	var (
		last     ruletypes.RuleResult
		enriched map[string]any
	)
	for _, item := range items {
		var result ruletypes.RuleResult
		switch {
		case item.Rule != nil:
			result = e.ExecuteRule(ctx, *item.Rule, facts)
		case item.RuleGroup != nil:
			result = e.ExecuteRuleGroup(ctx, *item.RuleGroup, facts)
		default:
			continue
		}
		if len(result.Enriched) > 0 {
			if enriched == nil {
				enriched = map[string]any{}
			}
			for k, v := range result.Enriched {
				enriched[k] = v
			}
		}
		last = result
		if result.IsError() {
			return result.WithEnriched(enriched)
		}
		if result.Matched() {
			return result.WithEnriched(enriched)
		}
	}
	return last.WithEnriched(enriched)
}

func asAllRules(items []GroupItem) (bool, []ruletypes.Rule) {
	rules := make([]ruletypes.Rule, 0, len(items))
	for _, it := range items {
		if it.Rule == nil {
			return false, nil
		}
		rules = append(rules, *it.Rule)
	}
	return true, rules
}

func asAllGroups(items []GroupItem) (bool, []ruletypes.RuleGroup) {
	groups := make([]ruletypes.RuleGroup, 0, len(items))
	for _, it := range items {
		if it.RuleGroup == nil {
			return false, nil
		}
		groups = append(groups, *it.RuleGroup)
	}
	return true, groups
}
