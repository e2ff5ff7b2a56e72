// Chain dispatch (C5): ExecuteRuleChain reads a RuleChain's Pattern and
// routes to one of the three pattern implementations, decoding its opaque
// Configuration map into a typed struct via internal/maps.Map2Struct
// first. Grounded on the teacher's engine/chain.go execute loop, which
// advances a mutable RuleContext node-by-node instead of raising
// exceptions; RuleChainResult.Visit/SetOutput play the same bookkeeping
// role here.
package ruleengine

import (
	"context"

	"github.com/bittoy/ruleflow/internal/maps"
	"github.com/bittoy/ruleflow/ruletypes"
)

// ExecuteRuleChain runs chain against facts using rules, interpreting
// chain.Configuration() according to chain.Pattern(). hook may be nil. ctx's
// deadline propagates to every rule the chain evaluates.
func (e *Engine) ExecuteRuleChain(ctx context.Context, chain ruletypes.RuleChain, rules RuleSet, facts *ruletypes.FactContext, hook Hook) *ruletypes.RuleChainResult {
	if hook == nil {
		hook = NopHook{}
	}
	result := ruletypes.NewRuleChainResult(chain.ID())

	if !chain.Enabled() {
		result.Outcome = "disabled"
		return result
	}

	switch chain.Pattern() {
	case ruletypes.PatternConditionalChaining:
		return e.executeConditionalChaining(ctx, chain, rules, facts, hook, result)
	case ruletypes.PatternSequentialDependency:
		return e.executeSequentialDependency(ctx, chain, rules, facts, hook, result)
	case ruletypes.PatternResultBasedRouting:
		return e.executeResultBasedRouting(ctx, chain, rules, facts, hook, result)
	default:
		result.Outcome = "error"
		result.Err = ruletypes.NewError(ruletypes.ConfigurationErr, "rule chain %q: unknown pattern %q", chain.ID(), chain.Pattern())
		return result
	}
}

// decodeConfig decodes chain's configuration map into dst via
// internal/maps.Map2Struct, wrapping any decode failure as a
// ConfigurationError so callers never see a bare mapstructure error.
func decodeConfig(chain ruletypes.RuleChain, dst any) *ruletypes.Error {
	if err := maps.Map2Struct(chain.Configuration(), dst); err != nil {
		return ruletypes.WrapError(ruletypes.ConfigurationErr, err, "rule chain %q: invalid configuration", chain.ID())
	}
	return nil
}

// resolveRule looks up id in rules, returning a NotFound error if absent.
func resolveRule(chain ruletypes.RuleChain, rules RuleSet, id string) (ruletypes.Rule, *ruletypes.Error) {
	if id == "" {
		return ruletypes.Rule{}, ruletypes.NewError(ruletypes.ConfigurationErr, "rule chain %q: missing rule reference", chain.ID())
	}
	r, ok := rules.Rule(id)
	if !ok {
		return ruletypes.Rule{}, ruletypes.NewError(ruletypes.NotFound, "rule chain %q: rule %q not found", chain.ID(), id)
	}
	return r, nil
}
