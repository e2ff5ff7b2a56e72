package ruleengine

import (
	"context"

	"github.com/bittoy/ruleflow/ruletypes"
)

// conditionalChainingConfig is the typed shape of a conditional-chaining
// RuleChain's configuration map, per spec.md §4.5.1: a trigger rule gates
// which of two follow-up rule lists runs next. OnTrigger/OnNoTrigger are
// ordered lists, mirroring the result-based-routing route lists in
// chain_routing.go: "execute its rules in order."
type conditionalChainingConfig struct {
	TriggerRule string   `json:"trigger-rule"`
	OnTrigger   []string `json:"on-trigger"`
	OnNoTrigger []string `json:"on-no-trigger"`
}

// executeConditionalChaining evaluates TriggerRule, then runs OnTrigger's
// rules in order if it matched or OnNoTrigger's otherwise. Either list may
// be empty, in which case the chain stops after the trigger. Follow-up
// rules short-circuit on the first error or non-match, exactly as
// ExecuteRuleGroup's AND operator does.
func (e *Engine) executeConditionalChaining(ctx context.Context, chain ruletypes.RuleChain, rules RuleSet, facts *ruletypes.FactContext, hook Hook, result *ruletypes.RuleChainResult) *ruletypes.RuleChainResult {
	var cfg conditionalChainingConfig
	if err := decodeConfig(chain, &cfg); err != nil {
		result.Outcome = "error"
		result.Err = err
		return result
	}

	trigger, err := resolveRule(chain, rules, cfg.TriggerRule)
	if err != nil {
		result.Outcome = "error"
		result.Err = err
		return result
	}

	hook.BeforeNode(chain.ID(), trigger.ID(), facts)
	triggerResult := e.ExecuteRule(ctx, trigger, facts)
	hook.AfterNode(chain.ID(), trigger.ID(), triggerResult)
	result.Visit(trigger.ID())
	result.SetOutput(trigger.ID(), triggerResult)

	if triggerResult.IsError() {
		result.Outcome = "error"
		result.Err = triggerResult.Err
		return result
	}

	triggered := triggerResult.Matched()
	followUps := cfg.OnNoTrigger
	if triggered {
		followUps = cfg.OnTrigger
	}
	if len(followUps) == 0 {
		result.Outcome = pathOutcome(triggered, false)
		return result
	}

	for _, id := range followUps {
		nextRule, nerr := resolveRule(chain, rules, id)
		if nerr != nil {
			result.Outcome = "error"
			result.Err = nerr
			return result
		}

		hook.BeforeNode(chain.ID(), nextRule.ID(), facts)
		nextResult := e.ExecuteRule(ctx, nextRule, facts)
		hook.AfterNode(chain.ID(), nextRule.ID(), nextResult)
		result.Visit(nextRule.ID())
		result.SetOutput(nextRule.ID(), nextResult)

		if nextResult.IsError() {
			result.Outcome = "error"
			result.Err = nextResult.Err
			return result
		}
		if !nextResult.Matched() {
			result.Outcome = pathOutcome(triggered, false)
			return result
		}
	}
	result.Outcome = pathOutcome(triggered, true)
	return result
}

// pathOutcome names the chain's completion label after the path actually
// taken, per spec.md's S1 naming: the TRIGGERED_ or NO_TRIGGER_ prefix
// follows the trigger's verdict, and the suffix is PATH_COMPLETED when every
// follow-up rule of the chosen list ran and matched, NO_FOLLOWUP when that
// list is empty or a follow-up rule did not match.
func pathOutcome(triggered, ranFollowUp bool) string {
	if !ranFollowUp {
		if triggered {
			return "TRIGGERED_NO_FOLLOWUP"
		}
		return "NO_TRIGGER_NO_FOLLOWUP"
	}
	if triggered {
		return "TRIGGERED_PATH_COMPLETED"
	}
	return "NO_TRIGGER_PATH_COMPLETED"
}
