package ruleengine

import (
	"context"

	"github.com/bittoy/ruleflow/ruletypes"
)

// sequentialStage names one rule in a sequential-dependency chain and the
// fact name its evaluated value is published under for later stages.
type sequentialStage struct {
	Rule           string `json:"rule"`
	OutputVariable string `json:"output-variable"`
}

// sequentialDependencyConfig is the typed shape of a sequential-dependency
// RuleChain's configuration map, per spec.md §4.5.2: an ordered list of
// rule references, each one's raw evaluated value published under its own
// OutputVariable before the next stage runs, so a later stage's expression
// can read an earlier stage's numeric result directly (e.g. S2's
// final-discount referencing #baseDiscount).
type sequentialDependencyConfig struct {
	Stages []sequentialStage `json:"rules"`
}

// executeSequentialDependency runs Stages in declared order against a
// shared FactContext, binding each stage's OutputVariable to the raw
// evaluated value before running the next, and stopping at the first stage
// that does not match or errors.
func (e *Engine) executeSequentialDependency(ctx context.Context, chain ruletypes.RuleChain, rules RuleSet, facts *ruletypes.FactContext, hook Hook, result *ruletypes.RuleChainResult) *ruletypes.RuleChainResult {
	var cfg sequentialDependencyConfig
	if err := decodeConfig(chain, &cfg); err != nil {
		result.Outcome = "error"
		result.Err = err
		return result
	}
	if len(cfg.Stages) == 0 {
		result.Outcome = "no-match"
		return result
	}

	var last ruletypes.RuleResult
	for _, stage := range cfg.Stages {
		r, err := resolveRule(chain, rules, stage.Rule)
		if err != nil {
			result.Outcome = "error"
			result.Err = err
			return result
		}

		hook.BeforeNode(chain.ID(), r.ID(), facts)
		last = e.ExecuteRule(ctx, r, facts)
		hook.AfterNode(chain.ID(), r.ID(), last)
		result.Visit(r.ID())
		result.SetOutput(r.ID(), last)

		if last.IsError() {
			result.Outcome = "error"
			result.Err = last.Err
			return result
		}
		if !last.Matched() {
			result.Outcome = "no-match"
			return result
		}

		if stage.OutputVariable != "" && facts != nil {
			facts.Set(stage.OutputVariable, last.Value)
		}
	}

	result.Outcome = "SEQUENTIAL_PIPELINE_COMPLETED"
	return result
}
