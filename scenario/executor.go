// Package scenario implements the scenario stage executor (C10):
// dependency-ordered execution of a Scenario's stages against input data,
// each stage resolved to a rule or rule group and evaluated through the
// shared rule engine, with a per-stage failure policy governing whether
// execution continues. Grounded on the teacher's engine/chain_aggregation.go
// ChainAggregationCtx.OnMsg loop, which fans a message out across a
// priority-ordered list of sub-chains and decides per-chain whether a
// failure is terminal; here the fan-out is a linear, dependency-gated
// stage sequence instead of a priority-sorted chain list.
package scenario

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/ruleengine"
	"github.com/bittoy/ruleflow/ruletypes"
)

// ConfigResolver resolves a stage's configRef to the mixed rule/rule-group
// item(s) the stage should evaluate, per spec.md §4.10 step 2c ("load the
// stage's rule configuration from its config reference").
type ConfigResolver interface {
	Resolve(configRef string) ([]ruleengine.GroupItem, bool)
}

// RuleSetResolver adapts a ruleengine.RuleSet into a ConfigResolver: a
// configRef is tried first as a rule ID, then as a rule-group ID.
type RuleSetResolver struct {
	Rules ruleengine.RuleSet
}

// Resolve implements ConfigResolver.
func (r RuleSetResolver) Resolve(configRef string) ([]ruleengine.GroupItem, bool) {
	if rule, ok := r.Rules.Rule(configRef); ok {
		return []ruleengine.GroupItem{{Rule: &rule}}, true
	}
	if group, ok := r.Rules.RuleGroup(configRef); ok {
		return []ruleengine.GroupItem{{RuleGroup: &group}}, true
	}
	return nil, false
}

// Executor runs a Scenario's stages in order against the shared rule
// engine, per spec.md §4.10/§5 ("Scenario Executor processes stages in
// order sequentially within one scenario run; distinct scenario runs are
// independent and parallel").
type Executor struct {
	engine   *ruleengine.Engine
	resolver ConfigResolver
	log      config.Logger
}

// NewExecutor builds an Executor bound to engine (the shared per-process
// rule engine) and resolver (typically a RuleSetResolver over the active
// configuration's rules and groups).
func NewExecutor(engine *ruleengine.Engine, resolver ConfigResolver, log config.Logger) *Executor {
	if log == nil {
		log = config.NopLogger()
	}
	return &Executor{engine: engine, resolver: resolver, log: log}
}

// ExecuteStages runs scenario's stages against data, applying dependency
// gating and per-stage failure policy, per spec.md §4.10's algorithm. The
// run inherits ctx's deadline (spec.md §5 Cancellation/timeouts): once it
// expires, every remaining stage is recorded as skipped with reason
// "deadline exceeded" instead of being evaluated.
func (x *Executor) ExecuteStages(ctx context.Context, scenario ruletypes.Scenario, data map[string]any) *ruletypes.ScenarioExecutionResult {
	start := time.Now()
	result := ruletypes.NewScenarioExecutionResult(scenario.ID)

	stages := orderedStages(scenario.Stages)
	succeeded := map[string]bool{}
	priorOutputs := map[string]any{}
	terminated := false

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			result.AddStage(ruletypes.ScenarioStageResult{
				Stage:      stage.Name,
				Status:     ruletypes.StageSkipped,
				Skipped:    true,
				SkipReason: "deadline exceeded",
				StartedAt:  time.Now(),
			})
			terminated = true
			continue
		}

		if terminated {
			result.AddStage(ruletypes.ScenarioStageResult{
				Stage:      stage.Name,
				Status:     ruletypes.StageSkipped,
				Skipped:    true,
				SkipReason: "terminated by prior failure",
				StartedAt:  time.Now(),
			})
			continue
		}

		if reason, blocked := unmetDependency(stage, succeeded); blocked {
			result.AddStage(ruletypes.ScenarioStageResult{
				Stage:      stage.Name,
				Status:     ruletypes.StageSkipped,
				Skipped:    true,
				SkipReason: reason,
				StartedAt:  time.Now(),
			})
			continue
		}

		sr := x.runStage(ctx, scenario, stage, data, priorOutputs)
		result.AddStage(sr)

		switch sr.Status {
		case ruletypes.StageSuccess:
			succeeded[stage.Name] = true
			for k, v := range sr.Result.Enriched {
				priorOutputs[stage.Name+"_"+k] = v
			}
			if sr.Result.Value != nil {
				priorOutputs[stage.Name+"_output"] = sr.Result.Value
			}
		default:
			terminated = x.applyFailurePolicy(stage, sr, result)
		}
	}

	result.Terminated = terminated
	result.TotalElapsedMs = time.Since(start).Milliseconds()
	result.Summary = summarize(result)
	return result
}

// runStage validates and evaluates a single stage, producing its result
// without yet applying the stage's failure policy (the caller does that).
func (x *Executor) runStage(ctx context.Context, scenario ruletypes.Scenario, stage ruletypes.ScenarioStage, data map[string]any, priorOutputs map[string]any) ruletypes.ScenarioStageResult {
	startedAt := time.Now()

	if stage.ConfigRef == "" {
		return ruletypes.ScenarioStageResult{
			Stage:            stage.Name,
			Status:           ruletypes.StageConfigurationError,
			ConfigurationErr: fmt.Sprintf("stage %q: missing configRef", stage.Name),
			StartedAt:        startedAt,
		}
	}

	items, ok := x.resolver.Resolve(stage.ConfigRef)
	if !ok {
		return ruletypes.ScenarioStageResult{
			Stage:            stage.Name,
			Status:           ruletypes.StageConfigurationError,
			ConfigurationErr: fmt.Sprintf("stage %q: configRef %q not found", stage.Name, stage.ConfigRef),
			StartedAt:        startedAt,
		}
	}

	facts := buildFacts(scenario, data, priorOutputs, startedAt)
	result := x.engine.EvaluateConfiguration(ctx, items, facts)
	elapsed := time.Since(startedAt)

	status := ruletypes.StageSuccess
	if result.IsError() {
		status = ruletypes.StageError
	}
	return ruletypes.ScenarioStageResult{
		Stage:     stage.Name,
		Status:    status,
		Result:    result,
		ElapsedMs: elapsed.Milliseconds(),
		StartedAt: startedAt,
	}
}

// buildFacts assembles the facts map for one stage invocation, per
// spec.md §4.10 step 2d: the raw data fields, plus data/scenarioContext/
// previousStageResults/scenarioId/executionStartTime, plus every
// stagePrefix_outputKey entry accumulated from prior successful stages.
func buildFacts(scenario ruletypes.Scenario, data map[string]any, priorOutputs map[string]any, executionStartTime time.Time) *ruletypes.FactContext {
	facts := ruletypes.NewFactContext(data)
	facts.Set("data", data)
	facts.Set("scenarioContext", map[string]any{
		"scenarioId":     scenario.ID,
		"businessDomain": scenario.BusinessDomain,
		"owner":          scenario.Owner,
	})
	facts.Set("previousStageResults", priorOutputs)
	facts.Set("scenarioId", scenario.ID)
	facts.Set("executionStartTime", executionStartTime)
	facts.Merge(priorOutputs)
	return facts
}

// unmetDependency reports the skip reason and true if stage has a
// dependency that has not completed successfully this run.
func unmetDependency(stage ruletypes.ScenarioStage, succeeded map[string]bool) (string, bool) {
	var failed []string
	for _, dep := range stage.DependsOn {
		if !succeeded[dep] {
			failed = append(failed, dep)
		}
	}
	if len(failed) == 0 {
		return "", false
	}
	return "dependency not satisfied: " + strings.Join(failed, ", "), true
}

// applyFailurePolicy records the effect of stage's failure policy against
// sr on result and reports whether the scenario should terminate, per
// spec.md §4.10 step 3.
func (x *Executor) applyFailurePolicy(stage ruletypes.ScenarioStage, sr ruletypes.ScenarioStageResult, result *ruletypes.ScenarioExecutionResult) bool {
	message := stageFailureMessage(sr)
	switch stage.FailurePolicy {
	case ruletypes.PolicyContinueWithWarnings:
		result.Warnings = append(result.Warnings, fmt.Sprintf("stage %q: %s", stage.Name, message))
		return false
	case ruletypes.PolicyFlagForReview:
		result.RequiresReview = true
		result.ReviewFlags = append(result.ReviewFlags, fmt.Sprintf("stage %q: %s", stage.Name, message))
		return false
	case ruletypes.PolicyTerminate:
		return true
	default:
		x.log.Warnf("scenario %q stage %q: unknown failure policy %q, treating as terminate", result.ScenarioID, stage.Name, stage.FailurePolicy)
		return true
	}
}

func stageFailureMessage(sr ruletypes.ScenarioStageResult) string {
	if sr.ConfigurationErr != "" {
		return sr.ConfigurationErr
	}
	if sr.Result.Err != nil {
		return sr.Result.Err.Error()
	}
	return string(sr.Status)
}

// orderedStages returns a stable copy of stages sorted by ascending Order.
func orderedStages(stages []ruletypes.ScenarioStage) []ruletypes.ScenarioStage {
	out := append([]ruletypes.ScenarioStage(nil), stages...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// summarize produces the one-line execution summary spec.md §4.10's result
// contract requires.
func summarize(result *ruletypes.ScenarioExecutionResult) string {
	var success, errored, skipped, configErr int
	for _, sr := range result.Stages {
		switch sr.Status {
		case ruletypes.StageSuccess:
			success++
		case ruletypes.StageError:
			errored++
		case ruletypes.StageSkipped:
			skipped++
		case ruletypes.StageConfigurationError:
			configErr++
		}
	}
	return fmt.Sprintf(
		"scenario %s: %d/%d stages succeeded, %d error, %d skipped, %d configuration-error, terminated=%t, requiresReview=%t",
		result.ScenarioID, success, len(result.Stages), errored, skipped, configErr, result.Terminated, result.RequiresReview,
	)
}
