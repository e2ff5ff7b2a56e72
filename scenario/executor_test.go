package scenario

import (
	"context"
	"testing"

	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/expr"
	"github.com/bittoy/ruleflow/metrics"
	"github.com/bittoy/ruleflow/recovery"
	"github.com/bittoy/ruleflow/ruleengine"
	"github.com/bittoy/ruleflow/ruletypes"
)

func newTestEngine() *ruleengine.Engine {
	return ruleengine.New(expr.NewEvaluator(), nil, recovery.NewService(config.RecoveryConfig{}, nil), metrics.NewMonitor(0, nil), nil)
}

func mustRule(t *testing.T, id, condition, message string) ruletypes.Rule {
	t.Helper()
	r, err := ruletypes.NewRuleBuilder(id).Name(id).Condition(condition).Message(message).Build()
	if err != nil {
		t.Fatalf("build rule %q: %v", id, err)
	}
	return r
}

func TestExecuteStages_DeclaredOrderAndDependencyGating(t *testing.T) {
	screen := mustRule(t, "screen", `#amount > 0`, "screened")
	approve := mustRule(t, "approve", `#amount > 1000`, "approved")
	notify := mustRule(t, "notify", `#amount > 1000`, "notified")

	rules := ruleengine.NewStaticRuleSet([]ruletypes.Rule{screen, approve, notify}, nil)
	exec := NewExecutor(newTestEngine(), RuleSetResolver{Rules: rules}, nil)

	sc := ruletypes.Scenario{
		ID: "onboarding",
		Stages: []ruletypes.ScenarioStage{
			{Name: "approve", ConfigRef: "approve", Order: 1, DependsOn: []string{"screen"}, FailurePolicy: ruletypes.PolicyTerminate},
			{Name: "screen", ConfigRef: "screen", Order: 0, FailurePolicy: ruletypes.PolicyTerminate},
			{Name: "notify", ConfigRef: "notify", Order: 2, DependsOn: []string{"approve"}, FailurePolicy: ruletypes.PolicyTerminate},
		},
	}

	result := exec.ExecuteStages(context.Background(), sc, map[string]any{"amount": 5000})
	if len(result.Stages) != 3 {
		t.Fatalf("len(Stages) = %d, want 3", len(result.Stages))
	}
	if result.Stages[0].Stage != "screen" || result.Stages[1].Stage != "approve" || result.Stages[2].Stage != "notify" {
		t.Fatalf("execution order = %v, want screen, approve, notify", []string{result.Stages[0].Stage, result.Stages[1].Stage, result.Stages[2].Stage})
	}
	for _, sr := range result.Stages {
		if sr.Status != ruletypes.StageSuccess {
			t.Fatalf("stage %q status = %v, want success", sr.Stage, sr.Status)
		}
	}
	if result.Terminated {
		t.Fatal("Terminated = true, want false")
	}
}

func TestExecuteStages_UnmetDependencySkipsStage(t *testing.T) {
	screen := mustRule(t, "screen", `#missingField > 100000`, "screened")
	approve := mustRule(t, "approve", `#amount > 0`, "approved")
	rules := ruleengine.NewStaticRuleSet([]ruletypes.Rule{screen, approve}, nil)
	exec := NewExecutor(newTestEngine(), RuleSetResolver{Rules: rules}, nil)

	sc := ruletypes.Scenario{
		ID: "gated",
		Stages: []ruletypes.ScenarioStage{
			{Name: "screen", ConfigRef: "screen", Order: 0, FailurePolicy: ruletypes.PolicyContinueWithWarnings},
			{Name: "approve", ConfigRef: "approve", Order: 1, DependsOn: []string{"screen"}, FailurePolicy: ruletypes.PolicyTerminate},
		},
	}

	result := exec.ExecuteStages(context.Background(), sc, map[string]any{"amount": 10})
	if result.Stages[0].Status != ruletypes.StageError {
		t.Fatalf("screen status = %v, want error (undefined fact reference)", result.Stages[0].Status)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want exactly one", result.Warnings)
	}
	if !result.Stages[1].Skipped || result.Stages[1].SkipReason == "" {
		t.Fatalf("approve stage = %+v, want skipped with a reason", result.Stages[1])
	}
	if result.Terminated {
		t.Fatal("Terminated = true, want false (continue-with-warnings does not terminate)")
	}
}

func TestExecuteStages_TerminatePolicySkipsRemaining(t *testing.T) {
	broken := mustRule(t, "broken", `#missing == 1`, "never")
	after := mustRule(t, "after", `true`, "after")
	rules := ruleengine.NewStaticRuleSet([]ruletypes.Rule{broken, after}, nil)
	exec := NewExecutor(newTestEngine(), RuleSetResolver{Rules: rules}, nil)

	sc := ruletypes.Scenario{
		ID: "terminates",
		Stages: []ruletypes.ScenarioStage{
			{Name: "broken", ConfigRef: "broken", Order: 0, FailurePolicy: ruletypes.PolicyTerminate},
			{Name: "after", ConfigRef: "after", Order: 1, FailurePolicy: ruletypes.PolicyTerminate},
		},
	}

	result := exec.ExecuteStages(context.Background(), sc, map[string]any{})
	if !result.Terminated {
		t.Fatal("Terminated = false, want true")
	}
	if result.Stages[0].Status != ruletypes.StageError {
		t.Fatalf("broken status = %v, want error", result.Stages[0].Status)
	}
	if !result.Stages[1].Skipped || result.Stages[1].SkipReason != "terminated by prior failure" {
		t.Fatalf("after stage = %+v, want skipped with terminated-by-prior-failure reason", result.Stages[1])
	}
}

func TestExecuteStages_ConfigurationErrorOnMissingConfigRef(t *testing.T) {
	rules := ruleengine.NewStaticRuleSet(nil, nil)
	exec := NewExecutor(newTestEngine(), RuleSetResolver{Rules: rules}, nil)

	sc := ruletypes.Scenario{
		ID: "bad-ref",
		Stages: []ruletypes.ScenarioStage{
			{Name: "ghost", ConfigRef: "does-not-exist", Order: 0, FailurePolicy: ruletypes.PolicyFlagForReview},
		},
	}

	result := exec.ExecuteStages(context.Background(), sc, map[string]any{})
	if result.Stages[0].Status != ruletypes.StageConfigurationError {
		t.Fatalf("status = %v, want configuration-error", result.Stages[0].Status)
	}
	if !result.RequiresReview || len(result.ReviewFlags) != 1 {
		t.Fatalf("RequiresReview/ReviewFlags = %v/%v, want flagged", result.RequiresReview, result.ReviewFlags)
	}
	if result.Terminated {
		t.Fatal("Terminated = true, want false (flag-for-review continues)")
	}
}

func TestExecuteStages_PriorStageOutputVisibleToNextStage(t *testing.T) {
	base := mustRule(t, "base", `#amount * 0.1`, "base-discount")
	final := mustRule(t, "final", `#base_output > 5`, "final-check")
	rules := ruleengine.NewStaticRuleSet([]ruletypes.Rule{base, final}, nil)
	exec := NewExecutor(newTestEngine(), RuleSetResolver{Rules: rules}, nil)

	sc := ruletypes.Scenario{
		ID: "chained-outputs",
		Stages: []ruletypes.ScenarioStage{
			{Name: "base", ConfigRef: "base", Order: 0, FailurePolicy: ruletypes.PolicyTerminate},
			{Name: "final", ConfigRef: "final", Order: 1, DependsOn: []string{"base"}, FailurePolicy: ruletypes.PolicyTerminate},
		},
	}

	result := exec.ExecuteStages(context.Background(), sc, map[string]any{"amount": 100})
	if result.Stages[1].Status != ruletypes.StageSuccess {
		t.Fatalf("final stage = %+v, want success", result.Stages[1])
	}
}

func TestExecuteStages_ExpiredDeadlineSkipsRemainingStages(t *testing.T) {
	screen := mustRule(t, "screen", `#amount > 0`, "screened")
	approve := mustRule(t, "approve", `#amount > 1000`, "approved")
	rules := ruleengine.NewStaticRuleSet([]ruletypes.Rule{screen, approve}, nil)
	exec := NewExecutor(newTestEngine(), RuleSetResolver{Rules: rules}, nil)

	sc := ruletypes.Scenario{
		ID: "onboarding",
		Stages: []ruletypes.ScenarioStage{
			{Name: "screen", ConfigRef: "screen", Order: 0, FailurePolicy: ruletypes.PolicyTerminate},
			{Name: "approve", ConfigRef: "approve", Order: 1, DependsOn: []string{"screen"}, FailurePolicy: ruletypes.PolicyTerminate},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	result := exec.ExecuteStages(ctx, sc, map[string]any{"amount": 5000})
	if !result.Terminated {
		t.Fatal("Terminated = false, want true (expired deadline)")
	}
	for _, sr := range result.Stages {
		if !sr.Skipped || sr.SkipReason != "deadline exceeded" {
			t.Fatalf("stage %q = %+v, want skipped with reason %q", sr.Stage, sr, "deadline exceeded")
		}
	}
}
