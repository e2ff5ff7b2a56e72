package ruleflow

import (
	"context"
	"testing"
	"time"

	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/ruletypes"
)

func testDocument() ruletypes.ConfigurationDocument {
	return ruletypes.ConfigurationDocument{
		Rules: []ruletypes.RuleDoc{
			{ID: "screen", Name: "screen", Condition: "#amount > 0", Message: "screened", Enabled: true},
			{ID: "approve", Name: "approve", Condition: "#amount > 1000", Message: "approved", Enabled: true},
		},
		Scenarios: []ruletypes.ScenarioDoc{
			{
				ID: "onboarding",
				Stages: []ruletypes.ScenarioStage{
					{Name: "screen", ConfigRef: "screen", Order: 0, FailurePolicy: ruletypes.PolicyTerminate},
					{Name: "approve", ConfigRef: "approve", Order: 1, DependsOn: []string{"screen"}, FailurePolicy: ruletypes.PolicyTerminate},
				},
				DataTypes: []string{"TRADE"},
			},
		},
	}
}

func TestFacade_AddConfigurationThenRun(t *testing.T) {
	f := New(config.NewConfig())
	defer f.Shutdown()

	if err := f.AddConfiguration(testDocument()); err != nil {
		t.Fatalf("AddConfiguration() = %v", err)
	}

	result := f.Run(context.Background(), "onboarding", map[string]any{"amount": 5000})
	if result.Terminated {
		t.Fatalf("Run() terminated: %+v", result)
	}
	if len(result.Stages) != 2 {
		t.Fatalf("len(Stages) = %d, want 2", len(result.Stages))
	}
}

func TestFacade_RunAppliesEvaluationDeadline(t *testing.T) {
	f := New(config.NewConfig(config.WithEvaluationDeadline(time.Nanosecond)))
	defer f.Shutdown()

	if err := f.AddConfiguration(testDocument()); err != nil {
		t.Fatalf("AddConfiguration() = %v", err)
	}

	result := f.Run(context.Background(), "onboarding", map[string]any{"amount": 5000})
	if !result.Terminated {
		t.Fatal("Run() with a 1ns evaluation deadline should terminate via deadline exceeded")
	}
	for _, sr := range result.Stages {
		if !sr.Skipped || sr.SkipReason != "deadline exceeded" {
			t.Fatalf("stage %q = %+v, want skipped with reason %q", sr.Stage, sr, "deadline exceeded")
		}
	}
}

func TestFacade_RunUnknownScenario(t *testing.T) {
	f := New(config.NewConfig())
	defer f.Shutdown()

	result := f.Run(context.Background(), "does-not-exist", map[string]any{})
	if !result.Terminated {
		t.Fatal("Run() on an unknown scenario should terminate with an explanatory summary")
	}
}

func TestFacade_AddConfigurationRejectsDuplicateRuleID(t *testing.T) {
	f := New(config.NewConfig())
	defer f.Shutdown()

	doc := testDocument()
	doc.Rules = append(doc.Rules, ruletypes.RuleDoc{ID: "screen", Name: "dup", Condition: "true", Message: "dup", Enabled: true})

	if err := f.AddConfiguration(doc); err == nil {
		t.Fatal("AddConfiguration() with a duplicate rule id = nil, want an error")
	}
}

func TestFacade_HealthCheckAndShutdown(t *testing.T) {
	f := New(config.NewConfig())
	if err := f.AddConfiguration(testDocument()); err != nil {
		t.Fatal(err)
	}

	status := f.HealthCheck()
	if !status.Healthy || status.LoadedScenarios != 1 {
		t.Fatalf("HealthCheck() = %+v, want healthy with 1 scenario", status)
	}

	if err := f.Shutdown(); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
	status = f.HealthCheck()
	if status.Healthy || !status.Shutdown {
		t.Fatalf("HealthCheck() after Shutdown = %+v, want unhealthy/shutdown", status)
	}

	if err := f.AddConfiguration(testDocument()); err == nil {
		t.Fatal("AddConfiguration() after Shutdown = nil, want an error (post-shutdown throw boundary)")
	}

	result := f.Run(context.Background(), "onboarding", map[string]any{"amount": 1})
	if !result.Terminated {
		t.Fatal("Run() after Shutdown should report terminated")
	}
}
