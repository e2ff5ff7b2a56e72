package recovery

import (
	"testing"

	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/expr"
	"github.com/bittoy/ruleflow/ruletypes"
)

func TestRewriteSafe_GuardsFieldAccess(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#account.balance > 0", "(#account != nil && #account.balance) > 0"},
		{"#score > 10", "(#score > 10)"},
	}
	for _, tt := range tests {
		got := RewriteSafe(tt.in)
		if got != tt.want {
			t.Fatalf("RewriteSafe(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestService_Recover_ContinueWithDefault(t *testing.T) {
	svc := NewService(config.RecoveryConfig{Enabled: true, DefaultStrategy: string(ContinueWithDefault)}, config.NopLogger())
	failed := ruletypes.ErrorResult("r1", ruletypes.NewError(ruletypes.UndefinedVariable, "boom"))
	failed.Metrics = &ruletypes.Metrics{RuleName: "r1", Outcome: "error"}

	ev := expr.NewEvaluator()
	recovered := svc.Recover("r1", failed, ev, "#missing", ruletypes.NewFactContext(nil), "")

	if recovered.Variant != ruletypes.VariantNoMatch {
		t.Fatalf("Recover() variant = %v, want no-match", recovered.Variant)
	}
	if recovered.Metrics == nil || recovered.Metrics.RuleName != "r1" {
		t.Fatalf("Recover() did not preserve pre-recovery metrics")
	}
}

func TestService_Recover_FailFast(t *testing.T) {
	svc := NewService(config.RecoveryConfig{Enabled: true, DefaultStrategy: string(FailFast)}, config.NopLogger())
	failed := ruletypes.ErrorResult("r1", ruletypes.NewError(ruletypes.ParseError, "boom"))

	ev := expr.NewEvaluator()
	recovered := svc.Recover("r1", failed, ev, "#x", ruletypes.NewFactContext(nil), "")

	if !recovered.IsError() {
		t.Fatalf("Recover() with fail-fast should propagate the error, got variant %v", recovered.Variant)
	}
}
