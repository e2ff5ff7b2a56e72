package metrics

import (
	"testing"
	"time"
)

func TestMonitor_CompleteRecordsAggregate(t *testing.T) {
	m := NewMonitor(0, nil)
	h := m.Start("discount-rule")
	time.Sleep(time.Millisecond)
	metrics := m.Complete(h, "#a > 0", nil)

	if metrics.ElapsedNanos <= 0 {
		t.Fatalf("ElapsedNanos = %d, want > 0", metrics.ElapsedNanos)
	}
	if metrics.Outcome != "ok" {
		t.Fatalf("Outcome = %q, want ok", metrics.Outcome)
	}

	agg, ok := m.AggregateFor("discount-rule")
	if !ok {
		t.Fatal("expected an aggregate for discount-rule")
	}
	if agg.Count != 1 {
		t.Fatalf("Count = %d, want 1", agg.Count)
	}
}

func TestMonitor_SlowRuleWarns(t *testing.T) {
	var warned bool
	log := testLogger{onWarn: func(string, ...any) { warned = true }}
	m := NewMonitor(time.Nanosecond, log)
	h := m.Start("slow-rule")
	time.Sleep(time.Millisecond)
	m.Complete(h, "#a", nil)

	if !warned {
		t.Fatal("expected a slow-rule warning")
	}
}

type testLogger struct {
	onWarn func(string, ...any)
}

func (testLogger) Debugf(string, ...any) {}
func (testLogger) Infof(string, ...any)  {}
func (t testLogger) Warnf(format string, args ...any) {
	if t.onWarn != nil {
		t.onWarn(format, args...)
	}
}
func (testLogger) Errorf(string, ...any) {}
