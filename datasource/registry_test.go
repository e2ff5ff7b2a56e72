package datasource

import (
	"context"
	"sync"
	"testing"

	"github.com/bittoy/ruleflow/ruletypes"
)

type stubSource struct {
	name    string
	srcType string
	tags    []string
	healthy bool
}

func (s *stubSource) Name() string        { return s.name }
func (s *stubSource) SourceType() string  { return s.srcType }
func (s *stubSource) Tags() []string      { return s.tags }
func (s *stubSource) DataType() string    { return "record" }
func (s *stubSource) IsHealthy(context.Context) bool { return s.healthy }
func (s *stubSource) Lookup(context.Context, string) (map[string]any, error) { return nil, nil }
func (s *stubSource) Close() error { return nil }

func TestRegistry_RegisterDuplicateRejected(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Shutdown()

	a := &stubSource{name: "customers", srcType: "dataset", healthy: true}
	b := &stubSource{name: "customers", srcType: "dataset", healthy: true}

	if err := r.Register(a); err != nil {
		t.Fatalf("Register(a) error = %v", err)
	}
	if err := r.Register(b); ruletypes.KindOf(err) != ruletypes.DuplicateName {
		t.Fatalf("Register(b) error = %v, want DuplicateName", err)
	}

	got, ok := r.Lookup("customers")
	if !ok || got != ruletypes.DataSource(a) {
		t.Fatal("expected original registration to remain")
	}
}

// TestRegistry_StatisticsAfterRegisterAndRemove mirrors spec.md's invariant
// 5: after registering N distinct sources and removing M, total == N-M.
func TestRegistry_StatisticsAfterRegisterAndRemove(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Shutdown()

	for i := 0; i < 5; i++ {
		name := string(rune('a' + i))
		if err := r.Register(&stubSource{name: name, srcType: "dataset", healthy: true}); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}
	for i := 0; i < 2; i++ {
		name := string(rune('a' + i))
		if err := r.Unregister(name); err != nil {
			t.Fatalf("Unregister(%s) error = %v", name, err)
		}
	}

	stats := r.Statistics()
	if stats.Total != 3 {
		t.Fatalf("Statistics().Total = %d, want 3", stats.Total)
	}
}

// TestRegistry_HealthFlipEmitsTwoEvents mirrors spec.md's boundary
// behavior: a health flip true->false->true emits exactly two events.
func TestRegistry_HealthFlipEmitsTwoEvents(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Shutdown()

	src := &stubSource{name: "flaky", srcType: "rest", healthy: true}
	if err := r.Register(src); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var events []ruletypes.Event
	r.AddListener(ruletypes.ListenerFunc(func(e ruletypes.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}))

	src.healthy = false
	r.RefreshAll()
	src.healthy = true
	r.RefreshAll()

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("events = %v, want 2", events)
	}
	if events[0].Type != ruletypes.EventHealthLost || events[1].Type != ruletypes.EventHealthRestored {
		t.Fatalf("events = %v, want [HEALTH_LOST, HEALTH_RESTORED]", events)
	}
}

func TestRegistry_ShutdownIsIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&stubSource{name: "customers", srcType: "dataset", healthy: true})

	if err := r.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := r.Shutdown(); err != nil {
		t.Fatalf("second Shutdown() error = %v, want nil (no-op)", err)
	}
}

func TestRegistry_HealthyAndUnhealthy(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Shutdown()

	up := &stubSource{name: "up", srcType: "dataset", healthy: true}
	down := &stubSource{name: "down", srcType: "dataset", healthy: false}
	r.Register(up)
	r.Register(down)

	if names := r.Healthy(); len(names) != 1 || names[0] != "up" {
		t.Fatalf("Healthy() = %v, want [up]", names)
	}
	if names := r.Unhealthy(); len(names) != 1 || names[0] != "down" {
		t.Fatalf("Unhealthy() = %v, want [down]", names)
	}

	down.healthy = true
	r.RefreshAll()
	if names := r.Unhealthy(); len(names) != 0 {
		t.Fatalf("Unhealthy() after recovery = %v, want none", names)
	}
}

func TestRegistry_ByTypeAndByTag(t *testing.T) {
	r := NewRegistry(nil)
	defer r.Shutdown()

	r.Register(&stubSource{name: "customers", srcType: "dataset", tags: []string{"pii", "core"}, healthy: true})
	r.Register(&stubSource{name: "orders", srcType: "dataset", tags: []string{"core"}, healthy: true})
	r.Register(&stubSource{name: "pricing", srcType: "rest", tags: []string{"external"}, healthy: true})

	if names := r.ByType("dataset"); len(names) != 2 {
		t.Fatalf("ByType(dataset) = %v, want 2 entries", names)
	}
	if names := r.ByTag("core"); len(names) != 2 {
		t.Fatalf("ByTag(core) = %v, want 2 entries", names)
	}
}
