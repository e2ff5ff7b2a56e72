// Package ruleflow is the service façade (C11): an in-process library
// entry point holding the registry, classification cache, rule engine,
// and scenario executor as one shared set of collaborators, and exposing
// Classify/Run/AddConfiguration/RemoveConfiguration/Reload/HealthCheck/
// Shutdown. Grounded on the teacher's engine.NewConfig +
// engine.ChainEngine wiring style (a handful of constructors assembling a
// fixed collaborator graph once, then serving requests against it),
// generalized from "one engine per chain" to "one façade owning shared
// resources across every loaded scenario," and on ChainEngine's
// atomic-pointer reload (its ruleChainCtx field is swapped via
// atomic.StorePointer so in-flight requests keep running against the old
// chain) — reimplemented here with the generic, safe atomic.Pointer
// instead of unsafe.Pointer, since this façade swaps a whole
// configuration snapshot rather than a single chain context.
package ruleflow

import (
	"context"
	"sync/atomic"

	"github.com/bittoy/ruleflow/cache"
	"github.com/bittoy/ruleflow/classify"
	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/datasource"
	"github.com/bittoy/ruleflow/expr"
	"github.com/bittoy/ruleflow/metrics"
	"github.com/bittoy/ruleflow/recovery"
	"github.com/bittoy/ruleflow/ruleengine"
	"github.com/bittoy/ruleflow/ruletypes"
	"github.com/bittoy/ruleflow/scenario"
	"github.com/bittoy/ruleflow/script"
)

// Facade is the service façade described in spec.md §4.11. The zero value
// is not usable; build one with New.
type Facade struct {
	cfg config.Config
	log config.Logger

	registry *datasource.Registry
	engine   *ruleengine.Engine

	current atomic.Pointer[snapshot]
	closed  atomic.Bool
}

// New builds a Facade from cfg, starting with an empty configuration
// snapshot. Load one or more configuration documents with AddConfiguration
// before calling Classify or Run.
func New(cfg config.Config) *Facade {
	log := cfg.Logger
	if log == nil {
		log = config.NopLogger()
	}

	f := &Facade{
		cfg:      cfg,
		log:      log,
		registry: datasource.NewRegistry(log),
	}
	evaluator := expr.NewEvaluator()
	if len(cfg.Udf) > 0 {
		fns := make(map[string]any, len(cfg.Udf))
		for name, fn := range cfg.Udf {
			fns[name] = fn
		}
		evaluator.SetFunctions(fns)
	}
	f.engine = ruleengine.New(
		evaluator,
		script.NewEngine(cfg.Properties),
		recovery.NewService(cfg.Recovery, log),
		metrics.NewMonitor(cfg.SlowRuleThreshold, log),
		log,
	)
	f.current.Store(emptySnapshot(cfg, log))
	return f
}

// HealthStatus is the result of HealthCheck.
type HealthStatus struct {
	Healthy           bool
	Shutdown          bool
	LoadedScenarios   int
	LoadedRuleChains  int
	RegistryStatistics datasource.Statistics
	ClassificationCacheStatistics cache.Stats
}

// HealthCheck reports the façade's current operational status. Never
// returns a Go error, per spec.md §4.11's all-synchronous/all-result
// contract.
func (f *Facade) HealthCheck() HealthStatus {
	snap := f.current.Load()
	status := HealthStatus{
		Shutdown:          f.closed.Load(),
		LoadedScenarios:   len(snap.scenarios),
		LoadedRuleChains:  len(snap.chains),
		RegistryStatistics: f.registry.Statistics(),
	}
	if snap.classifier != nil {
		status.ClassificationCacheStatistics = snap.classifier.Statistics()
	}
	status.Healthy = !status.Shutdown
	return status
}

// Classify runs the classification pipeline (C8) over content using the
// currently active configuration snapshot. A request in flight when Reload
// swaps the snapshot still completes against the snapshot it started with,
// since snap is captured once at the top of the call.
func (f *Facade) Classify(ctx context.Context, content []byte, fileName string, size int64) ruletypes.ClassificationResult {
	if f.closed.Load() {
		return ruletypes.ClassificationResult{Err: ruletypes.NewError(ruletypes.ShutdownErr, "facade is shut down")}
	}
	snap := f.current.Load()
	if snap.classifier == nil {
		return ruletypes.ClassificationResult{Err: ruletypes.NewError(ruletypes.ConfigurationErr, "no configuration loaded")}
	}
	return snap.classifier.Classify(ctx, content, fileName, size)
}

// Run executes scenarioID's stages against data using the currently active
// configuration snapshot, per spec.md §4.10/§4.11.
func (f *Facade) Run(ctx context.Context, scenarioID string, data map[string]any) *ruletypes.ScenarioExecutionResult {
	if f.closed.Load() {
		result := ruletypes.NewScenarioExecutionResult(scenarioID)
		result.Terminated = true
		result.Summary = "facade is shut down"
		return result
	}
	snap := f.current.Load()
	sc, ok := snap.scenarios[scenarioID]
	if !ok {
		result := ruletypes.NewScenarioExecutionResult(scenarioID)
		result.Terminated = true
		result.Summary = "scenario " + scenarioID + " not found"
		return result
	}

	executor := scenario.NewExecutor(f.engine, scenario.RuleSetResolver{Rules: snap.ruleSet}, f.log)

	if f.cfg.EvaluationDeadline > 0 {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, f.cfg.EvaluationDeadline)
			defer cancel()
		}
	}
	return executor.ExecuteStages(ctx, sc, data)
}

// AddConfiguration compiles doc and replaces the active configuration
// snapshot, merging data-source bindings into the shared registry. Returns
// a Go error on a programmer-error condition (duplicate IDs, an invalid
// rule/rule-group/chain, an already-shut-down façade; scenarios are checked
// for duplicate IDs only) — the narrow "throw"
// boundary spec.md §7 reserves for this call.
func (f *Facade) AddConfiguration(doc ruletypes.ConfigurationDocument) error {
	if f.closed.Load() {
		return ruletypes.NewError(ruletypes.ShutdownErr, "facade is shut down")
	}
	snap, err := compile(doc, f.cfg, f.log)
	if err != nil {
		return err
	}
	if err := f.bindDataSources(doc); err != nil {
		return err
	}
	f.current.Store(snap)
	return nil
}

// RemoveConfiguration clears the active configuration snapshot back to
// empty. Data-source registrations are left untouched: they are owned by
// the registry independently of any one configuration document.
func (f *Facade) RemoveConfiguration(name string) error {
	if f.closed.Load() {
		return ruletypes.NewError(ruletypes.ShutdownErr, "facade is shut down")
	}
	f.current.Store(emptySnapshot(f.cfg, f.log))
	return nil
}

// Reload atomically replaces the active configuration with doc. It is
// atomic from the perspective of new requests: Classify/Run calls already
// in flight keep running against the snapshot they captured at entry, per
// spec.md §4.11.
func (f *Facade) Reload(doc ruletypes.ConfigurationDocument) error {
	return f.AddConfiguration(doc)
}

// Shutdown releases the façade's owned resources (the registry's
// health-monitor goroutine and the classification cache's janitor). It is
// idempotent; subsequent calls to any other façade method observe the
// shutdown state per their own documented contract.
func (f *Facade) Shutdown() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	snap := f.current.Load()
	if snap.classifier != nil {
		snap.classifier.Shutdown()
	}
	return f.registry.Shutdown()
}

// bindDataSources registers every data-source binding in doc with the
// shared registry, skipping names already present (a reload does not
// re-register an unchanged source).
func (f *Facade) bindDataSources(doc ruletypes.ConfigurationDocument) error {
	for _, ds := range doc.DataSources {
		if _, ok := f.registry.Lookup(ds.Name); ok {
			continue
		}
		source := newConfiguredSource(ds, f.log)
		if err := f.registry.Register(source); err != nil {
			return err
		}
	}
	return nil
}
