package ruleflow

import (
	"fmt"

	"github.com/bittoy/ruleflow/classify"
	"github.com/bittoy/ruleflow/config"
	"github.com/bittoy/ruleflow/ruleengine"
	"github.com/bittoy/ruleflow/ruletypes"
)

// snapshot is one immutable, fully-compiled configuration, swapped
// atomically by Reload/AddConfiguration per spec.md §5 ("Configuration
// objects are treated as immutable after loading; any reload builds a new
// object and atomically swaps a single reference").
type snapshot struct {
	ruleSet    *ruleengine.StaticRuleSet
	chains     map[string]ruletypes.RuleChain
	scenarios  map[string]ruletypes.Scenario
	classifier *classify.Pipeline
}

// emptySnapshot returns a snapshot with no rules, chains, or scenarios
// loaded; Classify against it reports a configuration error and Run reports
// the requested scenario as not found, in a terminated result.
func emptySnapshot(cfg config.Config, log config.Logger) *snapshot {
	return &snapshot{
		chains:    map[string]ruletypes.RuleChain{},
		scenarios: map[string]ruletypes.Scenario{},
		ruleSet:   ruleengine.NewStaticRuleSet(nil, nil),
	}
}

// compile turns a ConfigurationDocument into a snapshot, building the
// immutable runtime types (Rule, RuleGroup, RuleChain, Scenario) from their
// already-typed document shapes and rejecting duplicate IDs, per spec.md
// §6/§7's "duplicate registration is a programmer error" contract.
func compile(doc ruletypes.ConfigurationDocument, cfg config.Config, log config.Logger) (*snapshot, error) {
	rules, err := compileRules(doc.Rules)
	if err != nil {
		return nil, err
	}
	groups, err := compileGroups(doc.RuleGroups, rules)
	if err != nil {
		return nil, err
	}
	chains, err := compileChains(doc.RuleChains)
	if err != nil {
		return nil, err
	}
	scenarios, err := compileScenarios(doc.Scenarios)
	if err != nil {
		return nil, err
	}

	ruleSlice := make([]ruletypes.Rule, 0, len(rules))
	for _, r := range rules {
		ruleSlice = append(ruleSlice, r)
	}
	groupSlice := make([]ruletypes.RuleGroup, 0, len(groups))
	for _, g := range groups {
		groupSlice = append(groupSlice, g)
	}

	snap := &snapshot{
		ruleSet:   ruleengine.NewStaticRuleSet(ruleSlice, groupSlice),
		chains:    chains,
		scenarios: scenarios,
	}

	scenarioList := make([]ruletypes.Scenario, 0, len(scenarios))
	for _, s := range scenarios {
		scenarioList = append(scenarioList, s)
	}
	cacheCfg := cfg.ClassificationCache
	snap.classifier = classify.NewPipeline(defaultDetectors(), scenarioList, cacheCfg, log)
	return snap, nil
}

func compileRules(docs []ruletypes.RuleDoc) (map[string]ruletypes.Rule, error) {
	out := make(map[string]ruletypes.Rule, len(docs))
	for _, d := range docs {
		if _, dup := out[d.ID]; dup {
			return nil, fmt.Errorf("ruleflow: duplicate rule id %q", d.ID)
		}
		builder := ruletypes.NewRuleBuilder(d.ID).
			Name(d.Name).
			Condition(d.Condition).
			Message(d.Message).
			Description(d.Description).
			Priority(d.Priority)
		if d.Kind == string(ruletypes.KindScript) {
			builder = builder.Kind(ruletypes.KindScript)
		}
		if d.Category != "" {
			builder = builder.Categories(ruletypes.Category{Name: d.Category})
		}
		meta := ruletypes.NewMetadataBuilder().
			CreatedBy(d.CreatedBy).
			BusinessDomain(d.BusinessDomain).
			BusinessOwner(d.BusinessOwner).
			SourceSystem(d.SourceSystem)
		if !d.Enabled {
			meta = meta.Status(ruletypes.StatusInactive)
		}
		for k, v := range d.CustomProperties {
			meta = meta.CustomProperty(k, v)
		}
		builder = builder.Metadata(meta.Build())

		rule, err := builder.Build()
		if err != nil {
			return nil, fmt.Errorf("ruleflow: rule %q: %w", d.ID, err)
		}
		out[d.ID] = rule
	}
	return out, nil
}

func compileGroups(docs []ruletypes.RuleGroupDoc, rules map[string]ruletypes.Rule) (map[string]ruletypes.RuleGroup, error) {
	out := make(map[string]ruletypes.RuleGroup, len(docs))
	for _, d := range docs {
		if _, dup := out[d.ID]; dup {
			return nil, fmt.Errorf("ruleflow: duplicate rule-group id %q", d.ID)
		}
		builder := ruletypes.NewRuleGroupBuilder(d.ID).
			Name(d.Name).
			Description(d.Category).
			Operator(ruletypes.Operator(d.Operator)).
			Priority(d.Priority)
		for _, ruleID := range d.RuleIDs {
			rule, ok := rules[ruleID]
			if !ok {
				return nil, fmt.Errorf("ruleflow: rule-group %q: rule %q not found", d.ID, ruleID)
			}
			builder = builder.AddRule(rule)
		}
		group, err := builder.Build()
		if err != nil {
			return nil, fmt.Errorf("ruleflow: rule-group %q: %w", d.ID, err)
		}
		out[d.ID] = group
	}
	return out, nil
}

func compileChains(docs []ruletypes.RuleChainDoc) (map[string]ruletypes.RuleChain, error) {
	out := make(map[string]ruletypes.RuleChain, len(docs))
	for _, d := range docs {
		if _, dup := out[d.ID]; dup {
			return nil, fmt.Errorf("ruleflow: duplicate rule-chain id %q", d.ID)
		}
		chain, err := ruletypes.NewRuleChainBuilder(d.ID, ruletypes.ChainPattern(d.Pattern)).
			Name(d.Name).
			Enabled(d.Enabled).
			Priority(d.Priority).
			Configuration(d.Configuration).
			Build()
		if err != nil {
			return nil, fmt.Errorf("ruleflow: rule-chain %q: %w", d.ID, err)
		}
		out[d.ID] = chain
	}
	return out, nil
}

func compileScenarios(docs []ruletypes.ScenarioDoc) (map[string]ruletypes.Scenario, error) {
	out := make(map[string]ruletypes.Scenario, len(docs))
	for _, d := range docs {
		if _, dup := out[d.ID]; dup {
			return nil, fmt.Errorf("ruleflow: duplicate scenario id %q", d.ID)
		}
		out[d.ID] = ruletypes.Scenario{
			ID:             d.ID,
			Stages:         d.Stages,
			DataTypes:      d.DataTypes,
			BusinessDomain: d.BusinessDomain,
			Owner:          d.Owner,
		}
	}
	return out, nil
}

// defaultDetectors returns the standard format-detector chain (extension,
// then content-sniffing), per spec.md §4.8.
func defaultDetectors() []classify.FormatDetector {
	return []classify.FormatDetector{
		classify.NewExtensionDetector(0),
		classify.NewContentSniffDetector(1),
	}
}
