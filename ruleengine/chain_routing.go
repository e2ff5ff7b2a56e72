package ruleengine

import (
	"context"
	"strings"

	"github.com/bittoy/ruleflow/ruletypes"
)

// resultBasedRoutingConfig is the typed shape of a result-based-routing
// RuleChain's configuration map, per spec.md §4.5.3: a router rule whose
// match message selects a named route — an ordered list of rules run in
// sequence, each gating the next the way a RuleGroup's AND operator does.
type resultBasedRoutingConfig struct {
	RouterRule string              `json:"router-rule"`
	Routes     map[string][]string `json:"routes"`
}

// executeResultBasedRouting evaluates RouterRule, then looks its match
// message up in Routes to find the rule sequence to run. A no-match router
// result stops the chain; a route miss is a RouteNotFound error, per
// spec.md §7. Every rule in the selected route runs in order, short-
// circuiting on the first non-match or error exactly as ExecuteRuleGroup's
// AND operator does.
func (e *Engine) executeResultBasedRouting(ctx context.Context, chain ruletypes.RuleChain, rules RuleSet, facts *ruletypes.FactContext, hook Hook, result *ruletypes.RuleChainResult) *ruletypes.RuleChainResult {
	var cfg resultBasedRoutingConfig
	if err := decodeConfig(chain, &cfg); err != nil {
		result.Outcome = "error"
		result.Err = err
		return result
	}

	router, err := resolveRule(chain, rules, cfg.RouterRule)
	if err != nil {
		result.Outcome = "error"
		result.Err = err
		return result
	}

	hook.BeforeNode(chain.ID(), router.ID(), facts)
	routerResult := e.ExecuteRule(ctx, router, facts)
	hook.AfterNode(chain.ID(), router.ID(), routerResult)
	result.Visit(router.ID())
	result.SetOutput(router.ID(), routerResult)

	if routerResult.IsError() {
		result.Outcome = "error"
		result.Err = routerResult.Err
		return result
	}
	if !routerResult.Matched() {
		result.Outcome = "no-match"
		return result
	}

	routeKey := routerResult.Message
	targetIDs, ok := cfg.Routes[routeKey]
	if !ok || len(targetIDs) == 0 {
		result.Outcome = "error"
		result.Err = ruletypes.NewError(ruletypes.RouteNotFound, "rule chain %q: no route for key %q", chain.ID(), routeKey)
		return result
	}

	var last ruletypes.RuleResult
	for _, id := range targetIDs {
		target, terr := resolveRule(chain, rules, id)
		if terr != nil {
			result.Outcome = "error"
			result.Err = terr
			return result
		}

		hook.BeforeNode(chain.ID(), target.ID(), facts)
		last = e.ExecuteRule(ctx, target, facts)
		hook.AfterNode(chain.ID(), target.ID(), last)
		result.Visit(target.ID())
		result.SetOutput(target.ID(), last)

		if last.IsError() {
			result.Outcome = "error"
			result.Err = last.Err
			return result
		}
		if !last.Matched() {
			result.Outcome = "ROUTE_" + strings.ToUpper(routeKey) + "_INCOMPLETE"
			return result
		}
	}

	result.Outcome = "ROUTE_" + strings.ToUpper(routeKey) + "_COMPLETED"
	return result
}
