package ruleengine

import "github.com/bittoy/ruleflow/ruletypes"

// Hook observes rule-chain execution without participating in its outcome,
// adapted from the teacher's AOP-style aspects (types/aspect.go,
// builtin/aspect/chain_debug_aspect.go, node_debug_aspect.go): those wrap
// every node/chain invocation to log before/after state for debugging. Here
// the same before/after shape is kept but narrowed to the one thing a chain
// caller legitimately needs to observe — which node ran and what it
// produced — instead of a generic AOP interception point.
type Hook interface {
	// BeforeNode is called immediately before nodeID executes within chain.
	BeforeNode(chainID, nodeID string, facts *ruletypes.FactContext)
	// AfterNode is called immediately after nodeID executes, with its result.
	AfterNode(chainID, nodeID string, result ruletypes.RuleResult)
}

// NopHook is a Hook that does nothing, used when no caller-supplied Hook is
// configured.
type NopHook struct{}

func (NopHook) BeforeNode(string, string, *ruletypes.FactContext) {}
func (NopHook) AfterNode(string, string, ruletypes.RuleResult)    {}

// HookFuncs adapts two plain functions into a Hook, mirroring the teacher's
// ListenerFunc-style function-to-interface adapters used elsewhere in the
// pack (ruletypes.ListenerFunc).
type HookFuncs struct {
	Before func(chainID, nodeID string, facts *ruletypes.FactContext)
	After  func(chainID, nodeID string, result ruletypes.RuleResult)
}

func (h HookFuncs) BeforeNode(chainID, nodeID string, facts *ruletypes.FactContext) {
	if h.Before != nil {
		h.Before(chainID, nodeID, facts)
	}
}

func (h HookFuncs) AfterNode(chainID, nodeID string, result ruletypes.RuleResult) {
	if h.After != nil {
		h.After(chainID, nodeID, result)
	}
}
