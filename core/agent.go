package core

import "context"

// Kind identifies the composition behavior of an agent node. The set is
// closed: orchestration semantics are selected by tag, never by reflection
// or capability discovery.
type Kind string

const (
	// KindLeaf marks a terminal node that produces a reply by consulting the
	// language model, optionally calling its declared tools first.
	KindLeaf Kind = "leaf"
	// KindSequential marks a node that runs its children in order, threading
	// output and scratch state forward.
	KindSequential Kind = "sequential"
	// KindParallel marks a node that runs all children concurrently and
	// synthesizes their tagged results into one reply.
	KindParallel Kind = "parallel"
	// KindRouter marks a node that classifies the input and transfers
	// control to exactly one child.
	KindRouter Kind = "router"
)

// Agent is one node in the orchestration tree.
//
// The tree is authored: children are fixed at construction, acyclic and of
// finite depth. Execute drives the node for a single turn and returns the
// node's reply text; composition nodes (sequential, parallel, router)
// delegate to children through the same interface.
//
// Implementations must:
//   - Respect context cancellation on every blocking call
//   - Record their visit on the TurnContext before doing work
//   - Confine scratch writes to the context's scope (parallel partitioning)
type Agent interface {
	Name() string
	Description() string
	Kind() Kind
	Tools() []string
	Children() []Agent
	Execute(ctx context.Context, tc *TurnContext, input string) (string, error)
}

// AgentInfo carries identifying details about an agent used in traces and logs.
// Name is the external identifier; Kind categorizes the composition behavior.
type AgentInfo struct {
	Name string
	Kind Kind
}
