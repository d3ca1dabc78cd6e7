package agent

import (
	"fmt"
	"sync"

	"github.com/hupe1980/supportmesh/core"
)

// BaseAgent bundles identity and child bookkeeping shared by every node
// implementation. Embed it in concrete agents and supply Kind, Tools and
// Execute to satisfy core.Agent. The child set is fixed after construction;
// trees are authored, never grown mid-turn.
type BaseAgent struct {
	name        string       // Human-readable name, unique within the tree
	description string       // Detailed description of agent's purpose
	mu          sync.Mutex   // Protects concurrent access to the child set
	children    []core.Agent // Child agents managed by this agent
}

// NewBaseAgent constructs a BaseAgent with generated description (customizable via SetDescription).
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a detailed description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description. Router parents feed child
// descriptions to the classifier, so routed agents should describe the
// requests they handle.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// SetChildren replaces the child agent set.
func (b *BaseAgent) SetChildren(children ...core.Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.children = append([]core.Agent(nil), children...)
}

// Children returns a shallow copy of the child agents for safe iteration.
func (b *BaseAgent) Children() []core.Agent {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]core.Agent, len(b.children))
	copy(result, b.children)

	return result
}

// Info returns the AgentInfo for an agent, used when deriving child turn
// contexts and trace entries.
func Info(a core.Agent) core.AgentInfo {
	return core.AgentInfo{Name: a.Name(), Kind: a.Kind()}
}

// Find performs a depth-first search over the tree rooted at root
// (including root itself) returning the first agent whose Name matches.
// Returns nil if no match is found.
func Find(root core.Agent, name string) core.Agent {
	if root == nil {
		return nil
	}

	if root.Name() == name {
		return root
	}

	for _, child := range root.Children() {
		if found := Find(child, name); found != nil {
			return found
		}
	}

	return nil
}

// Names returns the child names of an agent in declaration order.
func Names(children []core.Agent) []string {
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.Name()
	}

	return names
}
