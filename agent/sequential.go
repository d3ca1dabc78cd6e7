package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/supportmesh/core"
)

// SequentialAgent coordinates the execution of multiple child agents in sequence.
//
// This agent type enables multi-step workflows by executing child agents one
// after another. Each child's output becomes the next child's input, and
// scratch mutations thread forward: child i+1 observes everything child i
// committed.
//
// Key features:
//   - Ordered execution with state propagation
//   - Early termination on errors (no partial synthesis)
//   - Hierarchical branch naming for traces and logs
//
// SequentialAgent is ideal for:
//   - Gather-then-diagnose pipelines
//   - Workflows requiring specific execution order
//   - Complex tasks broken into specialized subtasks
//   - Scenarios where agent outputs build upon each other
type SequentialAgent struct {
	BaseAgent
}

// NewSequential creates a new sequential execution coordinator.
//
// The agent will execute the provided child agents in the order they are
// specified, threading each output into the next input.
func NewSequential(name string, children ...core.Agent) *SequentialAgent {
	a := &SequentialAgent{BaseAgent: NewBaseAgent(name)}
	a.SetChildren(children...)

	return a
}

// Kind implements core.Agent.
func (s *SequentialAgent) Kind() core.Kind { return core.KindSequential }

// Tools implements core.Agent. Composite nodes hold no tools.
func (s *SequentialAgent) Tools() []string { return nil }

// Execute implements core.Agent. It executes each child in listed order;
// the first error stops further processing immediately and propagates.
// The node's own output is the last child's output.
func (s *SequentialAgent) Execute(ctx context.Context, tc *core.TurnContext, input string) (string, error) {
	tc.RecordVisit(s.Name())

	output := input
	for _, child := range s.Children() {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		childTC := tc.ForChild(Info(child))

		result, err := child.Execute(ctx, childTC, output)
		if err != nil {
			return "", fmt.Errorf("sequential execution failed at agent %s: %w", child.Name(), err)
		}

		output = result
	}

	return output, nil
}
