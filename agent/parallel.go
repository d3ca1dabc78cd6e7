// ParallelAgent executes child agents concurrently with branch isolation,
// enabling fan-out information gathering from independent sources.

package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/supportmesh/core"
)

// ChildResult captures one parallel child's settled outcome. Either Output
// or Err is set; the join barrier collects every child before synthesis.
type ChildResult struct {
	Name   string
	Output string
	Err    error
}

// ParallelOptions configure a ParallelAgent.
type ParallelOptions struct {
	// Timeout bounds the whole fan-out. Zero disables the deadline;
	// children then rely on their own model/tool timeouts.
	Timeout time.Duration
	// Synthesizer combines the children's results into the node's output.
	// Defaults to the deterministic digest formatter.
	Synthesizer Synthesizer
}

// ParallelAgent coordinates the concurrent execution of multiple child agents.
//
// Each child runs in its own goroutine with an isolated branch path and its
// own scratch scope, so sibling writes to the same logical key (e.g. every
// searcher's "result") land on distinct session keys. The join barrier waits
// for every child to settle, collecting successes and failures alike; it is
// never a wait-for-first race. A Synthesizer then merges the tagged results
// into one output and must degrade gracefully when some children failed.
//
// ParallelAgent is ideal for:
//   - Independent information gathering from multiple sources
//   - I/O bound operations that can run concurrently
//   - Scenarios where sibling order doesn't matter
type ParallelAgent struct {
	BaseAgent
	timeout     time.Duration
	synthesizer Synthesizer
}

// NewParallel creates a new parallel execution coordinator over the given
// children.
func NewParallel(name string, children []core.Agent, optFns ...func(o *ParallelOptions)) *ParallelAgent {
	opts := ParallelOptions{
		Synthesizer: DigestSynthesizer{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	a := &ParallelAgent{
		BaseAgent:   NewBaseAgent(name),
		timeout:     opts.Timeout,
		synthesizer: opts.Synthesizer,
	}
	a.SetChildren(children...)

	return a
}

// Kind implements core.Agent.
func (p *ParallelAgent) Kind() core.Kind { return core.KindParallel }

// Tools implements core.Agent. Composite nodes hold no tools.
func (p *ParallelAgent) Tools() []string { return nil }

// Execute implements core.Agent. All children run concurrently; after the
// join barrier the synthesizer produces the node's output from the settled
// results. Only total failure (every child failed, or the synthesizer
// itself) fails the node.
func (p *ParallelAgent) Execute(ctx context.Context, tc *core.TurnContext, input string) (string, error) {
	tc.RecordVisit(p.Name())

	children := p.Children()
	if len(children) == 0 {
		return input, nil
	}

	execCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc

		execCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	results := make([]ChildResult, len(children))

	var wg sync.WaitGroup

	for i, child := range children {
		wg.Add(1)

		go func(idx int, c core.Agent) {
			defer wg.Done()

			// Isolated branch and scratch partition per sibling.
			childTC := tc.ForChild(Info(c)).WithScratchScope(p.Name()).WithScratchScope(c.Name())

			output, err := c.Execute(execCtx, childTC, input)
			if err != nil {
				err = fmt.Errorf("parallel execution failed for agent %s: %w", c.Name(), err)
			}

			results[idx] = ChildResult{Name: c.Name(), Output: output, Err: err}
		}(i, child)
	}

	// Join barrier: every child settles before synthesis.
	wg.Wait()

	if err := ctx.Err(); err != nil {
		// The turn was canceled; committed scratch writes stay as they are.
		return "", err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++

			tc.LogWarn("agent.parallel.child_failed", "agent", p.Name(), "child", res.Name, "error", res.Err.Error())
		}
	}

	if failed == len(results) {
		return "", results[0].Err
	}

	output, err := p.synthesizer.Synthesize(ctx, tc, input, results)
	if err != nil {
		return "", &SynthesisError{Node: p.Name(), Err: err}
	}

	tc.LogInfo("agent.parallel.done", "agent", p.Name(), "children", len(results), "failed", failed)

	return output, nil
}
