package tool

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/supportmesh/core"
)

// BatchResult pairs one invocation with its outcome. InvokeAll returns
// results in the original invocation order regardless of completion order.
type BatchResult struct {
	Invocation Invocation
	Result     any
	Err        error
}

// InvokeAll executes a batch of tool calls, possibly in parallel, through
// the standard Invoke pipeline. maxParallel <= 0 runs the whole batch
// concurrently. Each call gets its own record; one failing call never stops
// its siblings.
func (a *Adapter) InvokeAll(ctx context.Context, turnCtx *core.TurnContext, invs []Invocation, maxParallel int) []BatchResult {
	n := len(invs)
	if n == 0 {
		return nil
	}

	results := make([]BatchResult, n)

	// Fast path: single call, execute inline.
	if n == 1 {
		result, err := a.Invoke(ctx, turnCtx, invs[0])
		results[0] = BatchResult{Invocation: invs[0], Result: result, Err: err}

		return results
	}

	maxPar := maxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	var wg sync.WaitGroup

	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()
	for i := range invs {
		if ctx.Err() != nil { // pre-check cancellation
			results[i] = BatchResult{Invocation: invs[i], Err: ctx.Err()}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, inv Invocation) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := a.Invoke(ctx, turnCtx, inv)
			results[idx] = BatchResult{Invocation: inv, Result: result, Err: err}
		}(i, invs[i])
	}

	wg.Wait()

	turnCtx.LogDebug(
		"tool.batch.complete",
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results
}
