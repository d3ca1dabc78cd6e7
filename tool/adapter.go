package tool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/model"
)

// Invocation describes one tool call an agent wants executed. Authorized is
// the tool name set the calling agent declared at construction; calls outside
// it are rejected before lookup.
type Invocation struct {
	CallID     string
	Agent      string
	Name       string
	Args       map[string]any
	Authorized []string
}

// AdapterOptions configure the shared tool adapter.
type AdapterOptions struct {
	// Timeout bounds each tool execution. Zero disables the per-call deadline.
	Timeout time.Duration
}

// Adapter is the process-wide tool registry and invocation pipeline. All
// agents share one adapter; per-agent capability is enforced through the
// Authorized set on each Invocation.
//
// Invoke runs the fixed pipeline: authorize, lookup, execute under deadline
// with panic containment, then record the call on the turn. Every failure
// surfaces as *ToolError with a categorized code.
type Adapter struct {
	mu    sync.RWMutex
	tools map[string]Tool
	opts  AdapterOptions
}

// NewAdapter constructs an empty adapter.
func NewAdapter(optFns ...func(o *AdapterOptions)) *Adapter {
	opts := AdapterOptions{
		Timeout: 10 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Adapter{
		tools: make(map[string]Tool),
		opts:  opts,
	}
}

// Register adds tools to the registry. Duplicate names are an error so a
// mis-assembled tree fails at startup, not mid-turn.
func (a *Adapter) Register(tools ...Tool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, t := range tools {
		if t == nil || t.Name() == "" {
			return fmt.Errorf("tool must have a name")
		}

		if _, exists := a.tools[t.Name()]; exists {
			return fmt.Errorf("tool %q already registered", t.Name())
		}

		a.tools[t.Name()] = t
	}

	return nil
}

// Lookup returns the registered tool with the given name.
func (a *Adapter) Lookup(name string) (Tool, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	t, ok := a.tools[name]

	return t, ok
}

// Names returns all registered tool names, sorted.
func (a *Adapter) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Definitions builds model-facing tool definitions for the named tools.
// Unknown names are skipped; the agent finds out when the model calls them.
func (a *Adapter) Definitions(names []string) []model.ToolDefinition {
	a.mu.RLock()
	defer a.mu.RUnlock()

	defs := make([]model.ToolDefinition, 0, len(names))
	for _, name := range names {
		t, ok := a.tools[name]
		if !ok {
			continue
		}

		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return defs
}

// Invoke executes one tool call through the full pipeline and records the
// outcome on the turn. The returned error is always *ToolError (or the
// caller's context error when the turn itself was canceled).
func (a *Adapter) Invoke(ctx context.Context, turnCtx *core.TurnContext, inv Invocation) (any, error) {
	start := time.Now()

	result, err := a.invoke(ctx, turnCtx, inv)

	rec := core.ToolCallRecord{
		ID:      inv.CallID,
		Tool:    inv.Name,
		Agent:   inv.Agent,
		Args:    inv.Args,
		Latency: time.Since(start),
	}
	if err != nil {
		rec.ErrorKind = ErrorKind(err)
		rec.Error = err.Error()
	} else {
		rec.Result = result
	}
	turnCtx.RecordToolCall(rec)

	turnCtx.LogInfo(
		"tool.invoke.done",
		"agent", inv.Agent,
		"tool", inv.Name,
		"function_call_id", inv.CallID,
		"duration_ms", rec.Latency.Milliseconds(),
		"error_kind", rec.ErrorKind,
	)

	return result, err
}

func (a *Adapter) invoke(ctx context.Context, turnCtx *core.TurnContext, inv Invocation) (any, error) {
	if !authorized(inv) {
		return nil, NewToolError(inv.Name, fmt.Sprintf("agent %s did not declare tool %s", inv.Agent, inv.Name), CodeUnauthorized)
	}

	impl, ok := a.Lookup(inv.Name)
	if !ok {
		return nil, NewToolError(inv.Name, "tool not registered", CodeNotFound)
	}

	toolCtx := core.NewToolContext(turnCtx, inv.Name, inv.CallID)

	execCtx := ctx
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	type outcome struct {
		result any
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		defer func() { // panic safety
			if r := recover(); r != nil {
				turnCtx.LogError("tool.invoke.panic", "tool", inv.Name, "recover", r, "stack", string(debug.Stack()))
				done <- outcome{err: NewToolError(inv.Name, fmt.Sprintf("panic: %v", r), CodeUpstream)}
			}
		}()

		result, err := impl.Call(execCtx, toolCtx, inv.Args)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-execCtx.Done():
		if ctx.Err() != nil {
			// The turn itself was canceled; propagate rather than classify.
			return nil, ctx.Err()
		}

		return nil, NewToolError(inv.Name, fmt.Sprintf("execution exceeded %s", a.opts.Timeout), CodeTimeout)
	case out := <-done:
		if out.err != nil {
			if ctx.Err() == nil && execCtx.Err() == context.DeadlineExceeded {
				return nil, NewToolError(inv.Name, fmt.Sprintf("execution exceeded %s", a.opts.Timeout), CodeTimeout)
			}

			return nil, out.err
		}

		return out.result, nil
	}
}

func authorized(inv Invocation) bool {
	for _, name := range inv.Authorized {
		if name == inv.Name {
			return true
		}
	}

	return false
}
