package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/model"
	"github.com/hupe1980/supportmesh/tool"
)

// LeafOptions configures a LeafAgent instance.
//
// Use functional options with NewLeaf to override defaults.
type LeafOptions struct {
	// Instruction is the system prompt, rendered against the turn's state
	// view before each model call.
	Instruction Instruction
	// Tools is the set of tool names this agent may invoke through the
	// shared adapter. Calls outside the set are rejected as UNAUTHORIZED.
	Tools []string
	// OutputKey, when set, stores the final reply in session scratch under
	// the key (scoped when running inside a parallel branch).
	OutputKey string
	// MaxHistoryMessages bounds how much prior conversation is replayed.
	MaxHistoryMessages int
	// MaxToolRounds bounds the model/tool loop; the final round withholds
	// tool definitions to force a prose answer.
	MaxToolRounds int
	// MaxParallelTools bounds concurrent execution of one round's calls.
	MaxParallelTools int
	// ModelTimeout bounds each completion call. Zero disables the deadline.
	ModelTimeout time.Duration
}

// LeafAgent is a terminal node that produces its reply by consulting the
// language model, optionally calling its declared tools first.
//
// Execution per turn:
//  1. Resolve and render the instruction template against session state
//  2. Build the request from windowed history plus the current input
//  3. Complete; while the model requests tool calls (bounded rounds),
//     invoke them through the shared adapter and feed results back
//  4. Return the final text, storing it under OutputKey when configured
//
// Tool failures are fed back to the model as structured error payloads so
// it can degrade gracefully; configuration failures (unknown or undeclared
// tools) propagate and fail the subtree.
type LeafAgent struct {
	BaseAgent
	llm                model.Model
	adapter            *tool.Adapter
	instruction        Instruction
	tools              []string
	outputKey          string
	maxHistoryMessages int
	maxToolRounds      int
	maxParallelTools   int
	modelTimeout       time.Duration
}

// NewLeaf creates a model-backed terminal agent with sensible defaults:
// 20-message history window, 5 tool rounds, 30s model timeout.
func NewLeaf(name string, llm model.Model, adapter *tool.Adapter, optFns ...func(o *LeafOptions)) *LeafAgent {
	opts := LeafOptions{
		Instruction:        NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		MaxHistoryMessages: 20,
		MaxToolRounds:      5,
		MaxParallelTools:   4,
		ModelTimeout:       30 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &LeafAgent{
		BaseAgent:          NewBaseAgent(name),
		llm:                llm,
		adapter:            adapter,
		instruction:        opts.Instruction,
		tools:              append([]string(nil), opts.Tools...),
		outputKey:          opts.OutputKey,
		maxHistoryMessages: opts.MaxHistoryMessages,
		maxToolRounds:      opts.MaxToolRounds,
		maxParallelTools:   opts.MaxParallelTools,
		modelTimeout:       opts.ModelTimeout,
	}
}

// Kind implements core.Agent.
func (a *LeafAgent) Kind() core.Kind { return core.KindLeaf }

// Tools implements core.Agent, returning the declared tool names.
func (a *LeafAgent) Tools() []string { return append([]string(nil), a.tools...) }

// OutputKey returns the scratch key the reply is stored under, if any.
func (a *LeafAgent) OutputKey() string { return a.outputKey }

// Execute implements core.Agent.
func (a *LeafAgent) Execute(ctx context.Context, tc *core.TurnContext, input string) (string, error) {
	tc.RecordVisit(a.Name())
	tc.LogDebug("agent.leaf.start", "agent", a.Name(), "branch", tc.Branch)

	start := time.Now()

	instructions, err := a.instruction.Resolve(tc)
	if err != nil {
		return "", fmt.Errorf("instruction resolution failed for agent %s: %w", a.Name(), err)
	}

	req := &model.Request{
		Instructions: instructions,
		Messages:     append(historyMessages(tc, a.maxHistoryMessages), model.UserMessage(input)),
	}
	if a.adapter != nil && len(a.tools) > 0 {
		req.Tools = a.adapter.Definitions(a.tools)
	}

	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		// Last round: withhold tools so the model must answer in prose.
		if round >= a.maxToolRounds {
			req.Tools = nil
		}

		if err := tc.Limiter.Increment(); err != nil {
			return "", fmt.Errorf("model call budget exhausted for agent %s: %w", a.Name(), err)
		}

		resp, err := a.complete(ctx, req)
		if err != nil {
			return "", fmt.Errorf("model completion failed for agent %s: %w", a.Name(), err)
		}

		if len(resp.ToolCalls) == 0 {
			reply := resp.Text
			if a.outputKey != "" {
				tc.SetScratch(a.outputKey, reply)
			}

			tc.LogInfo(
				"agent.leaf.done",
				"agent", a.Name(),
				"rounds", round+1,
				"duration_ms", time.Since(start).Milliseconds(),
			)

			return reply, nil
		}

		// Tools were withheld this round; a model that requests more
		// anyway would loop forever.
		if round >= a.maxToolRounds {
			return "", fmt.Errorf("agent %s exceeded %d tool rounds", a.Name(), a.maxToolRounds)
		}

		results, err := a.runToolCalls(ctx, tc, resp.ToolCalls)
		if err != nil {
			return "", err
		}

		req.Messages = append(req.Messages, model.AssistantToolCalls(resp.ToolCalls...))
		req.Messages = append(req.Messages, model.ToolResultMessage(results...))
	}
}

// runToolCalls executes one round of requested calls through the adapter.
// Recoverable failures become structured error payloads the model sees on
// the next round; configuration failures abort the agent.
func (a *LeafAgent) runToolCalls(ctx context.Context, tc *core.TurnContext, calls []model.ToolCall) ([]model.ToolResult, error) {
	invs := make([]tool.Invocation, len(calls))
	for i, call := range calls {
		id := call.ID
		if id == "" {
			id = core.NewID()
		}

		var args map[string]any
		if len(call.Function.Arguments) > 0 {
			if err := json.Unmarshal(call.Function.Arguments, &args); err != nil {
				tc.LogWarn("agent.leaf.bad_tool_args", "agent", a.Name(), "tool", call.Function.Name, "error", err.Error())
				args = map[string]any{}
			}
		}

		invs[i] = tool.Invocation{
			CallID:     id,
			Agent:      a.Name(),
			Name:       call.Function.Name,
			Args:       args,
			Authorized: a.tools,
		}
	}

	results := a.adapter.InvokeAll(ctx, tc, invs, a.maxParallelTools)

	out := make([]model.ToolResult, len(results))
	for i, res := range results {
		if res.Err != nil {
			switch kind := tool.ErrorKind(res.Err); kind {
			case tool.CodeNotFound, tool.CodeUnauthorized:
				// Authoring errors: retrying with the same tree cannot succeed.
				return nil, fmt.Errorf("tool call by agent %s rejected: %w", a.Name(), res.Err)
			default:
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
			}
		}

		out[i] = model.ToolResult{
			CallID:  res.Invocation.CallID,
			Name:    res.Invocation.Name,
			Content: encodeToolOutcome(res.Result, res.Err),
		}
	}

	return out, nil
}

func (a *LeafAgent) complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	if a.modelTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, a.modelTimeout)
		defer cancel()
	}

	return a.llm.Complete(ctx, req)
}

// historyMessages maps the windowed session history into model messages.
func historyMessages(tc *core.TurnContext, limit int) []model.Message {
	history := tc.History(limit)

	msgs := make([]model.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case core.RoleAssistant:
			msgs = append(msgs, model.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, model.UserMessage(m.Content))
		}
	}

	return msgs
}

// encodeToolOutcome renders a tool result or failure as the JSON payload
// fed back to the model.
func encodeToolOutcome(result any, err error) string {
	payload := map[string]any{}
	if err != nil {
		payload["error"] = map[string]any{
			"kind":    tool.ErrorKind(err),
			"message": err.Error(),
		}
	} else {
		payload["result"] = result
	}

	raw, mErr := json.Marshal(payload)
	if mErr != nil {
		return fmt.Sprintf(`{"error":{"kind":"UPSTREAM","message":%q}}`, mErr.Error())
	}

	return string(raw)
}
