package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/model"
)

// RouterOptions configure a RouterAgent.
type RouterOptions struct {
	// Instruction overrides the generated routing prompt. The default lists
	// every child with its description.
	Instruction Instruction
	// DefaultChild names the child that absorbs unknown labels and failed
	// classifications. Empty means no fallback: those turns fail.
	DefaultChild string
	// ClassifyTimeout bounds the classification call.
	ClassifyTimeout time.Duration
	// ContextHistory is how many recent history messages accompany the
	// classification as conversation context.
	ContextHistory int
}

// RouterAgent classifies the turn input against its children and transfers
// control to exactly one of them.
//
// The router enforces three rules:
//   - The classifier's label must name an existing child (matched
//     case-insensitively); an unknown label falls back to the configured
//     default child, or fails with RoutingError{UNKNOWN_TARGET}.
//   - Routing is never memoized: every turn re-classifies, since a
//     conversation may change topic turn to turn.
//   - Classification runs under a deadline; exceeding it fails with
//     RoutingError{TIMEOUT} rather than stalling the turn. Timeouts are
//     never absorbed by the default child.
//
// Classification context includes the user profile, retained scratch
// (e.g. the last ticket looked up) and recent history, so follow-up
// questions route to the specialist that handled the earlier turn.
type RouterAgent struct {
	BaseAgent
	llm             model.Model
	instruction     Instruction
	defaultChild    string
	classifyTimeout time.Duration
	contextHistory  int
}

// NewRouter creates a router over the given children.
func NewRouter(name string, llm model.Model, children []core.Agent, optFns ...func(o *RouterOptions)) *RouterAgent {
	opts := RouterOptions{
		ClassifyTimeout: 5 * time.Second,
		ContextHistory:  6,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Instruction == (Instruction{}) {
		opts.Instruction = defaultRoutingInstruction(children)
	}

	a := &RouterAgent{
		BaseAgent:       NewBaseAgent(name),
		llm:             llm,
		instruction:     opts.Instruction,
		defaultChild:    opts.DefaultChild,
		classifyTimeout: opts.ClassifyTimeout,
		contextHistory:  opts.ContextHistory,
	}
	a.SetChildren(children...)

	return a
}

// Kind implements core.Agent.
func (r *RouterAgent) Kind() core.Kind { return core.KindRouter }

// Tools implements core.Agent. Routers dispatch; they never call tools.
func (r *RouterAgent) Tools() []string { return nil }

// DefaultChild returns the configured fallback child name, if any.
func (r *RouterAgent) DefaultChild() string { return r.defaultChild }

// Execute implements core.Agent.
func (r *RouterAgent) Execute(ctx context.Context, tc *core.TurnContext, input string) (string, error) {
	tc.RecordVisit(r.Name())

	children := r.Children()
	if len(children) == 0 {
		return "", NewRoutingError(r.Name(), RoutingNoDefault, "", errors.New("router has no children"))
	}

	if err := tc.Limiter.Increment(); err != nil {
		return "", fmt.Errorf("model call budget exhausted for router %s: %w", r.Name(), err)
	}

	label, err := r.classify(ctx, tc, input, children)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		var routingErr *RoutingError
		if errors.As(err, &routingErr) && routingErr.Kind == RoutingTimeout {
			// An unhealthy classifier is not a topic mismatch; surfacing
			// beats dispatching on a guess.
			return "", err
		}

		return r.dispatchDefault(ctx, tc, input, children, err)
	}

	if child := matchChild(children, label); child != nil {
		return r.dispatch(ctx, tc, input, child, label)
	}

	tc.LogWarn("agent.router.unknown_target", "router", r.Name(), "label", label)

	return r.dispatchDefault(ctx, tc, input, children,
		NewRoutingError(r.Name(), RoutingUnknownTarget, label, nil))
}

func (r *RouterAgent) classify(ctx context.Context, tc *core.TurnContext, input string, children []core.Agent) (string, error) {
	instructions, err := r.instruction.Resolve(tc)
	if err != nil {
		return "", NewRoutingError(r.Name(), RoutingNoDefault, "", fmt.Errorf("instruction resolution: %w", err))
	}

	classifyCtx := ctx
	if r.classifyTimeout > 0 {
		var cancel context.CancelFunc

		classifyCtx, cancel = context.WithTimeout(ctx, r.classifyTimeout)
		defer cancel()
	}

	label, err := r.llm.Classify(classifyCtx, &model.ClassifyRequest{
		Instructions: instructions,
		Input:        input,
		Context:      routingContext(tc, r.contextHistory),
		Labels:       Names(children),
	})
	if err != nil {
		if ctx.Err() == nil && classifyCtx.Err() == context.DeadlineExceeded {
			return "", NewRoutingError(r.Name(), RoutingTimeout, "", err)
		}

		return "", NewRoutingError(r.Name(), RoutingNoDefault, "", err)
	}

	label = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(label), "."))
	if label == "" {
		return "", NewRoutingError(r.Name(), RoutingNoDefault, "", errors.New("classifier returned empty label"))
	}

	return label, nil
}

// dispatchDefault hands the turn to the default child when one is
// configured; otherwise the causing error surfaces.
func (r *RouterAgent) dispatchDefault(ctx context.Context, tc *core.TurnContext, input string, children []core.Agent, cause error) (string, error) {
	if r.defaultChild == "" {
		var routingErr *RoutingError
		if errors.As(cause, &routingErr) {
			return "", cause
		}

		return "", NewRoutingError(r.Name(), RoutingNoDefault, "", cause)
	}

	child := matchChild(children, r.defaultChild)
	if child == nil {
		return "", NewRoutingError(r.Name(), RoutingUnknownTarget, r.defaultChild,
			fmt.Errorf("default child not among children: %w", cause))
	}

	tc.LogInfo("agent.router.default", "router", r.Name(), "child", child.Name(), "cause", cause.Error())

	return r.dispatch(ctx, tc, input, child, r.defaultChild)
}

func (r *RouterAgent) dispatch(ctx context.Context, tc *core.TurnContext, input string, child core.Agent, label string) (string, error) {
	tc.LogInfo("agent.router.dispatch", "router", r.Name(), "label", label, "child", child.Name())

	return child.Execute(ctx, tc.ForChild(Info(child)), input)
}

// matchChild resolves a label to a child, case-insensitively, in declared
// child order, so the same label always selects the same child.
func matchChild(children []core.Agent, label string) core.Agent {
	for _, child := range children {
		if strings.EqualFold(child.Name(), label) {
			return child
		}
	}

	return nil
}

// routingContext summarizes profile, retained scratch and recent history
// for the classifier.
func routingContext(tc *core.TurnContext, historyLimit int) string {
	var sb strings.Builder

	profile := tc.Profile()
	if name := profile.Name(); name != "" {
		fmt.Fprintf(&sb, "Customer: %s", name)
		if plan := profile.Plan(); plan != "" {
			fmt.Fprintf(&sb, " (plan: %s)", plan)
		}
		sb.WriteString("\n")
	}

	scratch := tc.ScratchSnapshot()
	if len(scratch) > 0 {
		keys := make([]string, 0, len(scratch))
		for k := range scratch {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("Session notes:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s: %v\n", k, scratch[k])
		}
	}

	if history := tc.History(historyLimit); len(history) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, msg := range history {
			fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Content)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func defaultRoutingInstruction(children []core.Agent) Instruction {
	var sb strings.Builder

	sb.WriteString("You are a customer support request router. ")
	sb.WriteString("Pick the team best suited to handle the user's request.\n\nTeams:\n")

	for _, child := range children {
		fmt.Fprintf(&sb, "- %s: %s\n", child.Name(), child.Description())
	}

	return NewInstructionFromText(sb.String())
}
