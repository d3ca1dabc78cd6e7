package helpdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportmesh/agent"
	"github.com/hupe1980/supportmesh/backend"
	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/model"
	"github.com/hupe1980/supportmesh/runner"
)

// scenarioModel scripts one conversation across the whole tree. Completions
// dispatch on instruction substrings so concurrently running agents stay
// independently scripted; classifications pop in FIFO order.
type scenarioModel struct {
	mu           sync.Mutex
	labels       []string
	handlers     map[string]func(req *model.Request) (*model.Response, error)
	lastClassify *model.ClassifyRequest
}

func newScenarioModel() *scenarioModel {
	return &scenarioModel{
		handlers: make(map[string]func(req *model.Request) (*model.Response, error)),
	}
}

// route queues the label the next classification returns.
func (m *scenarioModel) route(labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.labels = append(m.labels, labels...)
}

// handle scripts the completions of the agent whose instruction contains match.
func (m *scenarioModel) handle(match string, fn func(req *model.Request) (*model.Response, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[match] = fn
}

func (m *scenarioModel) Complete(_ context.Context, req *model.Request) (*model.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for match, fn := range m.handlers {
		if strings.Contains(req.Instructions, match) {
			return fn(req)
		}
	}

	return nil, fmt.Errorf("no handler scripted for instructions %q", firstLine(req.Instructions))
}

func (m *scenarioModel) Classify(_ context.Context, req *model.ClassifyRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastClassify = req

	if len(m.labels) == 0 {
		return "", fmt.Errorf("no routing label scripted for input %q", req.Input)
	}

	label := m.labels[0]
	m.labels = m.labels[1:]

	return label, nil
}

func (m *scenarioModel) Info() model.Info {
	return model.Info{Name: "scenario", Provider: "mock", SupportsTools: true}
}

func (m *scenarioModel) lastClassifyRequest() *model.ClassifyRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastClassify
}

// replies returns a handler that plays the scripted responses in order.
func replies(resps ...*model.Response) func(req *model.Request) (*model.Response, error) {
	i := 0

	return func(_ *model.Request) (*model.Response, error) {
		if i >= len(resps) {
			return nil, fmt.Errorf("handler exhausted after %d responses", len(resps))
		}

		r := resps[i]
		i++

		return r, nil
	}
}

func textResponse(s string) *model.Response {
	return &model.Response{Text: s, FinishReason: "stop"}
}

func toolCallResponse(name string, args map[string]any) *model.Response {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}

	return &model.Response{
		ToolCalls: []model.ToolCall{{
			ID:       "call-" + name,
			Type:     "function",
			Function: model.ToolCallFunction{Name: name, Arguments: raw},
		}},
		FinishReason: "tool_calls",
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}

	return s
}

func TestNewTree_Shape(t *testing.T) {
	root, adapter, err := NewTree(newScenarioModel())
	require.NoError(t, err)

	assert.Equal(t, "Coordinator", root.Name())
	assert.Equal(t, core.KindRouter, root.Kind())
	assert.Equal(t, []string{"Billing", "Order", "TechnicalSupport", "Escalation"}, agent.Names(root.Children()))

	technical := agent.Find(root, "TechnicalSupport")
	require.NotNil(t, technical)
	assert.Equal(t, core.KindSequential, technical.Kind())

	research := agent.Find(root, "Research")
	require.NotNil(t, research)
	assert.Equal(t, core.KindParallel, research.Kind())
	assert.Equal(t, []string{"WebSearch", "KBSearch", "TicketSearch"}, agent.Names(research.Children()))

	require.NotNil(t, agent.Find(root, "Diagnosis"))

	assert.Equal(t, []string{
		"assign_to_team",
		"create_ticket",
		"generate_solution_steps",
		"get_faq_answer",
		"get_order_status",
		"get_ticket_status",
		"get_user_context",
		"search_knowledge_base",
		"search_similar_tickets",
		"web_search",
	}, adapter.Names())
}

func TestHelpDesk_OrderStatusTurn(t *testing.T) {
	m := newScenarioModel()
	m.route("Order")
	m.handle("order support specialist", replies(
		toolCallResponse("get_order_status", map[string]any{"order_id": "12345"}),
		textResponse("Good news: your order #12345 (Wireless Keyboard) has Shipped and is on its way."),
	))

	mesh, err := New(m)
	require.NoError(t, err)

	sess, err := mesh.CreateSession(context.Background(), "user_123")
	require.NoError(t, err)

	turn, err := mesh.Process(context.Background(), sess.ID, "Where is my order #12345?")
	require.NoError(t, err)

	assert.Equal(t, core.TurnCompleted, turn.Status)
	assert.Contains(t, turn.Reply, "Shipped")
	assert.Equal(t, []string{"Coordinator", "Order"}, turn.RoutingTrace)
	assert.Equal(t, "Order", turn.HandledBy())

	require.Len(t, turn.ToolCalls, 1)
	assert.Equal(t, "get_order_status", turn.ToolCalls[0].Tool)
	assert.Equal(t, "Order", turn.ToolCalls[0].Agent)
	assert.Empty(t, turn.ToolCalls[0].ErrorKind)

	// The order reference is retained for follow-up turns.
	v, ok := sess.ScratchValue(ScratchLastOrderID)
	require.True(t, ok)
	assert.Equal(t, "12345", v)

	history := sess.History(0)
	require.Len(t, history, 2)
	assert.Equal(t, "Where is my order #12345?", history[0].Content)
	assert.Equal(t, "Order", history[1].Agent)
}

func TestHelpDesk_DegradedResearchTurn(t *testing.T) {
	m := newScenarioModel()
	m.route("TechnicalSupport")

	m.handle("web search specialist", replies(
		toolCallResponse("web_search", map[string]any{"query": "app crashes on login"}),
		textResponse("unreachable: the search times out first"),
	))
	m.handle("knowledge base specialist", replies(
		toolCallResponse("search_knowledge_base", map[string]any{"query": "crash on login"}),
		textResponse("- Articles Found: 1\n- Most Relevant Article: How to Reset Your Password (KB001)\n- Relevance: low"),
	))
	m.handle("ticket history specialist", replies(
		toolCallResponse("search_similar_tickets", map[string]any{"description": "app crashes on login"}),
		textResponse("- Similar Tickets Found: 0\n- Confidence: low"),
	))

	var digest string

	m.handle("diagnosis specialist", func(req *model.Request) (*model.Response, error) {
		digest = req.Messages[len(req.Messages)-1].Content

		return textResponse("**Diagnosis:** The crash looks account-related; KB001 covers the reset flow. " +
			"Web search was unavailable, so this is based on internal sources."), nil
	})

	b := NewBackends()
	b.WebSearch.SetDelay(2 * time.Second)

	mesh, err := New(m, func(o *Options) {
		o.Backends = b
		o.ResearchTimeout = 100 * time.Millisecond
	})
	require.NoError(t, err)

	sess, err := mesh.CreateSession(context.Background(), "user_123")
	require.NoError(t, err)

	turn, err := mesh.Process(context.Background(), sess.ID, "My app crashes on login")
	require.NoError(t, err)

	assert.Equal(t, core.TurnCompleted, turn.Status)
	assert.Contains(t, turn.Reply, "Diagnosis")

	// The digest names the unavailable source and carries both survivors.
	require.NotEmpty(t, digest)
	assert.Contains(t, digest, "Request: My app crashes on login")
	assert.Contains(t, digest, "- WebSearch: unavailable (timed out)")
	assert.Contains(t, digest, "- KBSearch: - Articles Found: 1")
	assert.Contains(t, digest, "- TicketSearch: - Similar Tickets Found: 0")

	for _, name := range []string{"Coordinator", "TechnicalSupport", "Research", "WebSearch", "KBSearch", "TicketSearch", "Diagnosis"} {
		assert.Contains(t, turn.RoutingTrace, name)
	}

	// Both fast searchers completed their tool calls.
	tools := make(map[string]bool)
	for _, rec := range turn.ToolCalls {
		if rec.ErrorKind == "" {
			tools[rec.Tool] = true
		}
	}
	assert.True(t, tools["search_knowledge_base"])
	assert.True(t, tools["search_similar_tickets"])
}

func TestHelpDesk_UnroutableTurnFallsBackGracefully(t *testing.T) {
	m := newScenarioModel()
	m.route("Gardening")

	mesh, err := New(m, func(o *Options) {
		o.DefaultChild = ""
	})
	require.NoError(t, err)

	sess, err := mesh.CreateSession(context.Background(), "user_123")
	require.NoError(t, err)

	turn, err := mesh.Process(context.Background(), sess.ID, "Help me repot my ficus")

	var procErr *runner.ProcessingError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, runner.FailureRoutingFailed, procErr.Kind)

	var routingErr *agent.RoutingError
	require.ErrorAs(t, err, &routingErr)
	assert.Equal(t, agent.RoutingUnknownTarget, routingErr.Kind)
	assert.Equal(t, "Gardening", routingErr.Label)

	require.NotNil(t, turn)
	assert.True(t, turn.Failed())
	assert.Equal(t, runner.FailureRoutingFailed, turn.FailureKind)
	assert.Equal(t, runner.DefaultFallbackReply, turn.Reply)
	assert.NotContains(t, turn.Reply, "Gardening")
}

func TestHelpDesk_UnknownLabelDispatchesDefault(t *testing.T) {
	m := newScenarioModel()
	m.route("Gardening")
	m.handle("escalation specialist", replies(
		textResponse("I couldn't match that to a support topic, but I'm happy to open a ticket for you."),
	))

	mesh, err := New(m)
	require.NoError(t, err)

	sess, err := mesh.CreateSession(context.Background(), "user_123")
	require.NoError(t, err)

	turn, err := mesh.Process(context.Background(), sess.ID, "Help me repot my ficus")
	require.NoError(t, err)

	assert.Equal(t, core.TurnCompleted, turn.Status)
	assert.Equal(t, []string{"Coordinator", "Escalation"}, turn.RoutingTrace)
}

func TestHelpDesk_TicketContextCarriesAcrossTurns(t *testing.T) {
	m := newScenarioModel()
	m.route("Escalation", "Escalation")
	m.handle("escalation specialist", replies(
		toolCallResponse("create_ticket", map[string]any{
			"summary":     "Webhook deliveries failing",
			"category":    "bug_report",
			"priority":    "high",
			"description": "Webhook deliveries failing since Monday; signature verification errors in logs.",
		}),
		textResponse("I've created ticket TICKET-4242 for you. The engineering team will respond within 4 hours."),
		toolCallResponse("get_ticket_status", map[string]any{"ticket_id": "TICKET-4242"}),
		textResponse("Your ticket TICKET-4242 is open with the engineering team."),
	))

	b := NewBackends()
	b.Tickets = backend.NewTicketSystem(func(o *backend.TicketSystemOptions) {
		o.NewID = func() string { return "TICKET-4242" }
	})

	mesh, err := New(m, func(o *Options) {
		o.Backends = b
	})
	require.NoError(t, err)

	sess, err := mesh.CreateSession(context.Background(), "user_123")
	require.NoError(t, err)

	turn1, err := mesh.Process(context.Background(), sess.ID, "Nothing works anymore, I need a human")
	require.NoError(t, err)
	assert.Contains(t, turn1.Reply, "TICKET-4242")

	// The ticket reference survives the turn boundary.
	v, ok := sess.ScratchValue(ScratchLastTicketID)
	require.True(t, ok)
	assert.Equal(t, "TICKET-4242", v)

	turn2, err := mesh.Process(context.Background(), sess.ID, "what's the status of my last ticket?")
	require.NoError(t, err)
	assert.Contains(t, turn2.Reply, "TICKET-4242")

	// The second classification saw the retained ticket and the first
	// exchange without the user repeating either.
	classify := m.lastClassifyRequest()
	require.NotNil(t, classify)
	assert.Contains(t, classify.Context, "lastTicketId: TICKET-4242")
	assert.Contains(t, classify.Context, "I need a human")
	assert.Contains(t, classify.Instructions, "Open ticket this session: TICKET-4242")

	history := sess.History(0)
	assert.Len(t, history, 4)
}

func TestHelpDesk_RetentionOverride(t *testing.T) {
	m := newScenarioModel()
	m.route("Escalation")
	m.handle("escalation specialist", replies(
		toolCallResponse("create_ticket", map[string]any{
			"summary":     "Export hangs",
			"category":    "performance",
			"priority":    "medium",
			"description": "CSV export hangs at 90% for large accounts.",
		}),
		textResponse("Ticket created; the infrastructure team will follow up."),
	))

	mesh, err := New(m, func(o *Options) {
		o.Retention = runner.RetentionPolicy{Keys: []string{ScratchLastOrderID}}
	})
	require.NoError(t, err)

	sess, err := mesh.CreateSession(context.Background(), "user_456")
	require.NoError(t, err)

	_, err = mesh.Process(context.Background(), sess.ID, "The export keeps hanging, please file a ticket")
	require.NoError(t, err)

	// lastTicketId is not on the override whitelist, so it was swept.
	_, ok := sess.ScratchValue(ScratchLastTicketID)
	assert.False(t, ok)
}

func TestHelpDesk_BillingFAQTurn(t *testing.T) {
	m := newScenarioModel()
	m.route("Billing")
	m.handle("billing support specialist", replies(
		toolCallResponse("get_faq_answer", map[string]any{"question": "billing cycle"}),
		textResponse("Billing occurs on the 1st of each month, and plan changes are prorated."),
	))

	mesh, err := New(m)
	require.NoError(t, err)

	sess, err := mesh.CreateSession(context.Background(), "user_456")
	require.NoError(t, err)

	turn, err := mesh.Process(context.Background(), sess.ID, "When do you bill me?")
	require.NoError(t, err)

	assert.Equal(t, []string{"Coordinator", "Billing"}, turn.RoutingTrace)
	assert.Contains(t, turn.Reply, "1st of each month")

	require.Len(t, turn.ToolCalls, 1)
	assert.Equal(t, "get_faq_answer", turn.ToolCalls[0].Tool)
}
