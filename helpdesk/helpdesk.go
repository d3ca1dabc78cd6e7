package helpdesk

import (
	"fmt"
	"time"

	"github.com/hupe1980/supportmesh"
	"github.com/hupe1980/supportmesh/agent"
	"github.com/hupe1980/supportmesh/backend"
	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/model"
	"github.com/hupe1980/supportmesh/runner"
	"github.com/hupe1980/supportmesh/tool"
)

// Backends bundles the collaborator systems the help desk tools call into.
// All of them are concurrency-safe mocks; swap the bundle for real
// integrations without touching the tree.
type Backends struct {
	CRM       *backend.CRM
	Orders    *backend.OrderStore
	KB        *backend.KnowledgeBase
	Tickets   *backend.TicketSystem
	WebSearch *backend.WebSearch
	Solutions *backend.SolutionGuide
}

// NewBackends constructs the full bundle with seeded fixture data.
func NewBackends() *Backends {
	return &Backends{
		CRM:       backend.NewCRM(),
		Orders:    backend.NewOrderStore(),
		KB:        backend.NewKnowledgeBase(),
		Tickets:   backend.NewTicketSystem(),
		WebSearch: backend.NewWebSearch(),
		Solutions: backend.NewSolutionGuide(),
	}
}

// Options configure the help desk assembly.
type Options struct {
	// Backends supplies the collaborator systems. Defaults to fresh mocks;
	// pass a shared bundle to inspect or perturb them from tests.
	Backends *Backends

	// DefaultChild absorbs unknown routing labels and failed
	// classifications. Set to "" to surface routing failures instead.
	DefaultChild string

	// Retention overrides the scratch keys that survive turn boundaries.
	// The zero value keeps the default ticket and order references.
	Retention runner.RetentionPolicy

	// ClassifyTimeout bounds the coordinator's classification call.
	ClassifyTimeout time.Duration

	// ResearchTimeout bounds the parallel research fan-out. Children that
	// miss it are reported as unavailable in the digest.
	ResearchTimeout time.Duration

	// ToolTimeout bounds each tool execution.
	ToolTimeout time.Duration

	// ModelTimeout bounds each model completion call.
	ModelTimeout time.Duration

	// TurnTimeout bounds end-to-end turn processing. Zero disables it.
	TurnTimeout time.Duration

	// MaxModelCallsPerTurn caps model spend per turn across all nodes.
	MaxModelCallsPerTurn int

	// MaxConcurrentTurns limits simultaneous turns across sessions.
	MaxConcurrentTurns int

	// Logger receives lifecycle events. Defaults to NoOp.
	Logger logging.Logger
}

// New assembles the reference help desk mesh over the given model: mocked
// backends, the full tool set, the coordinator tree, an in-memory session
// store bootstrapped from the CRM, and a retention policy that carries
// ticket and order references across turns.
func New(llm model.Model, optFns ...func(o *Options)) (*supportmesh.Mesh, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	root, _, err := buildTree(llm, opts)
	if err != nil {
		return nil, err
	}

	retention := opts.Retention
	if retention.Empty() {
		retention = runner.RetentionPolicy{Keys: []string{ScratchLastTicketID, ScratchLastOrderID}}
	}

	mesh := supportmesh.New(root, func(o *supportmesh.Options) {
		o.ProfileLoader = opts.Backends.CRM
		o.Retention = retention
		o.MaxModelCallsPerTurn = opts.MaxModelCallsPerTurn
		o.TurnTimeout = opts.TurnTimeout
		o.MaxConcurrentTurns = opts.MaxConcurrentTurns
		o.Logger = opts.Logger
	})

	return mesh, nil
}

// NewTree builds just the coordinator tree and its tool adapter, for callers
// embedding the help desk in a custom runner. Most callers want New.
func NewTree(llm model.Model, optFns ...func(o *Options)) (core.Agent, *tool.Adapter, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return buildTree(llm, opts)
}

func defaultOptions() Options {
	return Options{
		Backends:             NewBackends(),
		DefaultChild:         "Escalation",
		ClassifyTimeout:      5 * time.Second,
		ResearchTimeout:      20 * time.Second,
		ToolTimeout:          10 * time.Second,
		ModelTimeout:         30 * time.Second,
		MaxModelCallsPerTurn: 40,
		MaxConcurrentTurns:   16,
		Logger:               logging.NoOpLogger{},
	}
}

func buildTree(llm model.Model, opts Options) (core.Agent, *tool.Adapter, error) {
	adapter := tool.NewAdapter(func(o *tool.AdapterOptions) {
		o.Timeout = opts.ToolTimeout
	})
	if err := adapter.Register(newTools(opts.Backends)...); err != nil {
		return nil, nil, fmt.Errorf("tool registration: %w", err)
	}

	billing := agent.NewLeaf("Billing", llm, adapter, func(o *agent.LeafOptions) {
		o.Instruction = agent.NewInstructionFromText(billingInstruction)
		o.Tools = []string{"get_faq_answer", "search_knowledge_base", "get_user_context"}
		o.ModelTimeout = opts.ModelTimeout
	})
	billing.SetDescription("Handles billing, payment and subscription inquiries.")

	order := agent.NewLeaf("Order", llm, adapter, func(o *agent.LeafOptions) {
		o.Instruction = agent.NewInstructionFromText(orderInstruction)
		o.Tools = []string{"get_order_status", "get_user_context"}
		o.ModelTimeout = opts.ModelTimeout
	})
	order.SetDescription("Handles order inquiries: status, shipping and refunds.")

	technical := newTechnicalSupport(llm, adapter, opts)

	escalation := agent.NewLeaf("Escalation", llm, adapter, func(o *agent.LeafOptions) {
		o.Instruction = agent.NewInstructionFromText(escalationInstruction)
		o.Tools = []string{"create_ticket", "assign_to_team", "get_ticket_status", "get_user_context"}
		o.ModelTimeout = opts.ModelTimeout
	})
	escalation.SetDescription("Creates support tickets for human review and answers questions about existing tickets.")

	coordinator := agent.NewRouter(
		"Coordinator",
		llm,
		[]core.Agent{billing, order, technical, escalation},
		func(o *agent.RouterOptions) {
			o.Instruction = agent.NewInstructionFromText(routingInstruction)
			o.DefaultChild = opts.DefaultChild
			o.ClassifyTimeout = opts.ClassifyTimeout
		},
	)

	return coordinator, adapter, nil
}

// newTechnicalSupport builds the research pipeline: three searchers fan out
// in parallel, then the diagnosis agent synthesizes their digest.
func newTechnicalSupport(llm model.Model, adapter *tool.Adapter, opts Options) core.Agent {
	webSearch := agent.NewLeaf("WebSearch", llm, adapter, func(o *agent.LeafOptions) {
		o.Instruction = agent.NewInstructionFromText(webSearchInstruction)
		o.Tools = []string{"web_search"}
		o.OutputKey = "result"
		o.ModelTimeout = opts.ModelTimeout
	})
	webSearch.SetDescription("Checks the internet for similar issue reports.")

	kbSearch := agent.NewLeaf("KBSearch", llm, adapter, func(o *agent.LeafOptions) {
		o.Instruction = agent.NewInstructionFromText(kbSearchInstruction)
		o.Tools = []string{"search_knowledge_base", "get_faq_answer"}
		o.OutputKey = "result"
		o.ModelTimeout = opts.ModelTimeout
	})
	kbSearch.SetDescription("Searches the knowledge base for relevant articles.")

	ticketSearch := agent.NewLeaf("TicketSearch", llm, adapter, func(o *agent.LeafOptions) {
		o.Instruction = agent.NewInstructionFromText(ticketSearchInstruction)
		o.Tools = []string{"search_similar_tickets"}
		o.OutputKey = "result"
		o.ModelTimeout = opts.ModelTimeout
	})
	ticketSearch.SetDescription("Finds similar previously resolved tickets.")

	research := agent.NewParallel(
		"Research",
		[]core.Agent{webSearch, kbSearch, ticketSearch},
		func(o *agent.ParallelOptions) {
			o.Timeout = opts.ResearchTimeout
		},
	)
	research.SetDescription("Gathers findings from web, knowledge base and ticket history in parallel.")

	diagnosis := agent.NewLeaf("Diagnosis", llm, adapter, func(o *agent.LeafOptions) {
		o.Instruction = agent.NewInstructionFromText(diagnosisInstruction)
		o.Tools = []string{"generate_solution_steps"}
		o.ModelTimeout = opts.ModelTimeout
	})
	diagnosis.SetDescription("Synthesizes research findings into a diagnosis and fix.")

	technical := agent.NewSequential("TechnicalSupport", research, diagnosis)
	technical.SetDescription("Investigates technical problems: parallel research across web, knowledge base and ticket history, then a synthesized diagnosis.")

	return technical
}
