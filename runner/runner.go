package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/logging"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// Retention whitelists the scratch keys that survive turn boundaries.
	// The zero value clears all scratch at turn end.
	Retention RetentionPolicy
	// FallbackReply is the user-facing text for failed turns. It must never
	// leak internal identifiers.
	FallbackReply string
	// MaxModelCallsPerTurn caps the model calls one turn may spend across
	// all nodes. Zero means unlimited.
	MaxModelCallsPerTurn int
	// TurnTimeout bounds end-to-end turn processing. Zero disables it.
	TurnTimeout time.Duration
	// Logger receives turn lifecycle events.
	Logger logging.Logger
}

// DefaultFallbackReply is the graceful apology used when a turn fails and
// no more specific fallback is configured.
const DefaultFallbackReply = "I'm sorry, I wasn't able to complete that request. " +
	"Please try again in a moment, or rephrase your question."

// Runner processes conversational turns against a fixed orchestration tree.
//
// Each Process call runs exactly one turn: it acquires the session's turn
// gate (turns on one session are strictly serialized, sessions are
// independent), executes the root agent, persists the exchange to history
// and applies the scratch retention policy. Failed turns still produce a
// well-formed Turn with a graceful fallback reply; the classified
// ProcessingError is returned alongside for the caller's logging.
//
// Public methods are safe for concurrent use.
type Runner struct {
	root  core.Agent
	store core.SessionStore

	retention     RetentionPolicy
	fallbackReply string
	maxModelCalls int
	turnTimeout   time.Duration
	logger        logging.Logger
}

// New constructs a Runner for the given root agent and session store.
func New(root core.Agent, store core.SessionStore, optFns ...func(o *Options)) *Runner {
	opts := Options{
		FallbackReply:        DefaultFallbackReply,
		MaxModelCallsPerTurn: 100,
		TurnTimeout:          2 * time.Minute,
		Logger:               logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		root:          root,
		store:         store,
		retention:     opts.Retention,
		fallbackReply: opts.FallbackReply,
		maxModelCalls: opts.MaxModelCallsPerTurn,
		turnTimeout:   opts.TurnTimeout,
		logger:        opts.Logger,
	}
}

// Process runs one turn of user input through the tree and returns the
// completed Turn record.
//
// On an unrecovered failure the Turn is returned together with the
// classified *ProcessingError: the Turn carries the fallback reply and
// failure kind, while the error preserves the cause chain.
func (r *Runner) Process(ctx context.Context, sessionID, input string) (*core.Turn, error) {
	sess, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	// One turn at a time per session; concurrent callers queue here.
	sess.BeginTurn()
	defer sess.EndTurn()

	turn := core.NewTurn(sess.ID, input)
	tc := core.NewTurnContext(sess, turn, r.maxModelCalls, r.logger)

	r.logger.Info("turn.start", "session_id", sess.ID, "turn_id", turn.ID)

	execCtx := ctx
	if r.turnTimeout > 0 {
		var cancel context.CancelFunc

		execCtx, cancel = context.WithTimeout(ctx, r.turnTimeout)
		defer cancel()
	}

	reply, execErr := r.root.Execute(execCtx, tc, input)

	var procErr *ProcessingError
	if execErr != nil {
		procErr = classifyFailure(turn.ID, execErr)

		turn.Status = core.TurnFailed
		turn.FailureKind = procErr.Kind
		reply = r.fallbackReply

		r.logger.Error(
			"turn.failed",
			"session_id", sess.ID,
			"turn_id", turn.ID,
			"kind", procErr.Kind,
			"error", execErr.Error(),
		)
	}

	turn.Reply = reply
	turn.Completed = time.Now()

	r.persistExchange(sess, turn)

	sess.ClearScratchExcept(r.retention.Keep)

	if procErr != nil {
		return turn, procErr
	}

	r.logger.Info(
		"turn.done",
		"session_id", sess.ID,
		"turn_id", turn.ID,
		"handled_by", turn.HandledBy(),
		"tool_calls", len(turn.ToolCalls),
		"duration_ms", turn.Completed.Sub(turn.Started).Milliseconds(),
	)

	return turn, nil
}

// persistExchange appends the turn's user and assistant messages to the
// session history. The assistant message is attributed to the node that
// produced (or, for failed turns, last touched) the reply.
func (r *Runner) persistExchange(sess *core.Session, turn *core.Turn) {
	sess.AppendMessage(core.NewUserMessage(turn.Input))

	agentName := turn.HandledBy()
	if agentName == "" {
		agentName = r.root.Name()
	}

	sess.AppendMessage(core.NewAgentMessage(agentName, turn.Reply))
}
