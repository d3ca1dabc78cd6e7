package core

import (
	"sync"

	"github.com/hupe1980/supportmesh/logging"
)

// TurnContext carries execution state & helpers for one turn flowing down
// the agent tree. It aggregates:
//
//   - The session (profile, scratch, history) and the Turn being built
//   - The executing agent's identity and its dotted branch path
//   - The scratch scope used to partition parallel sibling writes
//   - The per-turn model call limiter
//
// Composition nodes derive child contexts via ForChild / WithScratchScope;
// clones share the session, turn, limiter and trace lock, so visits and
// tool records from concurrent children interleave safely.
type TurnContext struct {
	Session *Session
	Turn    *Turn
	Agent   AgentInfo
	Branch  string
	Limiter *CallLimiter

	scope string
	mu    *sync.Mutex

	*loggerAdapter
}

// NewTurnContext constructs the root context for a turn. maxModelCalls
// bounds the number of model calls the whole turn may make (0 = unlimited).
func NewTurnContext(sess *Session, turn *Turn, maxModelCalls int, logger logging.Logger) *TurnContext {
	return &TurnContext{
		Session:       sess,
		Turn:          turn,
		Limiter:       NewCallLimiter(maxModelCalls),
		mu:            &sync.Mutex{},
		loggerAdapter: newLoggerAdapter(logger),
	}
}

func (tc *TurnContext) clone() *TurnContext {
	nc := *tc
	return &nc
}

// ForChild returns a context for executing the named child node: the agent
// identity is replaced and the branch path extended (Parent.Child), keeping
// sibling execution distinguishable in logs and traces.
func (tc *TurnContext) ForChild(info AgentInfo) *TurnContext {
	nc := tc.clone()
	nc.Agent = info
	nc.Branch = joinPath(tc.Branch, info.Name)

	return nc
}

// WithScratchScope returns a context whose scratch writes are confined to
// the given sub-key. Parallel nodes give each child its own scope so
// sibling writes can never collide.
func (tc *TurnContext) WithScratchScope(sub string) *TurnContext {
	nc := tc.clone()
	nc.scope = joinPath(tc.scope, sub)

	return nc
}

// ScratchScope returns the active scratch partition ("" at the top level).
func (tc *TurnContext) ScratchScope() string { return tc.scope }

// ScopedKey returns the session scratch key a write to key would land on
// under the active scope.
func (tc *TurnContext) ScopedKey(key string) string { return joinPath(tc.scope, key) }

// RecordVisit appends the node name to the turn's routing trace. Safe for
// concurrent use by parallel children.
func (tc *TurnContext) RecordVisit(name string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.Turn.RoutingTrace = append(tc.Turn.RoutingTrace, name)
}

// RecordToolCall appends a tool call record to the turn.
func (tc *TurnContext) RecordToolCall(rec ToolCallRecord) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tc.Turn.ToolCalls = append(tc.Turn.ToolCalls, rec)
}

// ScratchValue reads a key from the shared scratch namespace. Reads are not
// scoped: later nodes see everything earlier nodes committed. Parallel
// siblings must not assume each other's writes are visible.
func (tc *TurnContext) ScratchValue(key string) (any, bool) {
	return tc.Session.ScratchValue(key)
}

// SetScratch writes a value under the active scope. Outside a parallel node
// the key lands unprefixed.
func (tc *TurnContext) SetScratch(key string, value any) {
	tc.Session.SetScratch(tc.ScopedKey(key), value)
}

// Profile returns a copy of the session's user profile.
func (tc *TurnContext) Profile() UserProfile { return tc.Session.Profile() }

// ScratchSnapshot returns a copy of the full scratch map, all scopes
// included. Routers feed it to the classifier as conversation context.
func (tc *TurnContext) ScratchSnapshot() map[string]any { return tc.Session.ScratchSnapshot() }

// History returns up to limit recent history messages (limit <= 0: all).
func (tc *TurnContext) History(limit int) []Message { return tc.Session.History(limit) }

// TemplateState assembles the data map instruction templates render
// against: every scratch entry by key, plus "profile" and "session_id".
func (tc *TurnContext) TemplateState() map[string]any {
	data := tc.Session.ScratchSnapshot()
	data["profile"] = map[string]any(tc.Session.Profile())
	data["session_id"] = tc.Session.ID

	return data
}

// joinPath concatenates dotted path segments, tolerating empty prefixes.
func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}

	if name == "" {
		return prefix
	}

	return prefix + "." + name
}
