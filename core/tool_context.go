package core

import (
	"fmt"

	"github.com/hupe1980/supportmesh/logging"
)

// ToolContext provides a constrained, auditable surface for tool / function
// implementations invoked by an agent. Tools read and write session scratch
// through it; writes land under the scratch scope of the invoking agent's
// turn context so parallel branches stay partitioned.
type ToolContext struct {
	turnCtx        *TurnContext
	functionCallID string
	toolName       string
	agentInfo      AgentInfo
	valid          bool

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to a parent TurnContext
// and unique functionCallID.
func NewToolContext(turnCtx *TurnContext, toolName, functionCallID string) *ToolContext {
	return &ToolContext{
		turnCtx:        turnCtx,
		functionCallID: functionCallID,
		toolName:       toolName,
		agentInfo:      turnCtx.Agent,
		valid:          true,
		loggerAdapter:  newLoggerAdapter(turnCtx.Logger()),
	}
}

// SessionID returns the session ID associated with the tool invocation.
func (tc *ToolContext) SessionID() string {
	if tc.turnCtx.Session == nil {
		return ""
	}

	return tc.turnCtx.Session.ID
}

// TurnID returns the turn ID associated with the tool invocation.
func (tc *ToolContext) TurnID() string {
	if tc.turnCtx.Turn == nil {
		return ""
	}

	return tc.turnCtx.Turn.ID
}

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// ToolName returns the name of the tool being invoked.
func (tc *ToolContext) ToolName() string { return tc.toolName }

// AgentName returns the agent name associated with the tool invocation.
func (tc *ToolContext) AgentName() string { return tc.agentInfo.Name }

// AgentKind returns the agent kind associated with the tool invocation.
func (tc *ToolContext) AgentKind() Kind { return tc.agentInfo.Kind }

// ScratchValue retrieves the scratch value associated with the given key.
func (tc *ToolContext) ScratchValue(k string) (any, bool) {
	return tc.turnCtx.ScratchValue(k)
}

// SetScratch records a scratch mutation through the turn context so the
// write picks up the agent's scratch scope. This is how tools persist
// values (ticket IDs, order IDs) for later turns.
func (tc *ToolContext) SetScratch(k string, v any) {
	tc.turnCtx.SetScratch(k, v)
	tc.LogDebug("tool.scratch.write", "tool", tc.toolName, "key", k, "function_call_id", tc.functionCallID)
}

// Profile returns a copy of the session's immutable user profile.
func (tc *ToolContext) Profile() UserProfile { return tc.turnCtx.Profile() }

// History returns up to limit most recent conversation messages.
func (tc *ToolContext) History(limit int) []Message { return tc.turnCtx.History(limit) }

// Validate performs a structural sanity check of the context.
func (tc *ToolContext) Validate() error {
	if !tc.IsValid() {
		return fmt.Errorf("invalid ToolContext")
	}

	return nil
}

// IsValid reports whether Validate would succeed (fast path).
func (tc *ToolContext) IsValid() bool {
	return tc.valid && tc.turnCtx != nil && tc.turnCtx.Session != nil && tc.functionCallID != ""
}

// InternalTurnContext returns the internal turn context.
func (tc *ToolContext) InternalTurnContext() *TurnContext { return tc.turnCtx }
