package core

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a unique identifier for sessions, turns and tool calls.
func NewID() string { return uuid.NewString() }

// TurnStatus describes how a turn ended.
type TurnStatus string

const (
	// TurnCompleted marks a turn that produced a reply normally.
	TurnCompleted TurnStatus = "completed"
	// TurnFailed marks a turn whose reply is a fallback because an
	// unrecovered failure reached the turn processor.
	TurnFailed TurnStatus = "failed"
)

// ToolCallRecord captures one invocation of an external capability: the
// arguments, the structured result or the error kind, and the measured
// latency. Records are ephemeral turn data kept for observability.
type ToolCallRecord struct {
	ID        string         `json:"id"`
	Tool      string         `json:"tool"`
	Agent     string         `json:"agent"`
	Args      map[string]any `json:"args,omitempty"`
	Result    any            `json:"result,omitempty"`
	ErrorKind string         `json:"error_kind,omitempty"`
	Error     string         `json:"error,omitempty"`
	Latency   time.Duration  `json:"latency"`
}

// Turn is one processed user exchange: the raw input, the ordered node
// names visited while routing it, the final reply and the tool calls made
// along the way. A summary is appended to the session history when the
// turn processor finishes; the Turn itself is returned to the caller.
type Turn struct {
	ID           string           `json:"id"`
	SessionID    string           `json:"session_id"`
	Input        string           `json:"input"`
	Reply        string           `json:"reply"`
	RoutingTrace []string         `json:"routing_trace"`
	ToolCalls    []ToolCallRecord `json:"tool_calls,omitempty"`
	Status       TurnStatus       `json:"status"`
	FailureKind  string           `json:"failure_kind,omitempty"`
	Started      time.Time        `json:"started"`
	Completed    time.Time        `json:"completed"`
}

// NewTurn creates a turn record for the given session and user input.
func NewTurn(sessionID, input string) *Turn {
	return &Turn{
		ID:        NewID(),
		SessionID: sessionID,
		Input:     input,
		Status:    TurnCompleted,
		Started:   time.Now(),
	}
}

// Failed reports whether the turn ended with an unrecovered failure.
func (t *Turn) Failed() bool { return t.Status == TurnFailed }

// HandledBy returns the name of the last node visited, which for a
// completed turn is the leaf that produced the reply.
func (t *Turn) HandledBy() string {
	if len(t.RoutingTrace) == 0 {
		return ""
	}

	return t.RoutingTrace[len(t.RoutingTrace)-1]
}
