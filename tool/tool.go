// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (APIs, computations, side-effects) with schema
// validated arguments, consistent error handling and rich metadata for LLM guidance.
package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/internal/util"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools can be registered with the shared Adapter and declared per agent to
// enable function calling, allowing agents to perform actions beyond text
// generation such as API calls, lookups, ticket mutations, or any other
// programmatic operations.
//
// All tools have access to ToolContext for session scratch, user profile and
// history. This is how a tool persists values (ticket IDs, order IDs) that
// later turns pick up.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Honor ctx cancellation on every blocking call
//   - Be thread-safe if used concurrently
//   - Follow consistent naming conventions (snake_case recommended)
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for parameter validation and LLM function calling.
	Parameters() map[string]interface{}

	// Call executes the tool with structured arguments and ToolContext.
	// Arguments are parsed from JSON and validated against the tool's schema.
	Call(ctx context.Context, toolCtx *core.ToolContext, args map[string]interface{}) (interface{}, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes categorize tool failures for records, logs and recovery
// decisions. The set is closed; adapters map everything else to UPSTREAM.
const (
	// CodeNotFound marks a call that named a tool the adapter does not know.
	CodeNotFound = "NOT_FOUND"
	// CodeInvalidArgs marks arguments rejected by schema validation.
	CodeInvalidArgs = "INVALID_ARGS"
	// CodeTimeout marks a call that exceeded its execution deadline.
	CodeTimeout = "TIMEOUT"
	// CodeUpstream marks a failure inside the tool or the system it fronts.
	CodeUpstream = "UPSTREAM"
	// CodeUnauthorized marks a call from an agent that never declared the tool.
	CodeUnauthorized = "UNAUTHORIZED"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string      `json:"tool"`              // Name of the tool that failed
	Message string      `json:"message"`           // Error message
	Code    string      `json:"code"`              // Error code for categorization
	Details interface{} `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// ErrorKind extracts the categorized code from a tool invocation error.
// Context deadline errors that escaped wrapping classify as TIMEOUT.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var te *ToolError
	if errors.As(err, &te) && te.Code != "" {
		return te.Code
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}

	return CodeUpstream
}
