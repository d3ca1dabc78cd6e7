package runner

import (
	"errors"
	"fmt"

	"github.com/hupe1980/supportmesh/agent"
)

// Failure kinds recorded on a failed Turn and carried by ProcessingError.
const (
	// FailureRoutingFailed marks turns no router could place, including
	// unknown classification targets without a default child.
	FailureRoutingFailed = "ROUTING_FAILED"
	// FailureToolFailure marks unrecovered tool or model failures that
	// escaped every local fallback.
	FailureToolFailure = "TOOL_FAILURE"
	// FailureSynthesisFailure marks parallel result merging gone wrong.
	FailureSynthesisFailure = "SYNTHESIS_FAILURE"
)

// ProcessingError is the terminal error for a failed turn. The user never
// sees it: the Turn carries a graceful fallback reply instead, and the
// ProcessingError goes to the caller for logging and alerting.
type ProcessingError struct {
	Kind   string
	TurnID string
	Err    error
}

// Error implements error.
func (e *ProcessingError) Error() string {
	return fmt.Sprintf("turn processing failed [%s]: %v", e.Kind, e.Err)
}

// Unwrap exposes the cause for errors.Is / errors.As chains.
func (e *ProcessingError) Unwrap() error { return e.Err }

// classifyFailure maps an error that escaped the root agent onto the closed
// failure taxonomy. The outermost wrap wins: a synthesis failure that buried
// a routing error still counts as synthesis.
func classifyFailure(turnID string, err error) *ProcessingError {
	kind := FailureToolFailure

	var synthErr *agent.SynthesisError

	var routingErr *agent.RoutingError

	switch {
	case errors.As(err, &synthErr):
		kind = FailureSynthesisFailure
	case errors.As(err, &routingErr):
		kind = FailureRoutingFailed
	}

	return &ProcessingError{Kind: kind, TurnID: turnID, Err: err}
}
